package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/pageturner/internal/app"
	"github.com/ayusman/pageturner/internal/server"
	"github.com/ayusman/pageturner/internal/store"
	"github.com/ayusman/pageturner/internal/tray"
)

// stopGrace is how long an interrupt waits for the loop before the
// process exits anyway.
const stopGrace = 2 * time.Second

// options are the parsed command line.
type options struct {
	config  app.Config
	history string
	listen  string
	tray    bool
}

func (o options) validate() error {
	if err := o.config.Validate(); err != nil {
		return err
	}
	if o.tray && !o.config.Headless {
		return errors.New("--tray requires --headless")
	}
	return nil
}

// newRootCmd builds the root command; runFn is called with the parsed options.
func newRootCmd(runFn func(context.Context, options) error) *cobra.Command {
	opts := options{config: app.DefaultConfig()}

	cmd := &cobra.Command{
		Use:   "pageturner",
		Short: "Turn pages by tilting your head",
		Long: `Watches the camera for a face tilted left or right and sends Page Up or
Page Down to the active window.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFn(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.config.ClassifierPath, "classifier", "c", opts.config.ClassifierPath, "Haar cascade used to find the face")
	f.BoolVar(&opts.config.Headless, "headless", false, "Run without a preview window (stop with Ctrl+C)")
	f.IntVar(&opts.config.CameraID, "camera", opts.config.CameraID, "Camera device id")
	f.Float64Var(&opts.config.TiltAngle, "tilt", opts.config.TiltAngle, "Tilt angle in degrees tried on each side")
	f.DurationVar(&opts.config.DetectInterval, "detect-interval", opts.config.DetectInterval, "Minimum time between detection passes")
	f.DurationVar(&opts.config.ActionCooldown, "cooldown", opts.config.ActionCooldown, "Minimum time between page turns")
	f.DurationVar(&opts.config.FramePause, "frame-pause", opts.config.FramePause, "Sleep before each frame")
	f.StringVar(&opts.config.KeyTool, "key-tool", opts.config.KeyTool, "Key delivery tool: auto, xdotool or osascript")
	f.DurationVar(&opts.config.EmitTimeout, "emit-timeout", 0, "Kill the key delivery tool after this long (0 waits)")
	f.StringVar(&opts.history, "history", "", "SQLite file to record page turns in")
	f.StringVar(&opts.listen, "listen", "", "Address for the status server, e.g. :8080")
	f.BoolVar(&opts.tray, "tray", false, "Show a system tray menu (requires --headless)")

	return cmd
}

// run opens the loop, wires the optional history, status server and tray,
// and blocks until the loop ends.
func run(ctx context.Context, opts options) error {
	a, err := app.Open(opts.config)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("error releasing resources: %v", err)
		}
	}()

	var st *store.Store
	if opts.history != "" {
		st, err = store.New(opts.history)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer st.Close()

		h, err := newHistory(st, sessionFor(a))
		if err != nil {
			return fmt.Errorf("start history: %w", err)
		}
		defer func() { h.end(time.Now()) }()
		a.AddObserver(h)
		log.Printf("recording page turns in %s", opts.history)
	}

	if opts.listen != "" {
		preview := server.NewPreview()
		hub := server.NewEventHub(a)
		a.AddFrameSink(preview)
		a.AddObserver(hub)

		srv := server.New(server.Config{Status: a, Store: st, Preview: preview, Events: hub})
		go func() {
			log.Printf("status server listening on %s", opts.listen)
			if err := srv.ListenAndServe(opts.listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("status server failed: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), stopGrace)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Printf("status server shutdown: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	defer close(done)
	handleInterrupt(a, done)

	if !opts.tray {
		return a.Run(ctx)
	}

	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnQuit(a.Stop)
	if opts.listen != "" {
		url := statusURL(opts.listen)
		t.OnStatus(func() { openBrowser(url) })
	}
	a.AddObserver(t)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
		t.Quit()
	}()
	t.Run()

	return <-errCh
}

// handleInterrupt stops the loop on SIGINT or SIGTERM. The process exits
// outright on a second signal or if the loop has not ended after stopGrace.
func handleInterrupt(a *app.App, done <-chan struct{}) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case <-done:
			return
		case <-sigCh:
		}

		log.Println("interrupt received, stopping")
		a.Stop()

		select {
		case <-done:
		case <-sigCh:
			log.Println("second interrupt, exiting")
			os.Exit(1)
		case <-time.After(stopGrace):
			log.Println("loop did not stop in time, exiting")
			os.Exit(1)
		}
	}()
}

// sessionFor describes the run in the history.
func sessionFor(a *app.App) store.Session {
	st := a.Status()
	cfg := a.Config()
	return store.Session{
		ID:         st.SessionID,
		Classifier: cfg.ClassifierPath,
		TiltAngle:  cfg.TiltAngle,
		KeyTool:    keyToolName(cfg.KeyTool),
		StartedAt:  st.StartedAt,
	}
}

// statusURL turns a listen address into a browsable status URL.
func statusURL(listen string) string {
	host := listen
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host + "/api/status"
}

func openBrowser(url string) {
	name := "xdg-open"
	if runtime.GOOS == "darwin" {
		name = "open"
	}
	if err := exec.Command(name, url).Start(); err != nil {
		log.Printf("failed to open %s: %v", url, err)
	}
}
