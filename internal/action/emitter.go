package action

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ayusman/pageturner/internal/tilt"
)

// Emitter turns a direction into one synthetic key press.
type Emitter struct {
	backend Backend
	timeout time.Duration
}

// NewEmitter creates an Emitter. A zero timeout waits for the backend
// process for as long as it runs.
func NewEmitter(backend Backend, timeout time.Duration) *Emitter {
	if backend == nil {
		backend = DefaultBackend()
	}
	return &Emitter{
		backend: backend,
		timeout: timeout,
	}
}

// Backend returns the key delivery backend.
func (e *Emitter) Backend() Backend {
	return e.backend
}

// Emit delivers the key for d and waits for the backend process to exit.
// It returns the key symbol it tried to send, even on failure.
func (e *Emitter) Emit(ctx context.Context, d tilt.Direction) (string, error) {
	key, err := KeyFor(d)
	if err != nil {
		return "", err
	}

	argv, err := e.backend.Command(key)
	if err != nil {
		return key, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if e.timeout > 0 {
		cmd.WaitDelay = e.timeout
	}
	output, err := cmd.CombinedOutput()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return key, fmt.Errorf("%s timeout after %v", e.backend.Name(), e.timeout)
	}

	if err != nil {
		out := strings.TrimSpace(string(output))
		if out != "" {
			return key, fmt.Errorf("%s %s failed: %w: %s", e.backend.Name(), key, err, out)
		}
		return key, fmt.Errorf("%s %s failed: %w", e.backend.Name(), key, err)
	}

	return key, nil
}
