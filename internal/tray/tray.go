// Package tray provides a system tray menu for the page turner.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/pageturner/internal/app"
)

// Tray represents the system tray menu.
type Tray struct {
	onToggle func(enabled bool)
	onStatus func()
	onQuit   func()
	enabled  bool
	lastTurn string
	ready    chan struct{}
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuLastTurn *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled:  true,
		lastTurn: lastTurnTitle(nil),
		ready:    make(chan struct{}),
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnStatus sets the callback for the status menu item. The item is only
// shown when a callback is set before Run.
func (t *Tray) OnStatus(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStatus = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called and must be called
// from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return. It waits until the
// menu is up, so Run must have been called.
func (t *Tray) Quit() {
	<-t.ready
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Page Turner")
	systray.SetTooltip("Head tilt page turner")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume tilt detection")
	systray.AddSeparator()

	t.menuLastTurn = systray.AddMenuItem(t.lastTurn, "Last page turn")
	t.menuLastTurn.Disable()
	systray.AddSeparator()

	var statusClicked chan struct{}
	if t.onStatus != nil {
		menuStatus := systray.AddMenuItem("Open Status...", "Open the status page in a browser")
		statusClicked = menuStatus.ClickedCh
		systray.AddSeparator()
	}
	t.mu.Unlock()

	menuQuit := systray.AddMenuItem("Quit", "Quit Page Turner")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-statusClicked:
				t.handleStatus()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()

	close(t.ready)
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleStatus handles the status menu item click.
func (t *Tray) handleStatus() {
	t.mu.RLock()
	callback := t.onStatus
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// OnTurn shows the turn as the last one in the menu.
func (t *Tray) OnTurn(turn app.Turn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastTurn = lastTurnTitle(&turn)
	if t.menuLastTurn != nil {
		t.menuLastTurn.SetTitle(t.lastTurn)
	}
}

// LastTurn returns the last turn menu title.
func (t *Tray) LastTurn() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastTurn
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Paused"
}

func lastTurnTitle(turn *app.Turn) string {
	if turn == nil {
		return "Last: none"
	}
	title := fmt.Sprintf("Last: %s (%s) at %s", turn.Direction, turn.Key, turn.At.Local().Format("15:04:05"))
	if !turn.OK() {
		title += " failed"
	}
	return title
}
