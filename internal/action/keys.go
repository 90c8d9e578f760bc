// Package action delivers page-turn key presses to the operating system.
package action

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/ayusman/pageturner/internal/tilt"
)

// Key symbols, named as X11 keysyms.
const (
	KeyPageDown = "Page_Down"
	KeyPageUp   = "Page_Up"
)

// ErrUnknownDirection is returned for a direction with no key binding.
var ErrUnknownDirection = errors.New("unknown direction")

// ErrUnknownBackend is returned when a backend name is not recognised.
var ErrUnknownBackend = errors.New("unknown key backend")

// KeyFor maps a turn direction to its key symbol.
func KeyFor(d tilt.Direction) (string, error) {
	switch d {
	case tilt.Next:
		return KeyPageDown, nil
	case tilt.Previous:
		return KeyPageUp, nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownDirection, int(d))
	}
}

// Backend builds the command line that delivers a key to the active window.
type Backend interface {
	Name() string
	Command(key string) ([]string, error)
}

// Xdotool delivers keys on X11 through the xdotool binary.
type Xdotool struct {
	// Path overrides the binary; empty means "xdotool" from PATH.
	Path string
}

// Name returns "xdotool".
func (x Xdotool) Name() string { return "xdotool" }

// Command returns the xdotool invocation for key.
func (x Xdotool) Command(key string) ([]string, error) {
	path := x.Path
	if path == "" {
		path = "xdotool"
	}
	return []string{path, "key", key}, nil
}

// macKeyCodes maps key symbols to macOS virtual key codes.
var macKeyCodes = map[string]int{
	KeyPageDown: 121,
	KeyPageUp:   116,
}

// Osascript delivers keys on macOS through System Events.
type Osascript struct {
	// Path overrides the binary; empty means "osascript" from PATH.
	Path string
}

// Name returns "osascript".
func (o Osascript) Name() string { return "osascript" }

// Command returns the osascript invocation for key.
func (o Osascript) Command(key string) ([]string, error) {
	code, ok := macKeyCodes[key]
	if !ok {
		return nil, fmt.Errorf("no macOS key code for %q", key)
	}

	path := o.Path
	if path == "" {
		path = "osascript"
	}
	script := fmt.Sprintf(`tell application "System Events" to key code %d`, code)
	return []string{path, "-e", script}, nil
}

// BackendByName returns the backend called name. "auto" and "" pick the
// platform default.
func BackendByName(name string) (Backend, error) {
	switch name {
	case "", "auto":
		return DefaultBackend(), nil
	case "xdotool":
		return Xdotool{}, nil
	case "osascript":
		return Osascript{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
}

// DefaultBackend returns osascript on macOS and xdotool elsewhere.
func DefaultBackend() Backend {
	if runtime.GOOS == "darwin" {
		return Osascript{}
	}
	return Xdotool{}
}
