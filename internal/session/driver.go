// Package session owns the single authenticated browser session: driver
// lifecycle, login, navigation, and death detection.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"linkcheck/internal/domain"
)

// Browser selects the chrome-family executable behind a session. The choice
// is resolved once at driver construction.
type Browser string

const (
	BrowserChrome   Browser = "chrome"
	BrowserChromium Browser = "chromium"
	BrowserBrave    Browser = "brave"
	BrowserOperaGX  Browser = "operagx"
)

// ParseBrowser validates an operator-supplied browser name.
func ParseBrowser(s string) (Browser, error) {
	b := Browser(strings.ToLower(strings.TrimSpace(s)))
	switch b {
	case BrowserChrome, BrowserChromium, BrowserBrave, BrowserOperaGX:
		return b, nil
	}
	return "", fmt.Errorf("unsupported browser %q", s)
}

// ExecPath returns the executable path for non-default browsers. Empty means
// chromedp's own lookup.
func (b Browser) ExecPath() string {
	switch b {
	case BrowserChromium:
		return "/usr/bin/chromium"
	case BrowserBrave:
		return "/usr/bin/brave-browser"
	case BrowserOperaGX:
		return "/usr/bin/opera"
	}
	return ""
}

// Driver is the opaque browser capability the controller drives. One driver
// instance backs at most one session.
type Driver interface {
	Start(ctx context.Context) error
	Navigate(ctx context.Context, url string) (*domain.NavigationResult, error)
	// Snapshot reads the current page without navigating.
	Snapshot(ctx context.Context) (*domain.NavigationResult, error)
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	InteractiveElements(ctx context.Context) ([]domain.InteractiveElement, error)
	Quit()
}

// DriverFactory builds a fresh driver for each session.
type DriverFactory func() Driver

// SetupFault reports that a browser session could not be started.
type SetupFault struct {
	Err error
}

func (f *SetupFault) Error() string { return "session setup failed: " + f.Err.Error() }
func (f *SetupFault) Unwrap() error { return f.Err }

// SessionFault reports a failure on a live session.
type SessionFault struct {
	Op  string
	Err error
}

func (f *SessionFault) Error() string {
	return fmt.Sprintf("session fault during %s: %v", f.Op, f.Err)
}

func (f *SessionFault) Unwrap() error { return f.Err }

var fatalFaultMarkers = []string{
	"target crashed",
	"session deleted",
	"disconnected",
	"context canceled",
	"websocket url timeout",
}

// Fatal reports whether the fault means the session itself is unusable and
// must be torn down.
func (f *SessionFault) Fatal() bool {
	msg := strings.ToLower(f.Err.Error())
	for _, marker := range fatalFaultMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsFatalFault reports whether err is a session fault requiring teardown.
func IsFatalFault(err error) bool {
	var sf *SessionFault
	return errors.As(err, &sf) && sf.Fatal()
}
