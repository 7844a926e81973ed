// Package browser owns the headless browser session used to render the
// quote source's pages.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	// ErrEnvironment reports that the browser engine could not be started.
	// It indicates a broken environment and is never retried.
	ErrEnvironment = errors.New("browser environment unavailable")

	// ErrRenderTimeout reports that a bounded navigation or element wait
	// elapsed before the page rendered.
	ErrRenderTimeout = errors.New("timed out waiting for page to render")

	// ErrRelease reports that a session failed to shut down cleanly after
	// its work completed.
	ErrRelease = errors.New("closing browser session")
)

// transientHints are substrings of CDP/network failures worth one retry.
var transientHints = []string{
	"connection reset",
	"connection refused",
	"connection closed",
	"err_connection",
	"err_timed_out",
	"err_network_changed",
	"err_empty_response",
	"target closed",
	"broken pipe",
}

// Session is a single rendered-page context.
//
//go:generate mockgen -package=browsermock -destination=browsermock/mock_session.go -source=session.go Session,Launcher
type Session interface {
	// Start launches (or attaches to) the browser and prepares the tab.
	Start(ctx context.Context) error
	// Navigate loads url. A load that exceeds the session's navigation
	// timeout returns ErrRenderTimeout; the page keeps loading.
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until an element matching selector is visible.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// HTML snapshots the current document.
	HTML(ctx context.Context) (string, error)
	// Close releases the tab and, for locally launched browsers, the process.
	Close() error
}

// Launcher acquires sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Use acquires a session from l, starts it and runs fn with it. The session
// is closed exactly once however fn returns, including by panic.
func Use(ctx context.Context, l Launcher, fn func(context.Context, Session) error) (err error) {
	s, err := l.Launch(ctx)
	if err != nil {
		return environmentErr(ctx, err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrRelease, cerr)
		}
	}()

	if err := s.Start(ctx); err != nil {
		return environmentErr(ctx, err)
	}
	return fn(ctx, s)
}

// environmentErr marks err as an environment failure unless the caller
// cancelled ctx, in which case the cancellation is returned as is.
func environmentErr(ctx context.Context, err error) error {
	if errors.Is(err, ErrEnvironment) {
		return err
	}
	if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrEnvironment, err)
}

// IsTransient reports whether err is worth retrying once: render timeouts and
// network hiccups, but never environment failures or cancellations.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrEnvironment) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrRenderTimeout) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range transientHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
