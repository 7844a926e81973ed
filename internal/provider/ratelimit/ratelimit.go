package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"stockquote/internal/browser"
)

// Session wraps a browser session and enforces a minimum time between
// navigations. The first navigation is never delayed.
type Session struct {
	browser.Session
	Limiter *rate.Limiter
}

// NewSession paces s to one navigation per interval. A non-positive interval
// disables pacing.
func NewSession(s browser.Session, interval time.Duration) *Session {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Session{Session: s, Limiter: rate.NewLimiter(limit, 1)}
}

// Navigate waits for the limiter or returns early if the context is canceled.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return s.Session.Navigate(ctx, url)
}

// Launcher wraps every launched session with navigation pacing.
type Launcher struct {
	L        browser.Launcher
	Interval time.Duration
}

func (l *Launcher) Launch(ctx context.Context) (browser.Session, error) {
	s, err := l.L.Launch(ctx)
	if err != nil {
		return nil, err
	}
	return NewSession(s, l.Interval), nil
}
