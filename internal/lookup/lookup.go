// Package lookup runs one query through normalization, resolution and quote
// extraction inside a single browser session.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stockquote/internal/browser"
	"stockquote/internal/provider"
	"stockquote/internal/query"
)

// Pipeline resolves queries to quotes.
type Pipeline struct {
	launcher  browser.Launcher
	resolver  provider.Resolver
	extractor provider.Extractor
	log       *zap.Logger
}

func New(l browser.Launcher, r provider.Resolver, e provider.Extractor, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{launcher: l, resolver: r, extractor: e, log: log}
}

// Run looks up raw and reports what was found. No match and an unreadable
// quote are outcomes, not errors. The error is non-nil only when no outcome
// could be produced: the browser could not start, ctx ended, or an
// unexpected failure occurred.
func (p *Pipeline) Run(ctx context.Context, raw string) (provider.Outcome, error) {
	q := query.Normalize(raw)
	log := p.log.With(zap.String("run_id", uuid.NewString()), zap.String("query", q))
	if q != raw {
		log.Debug("query normalized", zap.String("raw", raw))
	}
	start := time.Now()

	out := provider.Outcome{Query: q}
	err := browser.Use(ctx, p.launcher, func(ctx context.Context, s browser.Session) error {
		in, err := p.resolver.Resolve(ctx, s, q)
		if err != nil {
			return err
		}
		out.Instrument = &in
		log.Info("instrument resolved",
			zap.String("code", in.Code),
			zap.String("name", in.Name),
			zap.String("class", string(in.Class)),
		)

		rec, err := p.extractor.Extract(ctx, s, in)
		if err != nil {
			return err
		}
		out.Quote = &rec
		return nil
	})
	if errors.Is(err, browser.ErrRelease) {
		log.Warn("browser session not released cleanly", zap.Error(err))
		err = nil
	}

	switch {
	case err == nil:
		out.Status = provider.StatusFound
		log.Info("quote found", zap.String("price", out.Quote.Price.Text), zap.Duration("took", time.Since(start)))
	case errors.Is(err, provider.ErrNoMatch):
		out.Status = provider.StatusNoMatch
		out.Reason = err.Error()
		var nm *provider.NoMatchError
		if errors.As(err, &nm) {
			out.Reason = nm.Reason
		}
		log.Info("no match", zap.String("reason", out.Reason), zap.Bool("timeout", nm != nil && nm.Timeout))
	case errors.Is(err, provider.ErrExtraction):
		out.Status = provider.StatusUnavailable
		out.Reason = err.Error()
		var ee *provider.ExtractionError
		if errors.As(err, &ee) {
			out.Reason = unavailableReason(ee)
		}
		log.Warn("quote unavailable", zap.String("reason", out.Reason))
	default:
		log.Error("lookup failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return out, fmt.Errorf("looking up %q: %w", q, err)
	}
	return out, nil
}

func unavailableReason(e *provider.ExtractionError) string {
	switch {
	case e.Err == nil:
		return "field " + e.Field + " missing"
	case e.Field == "":
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
}
