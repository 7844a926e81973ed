// Package eastmoney resolves queries against East Money's web search and reads
// quotes from its quote pages, both rendered through a browser session.
package eastmoney

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"stockquote/internal/browser"
	"stockquote/internal/provider"
)

// DefaultSearchURL is East Money's site search.
const DefaultSearchURL = "https://so.eastmoney.com/web/s"

const (
	defaultRenderTimeout = 15 * time.Second
	defaultSettle        = 1500 * time.Millisecond
	defaultPollInterval  = 250 * time.Millisecond
	defaultAttempts      = 2
)

// errUnfilled reports a rendered page whose content is still placeholders.
var errUnfilled = fmt.Errorf("%w: content not filled in", browser.ErrRenderTimeout)

var (
	_ provider.Resolver  = (*Client)(nil)
	_ provider.Extractor = (*Client)(nil)
)

// Client is an East Money resolver and extractor.
type Client struct {
	// searchURL is the search endpoint; the query goes in its keyword parameter.
	searchURL string
	// renderTimeout bounds each wait for page content.
	renderTimeout time.Duration
	// settle is slept after content appears, letting late widgets fill in.
	settle time.Duration
	// poll is the delay between snapshots of a page still showing placeholders.
	poll time.Duration
	// attempts is the number of render attempts per page, retries included.
	attempts int
	log      *zap.Logger
}

// ClientOption is a configuration option for Client.
type ClientOption func(*Client)

// WithSearchURL sets the search endpoint.
func WithSearchURL(searchURL string) ClientOption {
	return func(c *Client) {
		c.searchURL = searchURL
	}
}

// WithRenderTimeout sets the bound on each content wait.
func WithRenderTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.renderTimeout = d
		}
	}
}

// WithSettle sets the delay between content appearing and the snapshot.
func WithSettle(d time.Duration) ClientOption {
	return func(c *Client) {
		if d >= 0 {
			c.settle = d
		}
	}
}

// WithPollInterval sets the delay between snapshots of a page whose content
// has not filled in yet.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.poll = d
		}
	}
}

// WithAttempts sets the render attempts per page. Values below 1 are ignored.
func WithAttempts(n int) ClientOption {
	return func(c *Client) {
		if n >= 1 {
			c.attempts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Client.
func New(options ...ClientOption) *Client {
	c := &Client{
		searchURL:     DefaultSearchURL,
		renderTimeout: defaultRenderTimeout,
		settle:        defaultSettle,
		poll:          defaultPollInterval,
		attempts:      defaultAttempts,
		log:           zap.NewNop(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// render loads pageURL, waits for ready and parses the snapshot. When filled
// is set the page is re-read until filled accepts it. Transient failures are
// retried up to the configured attempts; a page that never fills in is
// returned as last seen so the reader can name what is missing.
func (c *Client) render(ctx context.Context, s browser.Session, pageURL, ready string, filled func(*goquery.Document) bool) (*goquery.Document, error) {
	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		var doc *goquery.Document
		doc, err = c.renderOnce(ctx, s, pageURL, ready, filled)
		if err == nil {
			return doc, nil
		}
		if errors.Is(err, errUnfilled) && attempt == c.attempts {
			c.log.Warn("page content never filled in", zap.String("url", pageURL))
			return doc, nil
		}
		if !browser.IsTransient(err) || attempt == c.attempts {
			break
		}
		c.log.Warn("render failed, retrying",
			zap.String("url", pageURL),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return nil, err
}

func (c *Client) renderOnce(ctx context.Context, s browser.Session, pageURL, ready string, filled func(*goquery.Document) bool) (*goquery.Document, error) {
	if err := s.Navigate(ctx, pageURL); err != nil {
		// Pages with slow third-party scripts may never fire load; the
		// content wait decides.
		if !errors.Is(err, browser.ErrRenderTimeout) {
			return nil, fmt.Errorf("navigating to %s: %w", pageURL, err)
		}
		c.log.Debug("load event timed out, waiting for content", zap.String("url", pageURL))
	}
	if err := s.WaitVisible(ctx, ready, c.renderTimeout); err != nil {
		return nil, fmt.Errorf("waiting for %q: %w", ready, err)
	}
	if err := sleep(ctx, c.settle); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.renderTimeout)
	for {
		doc, err := c.snapshot(ctx, s, pageURL)
		if err != nil || filled == nil || filled(doc) {
			return doc, err
		}
		if time.Now().Add(c.poll).After(deadline) {
			return doc, errUnfilled
		}
		c.log.Debug("page still showing placeholders", zap.String("url", pageURL))
		if err := sleep(ctx, c.poll); err != nil {
			return nil, err
		}
	}
}

func (c *Client) snapshot(ctx context.Context, s browser.Session, pageURL string) (*goquery.Document, error) {
	html, err := s.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	doc.Url, _ = url.Parse(pageURL)
	return doc, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// text returns the trimmed text of the first element matching selector, with
// runs of whitespace collapsed.
func text(sel *goquery.Selection, selector string) string {
	return strings.Join(strings.Fields(sel.Find(selector).First().Text()), " ")
}
