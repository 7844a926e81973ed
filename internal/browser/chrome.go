package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// DefaultUserAgent is a current desktop Chrome on macOS. The source serves
// reduced pages to obvious automation.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ChromeConfig controls how ChromeLauncher creates sessions.
type ChromeConfig struct {
	ExecPath string // empty: let chromedp find Chrome/Chromium on PATH
	// RemoteURL attaches to a running browser instead of launching one. It
	// takes a ws:// debugger URL or an http://host:port DevTools endpoint.
	RemoteURL string
	Headless  bool
	NoSandbox bool
	UserAgent string
	Width     int
	Height    int
	// AcceptLanguage is sent with every request.
	AcceptLanguage string
	StartTimeout   time.Duration
	// NavigateTimeout bounds waiting for the load event.
	NavigateTimeout time.Duration
}

// ChromeLauncher launches chromedp-backed sessions.
type ChromeLauncher struct {
	cfg ChromeConfig
	log *zap.Logger
}

func NewChromeLauncher(cfg ChromeConfig, log *zap.Logger) *ChromeLauncher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Width <= 0 {
		cfg.Width = 1366
	}
	if cfg.Height <= 0 {
		cfg.Height = 900
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = 20 * time.Second
	}
	if cfg.NavigateTimeout <= 0 {
		cfg.NavigateTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ChromeLauncher{cfg: cfg, log: log}
}

// Launch prepares allocator and tab contexts. No process is started and no
// remote browser is contacted until Session.Start.
func (l *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	base := context.WithoutCancel(ctx)

	var (
		allocCtx    context.Context
		cancelAlloc context.CancelFunc
	)
	if l.cfg.RemoteURL != "" {
		// chromedp looks up the debugger URL of an http endpoint itself,
		// resolving the host to an IP as DevTools requires.
		l.log.Debug("attaching to remote browser", zap.String("remote_url", l.cfg.RemoteURL))
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(base, l.cfg.RemoteURL)
	} else {
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(base, l.execOptions()...)
	}

	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithErrorf(func(format string, args ...any) {
		l.log.Debug("chromedp", zap.String("msg", fmt.Sprintf(format, args...)))
	}))

	s := &chromeSession{
		cfg:         l.cfg,
		log:         l.log,
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}
	// Cancelling the caller's context tears the browser down with it.
	s.stopAfter = context.AfterFunc(ctx, s.cancel)
	return s, nil
}

func (l *ChromeLauncher) execOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", l.cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(l.cfg.UserAgent),
		chromedp.WindowSize(l.cfg.Width, l.cfg.Height),
	)
	if l.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if l.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.cfg.ExecPath))
	}
	return opts
}

type chromeSession struct {
	cfg ChromeConfig
	log *zap.Logger

	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	stopAfter   func() bool

	closeOnce sync.Once
	closeErr  error
}

func (s *chromeSession) Start(ctx context.Context) error {
	timer := time.AfterFunc(s.cfg.StartTimeout, s.cancel)
	defer timer.Stop()

	err := chromedp.Run(s.ctx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": s.cfg.AcceptLanguage}),
		emulation.SetUserAgentOverride(s.cfg.UserAgent).WithAcceptLanguage(s.cfg.AcceptLanguage),
		chromedp.EmulateViewport(int64(s.cfg.Width), int64(s.cfg.Height)),
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.ctx.Err() != nil {
			return fmt.Errorf("%w: browser did not start within %s", ErrEnvironment, s.cfg.StartTimeout)
		}
		return fmt.Errorf("%w: %w", ErrEnvironment, err)
	}
	s.log.Debug("browser started", zap.Bool("remote", s.cfg.RemoteURL != ""))
	return nil
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, s.cfg.NavigateTimeout, chromedp.Navigate(url))
}

func (s *chromeSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.cfg.NavigateTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// run executes actions on the tab bounded by timeout. Only the wait's own
// deadline becomes ErrRenderTimeout; caller cancellation passes through.
func (s *chromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && s.ctx.Err() == nil {
		return fmt.Errorf("%w after %s", ErrRenderTimeout, timeout)
	}
	return err
}

func (s *chromeSession) cancel() {
	s.cancelTab()
	s.cancelAlloc()
}

// Close shuts the browser down. Safe to call more than once.
func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.stopAfter()
		if s.ctx.Err() == nil {
			// Cancel waits for the target (and a locally launched browser) to exit.
			if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.closeErr = err
			}
		}
		s.cancel()
		s.log.Debug("browser session released")
	})
	return s.closeErr
}
