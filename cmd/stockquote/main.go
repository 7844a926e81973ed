// Command stockquote resolves a free-text query to one instrument on East
// Money and prints its current quote.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"stockquote/internal/browser"
	"stockquote/internal/config"
	"stockquote/internal/lookup"
	"stockquote/internal/output"
	"stockquote/internal/provider"
	"stockquote/internal/provider/eastmoney"
	"stockquote/internal/provider/ratelimit"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitEnvironment = 3
)

var errUsage = errors.New("usage")

type runner interface {
	Run(ctx context.Context, query string) (provider.Outcome, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	query, err := parseArgs(args, stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case err != nil:
		return exitUsage
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitFailure
	}
	log, err := config.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return exitFailure
	}
	defer func() { _ = log.Sync() }()

	return execute(ctx, newPipeline(cfg, log), query, stdout, stderr)
}

// parseArgs accepts -query, -q or a positional query.
func parseArgs(args []string, stderr io.Writer) (string, error) {
	fs := flag.NewFlagSet("stockquote", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var query string
	fs.StringVar(&query, "query", "", "search keyword: company name, code, theme or index")
	fs.StringVar(&query, "q", "", "shorthand for -query")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: stockquote -query <keyword>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return "", err
	}

	switch {
	case query != "" && fs.NArg() > 0:
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		fs.Usage()
		return "", errUsage
	case query == "":
		query = strings.Join(fs.Args(), " ")
	}
	if strings.TrimSpace(query) == "" {
		fmt.Fprintln(stderr, "a query is required")
		fs.Usage()
		return "", errUsage
	}
	return query, nil
}

func newPipeline(cfg config.Config, log *zap.Logger) *lookup.Pipeline {
	chrome := browser.NewChromeLauncher(browser.ChromeConfig{
		ExecPath:        cfg.Browser.ExecPath,
		RemoteURL:       cfg.Browser.RemoteURL,
		Headless:        cfg.Browser.Headless,
		NoSandbox:       cfg.Browser.NoSandbox,
		UserAgent:       cfg.Browser.UserAgent,
		Width:           cfg.Browser.WindowWidth,
		Height:          cfg.Browser.WindowHeight,
		AcceptLanguage:  cfg.Browser.AcceptLanguage,
		StartTimeout:    cfg.Browser.StartTimeout(),
		NavigateTimeout: cfg.Source.NavigateTimeout(),
	}, log)

	client := eastmoney.New(
		eastmoney.WithSearchURL(cfg.Source.SearchURL),
		eastmoney.WithRenderTimeout(cfg.Source.RenderTimeout()),
		eastmoney.WithSettle(cfg.Source.Settle()),
		eastmoney.WithAttempts(cfg.Source.Attempts),
		eastmoney.WithLogger(log),
	)

	launcher := &ratelimit.Launcher{L: chrome, Interval: cfg.Browser.MinNavigationInterval()}
	return lookup.New(launcher, client, client, log)
}

// execute runs one lookup, prints the outcome and maps it to an exit code.
func execute(ctx context.Context, r runner, query string, stdout, stderr io.Writer) int {
	out, err := r.Run(ctx, query)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		if errors.Is(err, browser.ErrEnvironment) {
			return exitEnvironment
		}
		return exitFailure
	}

	if err := output.Fprint(stdout, out); err != nil {
		fmt.Fprintf(stderr, "error: writing result: %v\n", err)
		return exitFailure
	}
	if out.Status == provider.StatusUnavailable {
		return exitFailure
	}
	return exitOK
}
