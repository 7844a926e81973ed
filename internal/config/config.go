package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// STOCKQUOTE_SOURCE_RENDER_TIMEOUT_SEC.
const EnvPrefix = "STOCKQUOTE"

type Browser struct {
	ExecPath                string `mapstructure:"exec_path"`
	RemoteURL               string `mapstructure:"remote_url"`
	Headless                bool   `mapstructure:"headless"`
	NoSandbox               bool   `mapstructure:"no_sandbox"`
	UserAgent               string `mapstructure:"user_agent"`
	AcceptLanguage          string `mapstructure:"accept_language"`
	WindowWidth             int    `mapstructure:"window_width"`
	WindowHeight            int    `mapstructure:"window_height"`
	StartTimeoutSec         int    `mapstructure:"start_timeout_sec"`
	MinNavigationIntervalMS int    `mapstructure:"min_navigation_interval_ms"`
}

type Source struct {
	SearchURL          string `mapstructure:"search_url"`
	NavigateTimeoutSec int    `mapstructure:"navigate_timeout_sec"`
	RenderTimeoutSec   int    `mapstructure:"render_timeout_sec"`
	SettleMS           int    `mapstructure:"settle_ms"`
	Attempts           int    `mapstructure:"attempts"`
}

type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

type Config struct {
	Browser Browser `mapstructure:"browser"`
	Source  Source  `mapstructure:"source"`
	Logger  Logger  `mapstructure:"logger"`
}

func Default() Config {
	return Config{
		Browser: Browser{
			Headless:                true,
			AcceptLanguage:          "zh-CN,zh;q=0.9,en;q=0.8",
			WindowWidth:             1366,
			WindowHeight:            900,
			StartTimeoutSec:         20,
			MinNavigationIntervalMS: 500,
		},
		Source: Source{
			SearchURL:          "https://so.eastmoney.com/web/s",
			NavigateTimeoutSec: 30,
			RenderTimeoutSec:   15,
			SettleMS:           1500,
			Attempts:           2,
		},
		Logger: Logger{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load reads configuration in this order of precedence: environment
// variables, the config file at path, a .env file in the working directory,
// then defaults. An empty path falls back to $CONFIG_FILE and then to
// config.json or config.yaml in the working directory. A missing file is not
// an error.
func Load(path string) (Config, error) {
	// .env only feeds the environment; real variables win.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Default(), fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Default(), fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("browser.exec_path", d.Browser.ExecPath)
	v.SetDefault("browser.remote_url", d.Browser.RemoteURL)
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.no_sandbox", d.Browser.NoSandbox)
	v.SetDefault("browser.user_agent", d.Browser.UserAgent)
	v.SetDefault("browser.accept_language", d.Browser.AcceptLanguage)
	v.SetDefault("browser.window_width", d.Browser.WindowWidth)
	v.SetDefault("browser.window_height", d.Browser.WindowHeight)
	v.SetDefault("browser.start_timeout_sec", d.Browser.StartTimeoutSec)
	v.SetDefault("browser.min_navigation_interval_ms", d.Browser.MinNavigationIntervalMS)

	v.SetDefault("source.search_url", d.Source.SearchURL)
	v.SetDefault("source.navigate_timeout_sec", d.Source.NavigateTimeoutSec)
	v.SetDefault("source.render_timeout_sec", d.Source.RenderTimeoutSec)
	v.SetDefault("source.settle_ms", d.Source.SettleMS)
	v.SetDefault("source.attempts", d.Source.Attempts)

	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
}

// Validate rejects values no lookup could run with.
func (c Config) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	positive("browser.start_timeout_sec", c.Browser.StartTimeoutSec)
	positive("browser.window_width", c.Browser.WindowWidth)
	positive("browser.window_height", c.Browser.WindowHeight)
	positive("source.navigate_timeout_sec", c.Source.NavigateTimeoutSec)
	positive("source.render_timeout_sec", c.Source.RenderTimeoutSec)
	if c.Browser.MinNavigationIntervalMS < 0 {
		errs = append(errs, fmt.Errorf("browser.min_navigation_interval_ms must not be negative, got %d", c.Browser.MinNavigationIntervalMS))
	}
	if c.Source.SettleMS < 0 {
		errs = append(errs, fmt.Errorf("source.settle_ms must not be negative, got %d", c.Source.SettleMS))
	}
	if c.Source.Attempts < 1 {
		errs = append(errs, fmt.Errorf("source.attempts must be at least 1, got %d", c.Source.Attempts))
	}
	if u, err := url.Parse(c.Source.SearchURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("source.search_url must be an absolute URL, got %q", c.Source.SearchURL))
	}
	if _, err := parseLevel(c.Logger.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (b Browser) StartTimeout() time.Duration {
	return time.Duration(b.StartTimeoutSec) * time.Second
}

func (b Browser) MinNavigationInterval() time.Duration {
	return time.Duration(b.MinNavigationIntervalMS) * time.Millisecond
}

func (s Source) NavigateTimeout() time.Duration {
	return time.Duration(s.NavigateTimeoutSec) * time.Second
}

func (s Source) RenderTimeout() time.Duration {
	return time.Duration(s.RenderTimeoutSec) * time.Second
}

func (s Source) Settle() time.Duration {
	return time.Duration(s.SettleMS) * time.Millisecond
}
