package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"quotecollector/internal/fetcher"
	"quotecollector/internal/writer"
	"quotecollector/internal/yahoo"
)

// Config holds all configuration for the quote collector.
type Config struct {
	// What to collect
	Tickers   []string `mapstructure:"tickers"`
	StartDate string   `mapstructure:"start_date"`
	EndDate   string   `mapstructure:"end_date"`
	Interval  string   `mapstructure:"interval"`

	// Where rows are appended
	OutputPath string `mapstructure:"output_path"`

	// Quote service access (base URL configurable for testing)
	BaseURL           string  `mapstructure:"base_url"`
	UserAgent         string  `mapstructure:"user_agent"`
	Workers           int     `mapstructure:"workers"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	LogLevel string `mapstructure:"log_level"`
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// flag name -> config key
var flagKeys = map[string]string{
	"tickers":   "tickers",
	"start":     "start_date",
	"end":       "end_date",
	"interval":  "interval",
	"output":    "output_path",
	"workers":   "workers",
	"log-level": "log_level",
}

// Flags returns the command-line flags understood by Load.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("quotecollector", pflag.ContinueOnError)
	fs.StringP("config", "c", "", "path to a YAML config file")
	fs.StringSlice("tickers", nil, "comma-separated ticker symbols")
	fs.String("start", "", "range start, DD.MM.YY")
	fs.String("end", "", "range end, DD.MM.YY")
	fs.String("interval", "", "sampling interval (1d, 1wk, 1mo, ...)")
	fs.StringP("output", "o", "", "CSV file to append to")
	fs.Int("workers", 0, "maximum concurrent requests")
	fs.String("log-level", "", "debug, info, warn or error")
	return fs
}

// Load reads configuration from flags, environment variables, an optional
// config file and built-in defaults, in that order of precedence.
// fs may be nil.
//
// Recognised environment variables:
//   - QUOTES_TICKERS (comma-separated)
//   - QUOTES_START_DATE, QUOTES_END_DATE (DD.MM.YY)
//   - QUOTES_INTERVAL
//   - QUOTES_OUTPUT_PATH
//   - QUOTES_BASE_URL (optional, defaults to production)
//   - QUOTES_USER_AGENT
//   - QUOTES_WORKERS
//   - QUOTES_REQUESTS_PER_SECOND (0 = unlimited)
//   - QUOTES_LOG_LEVEL
//
// A .env file in the working directory is loaded first if present; it never
// overrides variables that are already set.
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Defaults reproduce a plain run: three tickers, weekly closes, Feb-Mar 2025
	v.SetDefault("tickers", []string{"AAPL", "MSFT", "GOOGL"})
	v.SetDefault("start_date", "02.02.25")
	v.SetDefault("end_date", "20.03.25")
	v.SetDefault("interval", "1wk")
	v.SetDefault("output_path", writer.DefaultPath)
	v.SetDefault("base_url", yahoo.DefaultBaseURL)
	v.SetDefault("user_agent", fetcher.DefaultUserAgent)
	v.SetDefault("workers", 5)
	v.SetDefault("requests_per_second", 0)
	v.SetDefault("log_level", "info")

	// Config file: explicit --config, otherwise optional config.yaml
	configFile := ""
	if fs != nil {
		configFile, _ = fs.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.quotecollector")

		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables
	v.BindEnv("tickers", "QUOTES_TICKERS")
	v.BindEnv("start_date", "QUOTES_START_DATE")
	v.BindEnv("end_date", "QUOTES_END_DATE")
	v.BindEnv("interval", "QUOTES_INTERVAL")
	v.BindEnv("output_path", "QUOTES_OUTPUT_PATH")
	v.BindEnv("base_url", "QUOTES_BASE_URL")
	v.BindEnv("user_agent", "QUOTES_USER_AGENT")
	v.BindEnv("workers", "QUOTES_WORKERS")
	v.BindEnv("requests_per_second", "QUOTES_REQUESTS_PER_SECOND")
	v.BindEnv("log_level", "QUOTES_LOG_LEVEL")

	// Bind flags; only flags set on the command line take effect
	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Tickers = cleanTickers(config.Tickers)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var problems []string
	if len(c.Tickers) == 0 {
		problems = append(problems, "tickers is empty")
	}
	if c.Interval == "" {
		problems = append(problems, "interval is empty")
	}
	if c.OutputPath == "" {
		problems = append(problems, "output_path is empty")
	}
	if c.BaseURL == "" {
		problems = append(problems, "base_url is empty")
	}
	if c.Workers < 1 {
		problems = append(problems, fmt.Sprintf("workers must be at least 1, got %d", c.Workers))
	}
	if c.RequestsPerSecond < 0 {
		problems = append(problems, "requests_per_second must not be negative")
	}
	if _, err := c.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// cleanTickers trims whitespace and drops empty entries, keeping order.
func cleanTickers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
