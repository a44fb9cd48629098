// Package config loads slip-report settings from a YAML file, SLIPREPORT_*
// environment variables and built-in defaults, in that order of precedence
// reversed: environment beats file beats default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sternrassler/alma-slip-report/pkg/columns"
)

// FallbackCircDesk is used when neither the run nor the library
// configuration names a circulation desk.
const FallbackCircDesk = "DEFAULT_CIRC_DESK"

// MaxPageSize is the largest page Alma's task list accepts.
const MaxPageSize = 100

// Config is the full application configuration.
type Config struct {
	Alma      AlmaConfig      `mapstructure:"alma" yaml:"alma"`
	Report    ReportConfig    `mapstructure:"report" yaml:"report"`
	Libraries []LibraryConfig `mapstructure:"libraries" yaml:"libraries,omitempty"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" yaml:"ratelimit"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Serve     ServeConfig     `mapstructure:"serve" yaml:"serve"`
}

// AlmaConfig holds API access settings.
type AlmaConfig struct {
	APIBase        string        `mapstructure:"api_base" yaml:"api_base"`
	APIKey         string        `mapstructure:"api_key" yaml:"-"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency" yaml:"max_concurrency"`
}

// ReportConfig holds the default report selection.
type ReportConfig struct {
	Library         string   `mapstructure:"library" yaml:"library"`
	CircDesk        string   `mapstructure:"circ_desk" yaml:"circ_desk,omitempty"`
	PageSize        int      `mapstructure:"page_size" yaml:"page_size"`
	GroupByLocation bool     `mapstructure:"group_by_location" yaml:"group_by_location"`
	Columns         []string `mapstructure:"columns" yaml:"columns"`
}

// LibraryConfig overrides settings for one library.
type LibraryConfig struct {
	Code            string `mapstructure:"code" yaml:"code"`
	DefaultCircDesk string `mapstructure:"default_circ_desk" yaml:"default_circ_desk"`
}

// RedisConfig enables the shared quota gate and configuration cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr,omitempty"`
	Password string `mapstructure:"password" yaml:"-"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// RateLimitConfig holds the daily quota thresholds.
type RateLimitConfig struct {
	Critical int `mapstructure:"critical" yaml:"critical"`
	Warning  int `mapstructure:"warning" yaml:"warning"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "slip-report", "config.yml")
}

// Path resolves the config file: path itself, else SLIPREPORT_CONFIG, else
// DefaultPath.
func Path(path string) string {
	if path == "" {
		path = os.Getenv("SLIPREPORT_CONFIG")
	}
	if path == "" {
		path = DefaultPath()
	}
	return path
}

// Load reads the config from path, or from SLIPREPORT_CONFIG or the
// default path when path is empty. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("alma.api_base", "https://api-eu.hosted.exlibrisgroup.com")
	v.SetDefault("alma.api_key", "")
	v.SetDefault("alma.timeout", 30*time.Second)
	v.SetDefault("alma.max_concurrency", 10)
	v.SetDefault("report.library", "")
	v.SetDefault("report.circ_desk", "")
	v.SetDefault("report.page_size", MaxPageSize)
	v.SetDefault("report.group_by_location", false)
	v.SetDefault("report.columns", columns.DefaultCodes)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.critical", 1000)
	v.SetDefault("ratelimit.warning", 10000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("serve.addr", "127.0.0.1:8080")

	v.SetEnvPrefix("SLIPREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(Path(path))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first setting that would make a run fail.
func (c *Config) Validate() error {
	if c.Alma.APIBase == "" {
		return errors.New("alma.api_base is required")
	}
	if c.Alma.APIKey == "" {
		return errors.New("alma.api_key is required (set SLIPREPORT_ALMA_API_KEY)")
	}
	if c.Alma.MaxConcurrency < 1 {
		return fmt.Errorf("alma.max_concurrency must be at least 1, got %d", c.Alma.MaxConcurrency)
	}
	if c.Report.PageSize < 1 || c.Report.PageSize > MaxPageSize {
		return fmt.Errorf("report.page_size must be between 1 and %d, got %d", MaxPageSize, c.Report.PageSize)
	}
	if _, err := columns.ParseOptions(c.Report.Columns); err != nil {
		return fmt.Errorf("report.columns: %w", err)
	}
	for _, lib := range c.Libraries {
		if lib.Code == "" {
			return errors.New("libraries: entry without code")
		}
	}
	return nil
}

// DefaultCircDesk returns the configured default circulation desk for a
// library, or FallbackCircDesk.
func (c *Config) DefaultCircDesk(library string) string {
	for _, lib := range c.Libraries {
		if lib.Code == library && strings.TrimSpace(lib.DefaultCircDesk) != "" {
			return strings.TrimSpace(lib.DefaultCircDesk)
		}
	}
	return FallbackCircDesk
}

// CircDeskFor returns desk when set, otherwise the library's default.
func (c *Config) CircDeskFor(library, desk string) string {
	if d := strings.TrimSpace(desk); d != "" {
		return d
	}
	return c.DefaultCircDesk(library)
}
