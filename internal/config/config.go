package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/star/conjunct/internal/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONJUNCT"

// Default values.
const (
	DefaultAddr        = ":8080"
	DefaultTLEDir      = "tle"
	DefaultMaxBackups  = 3
	DefaultWindowHours = 24.0
	DefaultStepMinutes = 5.0
	DefaultMaxSamples  = 7 * 24 * 60
	DefaultTimeout     = 30 * time.Second
	DefaultLogLevel    = "info"
)

// maxWindowHours matches the longest window a prediction accepts.
const maxWindowHours = 366 * 24

// Config is the full service configuration.
type Config struct {
	HTTP        HTTPConfig        `mapstructure:"http" yaml:"http"`
	Auth        AuthConfig        `mapstructure:"auth" yaml:"auth"`
	TLE         TLEConfig         `mapstructure:"tle" yaml:"tle"`
	Conjunction ConjunctionConfig `mapstructure:"conjunction" yaml:"conjunction"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

// HTTPConfig controls the API listener.
type HTTPConfig struct {
	Addr        string   `mapstructure:"addr" yaml:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`

	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	// Only enable behind a trusted reverse proxy.
	TrustProxy bool `mapstructure:"trust_proxy" yaml:"trust_proxy"`
}

// AuthConfig guards mutating endpoints with a bearer token.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Token   string `mapstructure:"token" yaml:"token"`
}

// TLEConfig describes the catalog sources.
type TLEConfig struct {
	// Dir holds one <name>.tle file per source.
	Dir     string         `mapstructure:"dir" yaml:"dir"`
	Sources []SourceConfig `mapstructure:"sources" yaml:"sources"`

	// EnableFetch allows refreshes to download sources that have a URL.
	EnableFetch bool `mapstructure:"enable_fetch" yaml:"enable_fetch"`

	// Watch reloads the catalog when a source file changes on disk.
	Watch bool `mapstructure:"watch" yaml:"watch"`

	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// SourceConfig is one catalog file and its optional download URL.
type SourceConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	URL  string `mapstructure:"url" yaml:"url,omitempty"`
}

// ConjunctionConfig sets sampling defaults and per-request limits.
type ConjunctionConfig struct {
	WindowHours float64       `mapstructure:"window_hours" yaml:"window_hours"`
	StepMinutes float64       `mapstructure:"step_minutes" yaml:"step_minutes"`
	Workers     int           `mapstructure:"workers" yaml:"workers"`
	MaxSamples  int           `mapstructure:"max_samples" yaml:"max_samples"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Window returns the default window length.
func (c ConjunctionConfig) Window() time.Duration {
	return time.Duration(c.WindowHours * float64(time.Hour))
}

// Step returns the default sampling step.
func (c ConjunctionConfig) Step() time.Duration {
	return time.Duration(c.StepMinutes * float64(time.Minute))
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Default returns the built-in configuration: the CelesTrak stations and
// starlink groups in ./tle, a 24 h window at 5 min steps.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:        DefaultAddr,
			CORSOrigins: []string{"*"},
		},
		TLE: TLEConfig{
			Dir: DefaultTLEDir,
			Sources: []SourceConfig{
				{Name: "stations", URL: "https://celestrak.org/NORAD/elements/gp.php?GROUP=stations&FORMAT=tle"},
				{Name: "starlink", URL: "https://celestrak.org/NORAD/elements/gp.php?GROUP=starlink&FORMAT=tle"},
			},
			EnableFetch: true,
			MaxBackups:  DefaultMaxBackups,
		},
		Conjunction: ConjunctionConfig{
			WindowHours: DefaultWindowHours,
			StepMinutes: DefaultStepMinutes,
			MaxSamples:  DefaultMaxSamples,
			Timeout:     DefaultTimeout,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"addr":         "http.addr",
	"tle-dir":      "tle.dir",
	"watch":        "tle.watch",
	"window-hours": "conjunction.window_hours",
	"step-minutes": "conjunction.step_minutes",
	"workers":      "conjunction.workers",
	"log-level":    "log.level",
}

// RegisterFlags adds the configuration flags to fs. Flags only override the
// file and environment when set explicitly.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("addr", d.HTTP.Addr, "HTTP listen address")
	fs.String("tle-dir", d.TLE.Dir, "directory holding <source>.tle files")
	fs.Bool("watch", d.TLE.Watch, "reload the catalog when TLE files change")
	fs.Float64("window-hours", d.Conjunction.WindowHours, "default prediction window in hours")
	fs.Float64("step-minutes", d.Conjunction.StepMinutes, "default sampling step in minutes")
	fs.Int("workers", d.Conjunction.Workers, "parallel propagation workers per prediction (0 = number of CPUs)")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn, error")
}

// Load merges defaults, the YAML file at path (skipped when empty), the
// environment and any flags in fs that were set. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.cors_origins", d.HTTP.CORSOrigins)
	v.SetDefault("http.trust_proxy", d.HTTP.TrustProxy)
	v.SetDefault("auth.enabled", d.Auth.Enabled)
	v.SetDefault("auth.token", d.Auth.Token)
	v.SetDefault("tle.dir", d.TLE.Dir)
	v.SetDefault("tle.sources", d.TLE.Sources)
	v.SetDefault("tle.enable_fetch", d.TLE.EnableFetch)
	v.SetDefault("tle.watch", d.TLE.Watch)
	v.SetDefault("tle.max_backups", d.TLE.MaxBackups)
	v.SetDefault("conjunction.window_hours", d.Conjunction.WindowHours)
	v.SetDefault("conjunction.step_minutes", d.Conjunction.StepMinutes)
	v.SetDefault("conjunction.workers", d.Conjunction.Workers)
	v.SetDefault("conjunction.max_samples", d.Conjunction.MaxSamples)
	v.SetDefault("conjunction.timeout", d.Conjunction.Timeout)
	v.SetDefault("log.level", d.Log.Level)
}

// Validate checks structural constraints on the merged configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr must not be empty"))
	}
	if c.Auth.Enabled && c.Auth.Token == "" {
		errs = append(errs, errors.New("auth.token is required when auth is enabled"))
	}

	if c.TLE.Dir == "" {
		errs = append(errs, errors.New("tle.dir must not be empty"))
	}
	if c.TLE.MaxBackups < 0 {
		errs = append(errs, fmt.Errorf("tle.max_backups %d must not be negative", c.TLE.MaxBackups))
	}
	seen := make(map[string]bool, len(c.TLE.Sources))
	for i, s := range c.TLE.Sources {
		switch {
		case s.Name == "":
			errs = append(errs, fmt.Errorf("tle.sources[%d].name must not be empty", i))
		case strings.ContainsAny(s.Name, `/\`) || strings.HasPrefix(s.Name, "."):
			errs = append(errs, fmt.Errorf("tle.sources[%d].name %q is not a plain file name", i, s.Name))
		case seen[s.Name]:
			errs = append(errs, fmt.Errorf("tle.sources[%d].name %q is duplicated", i, s.Name))
		}
		seen[s.Name] = true
	}

	cj := c.Conjunction
	windowOK := cj.WindowHours > 0 && cj.WindowHours <= maxWindowHours
	stepOK := cj.StepMinutes > 0 && cj.StepMinutes <= maxWindowHours*60
	if !windowOK {
		errs = append(errs, fmt.Errorf("conjunction.window_hours %v must be in (0, %d]", cj.WindowHours, maxWindowHours))
	}
	if !stepOK {
		errs = append(errs, fmt.Errorf("conjunction.step_minutes %v must be in (0, %d]", cj.StepMinutes, maxWindowHours*60))
	}
	if cj.Workers < 0 {
		errs = append(errs, fmt.Errorf("conjunction.workers %d must not be negative", cj.Workers))
	}
	if cj.MaxSamples <= 0 {
		errs = append(errs, fmt.Errorf("conjunction.max_samples %d must be positive", cj.MaxSamples))
	} else if windowOK && stepOK && cj.Step() > 0 {
		n := cj.Window() / cj.Step()
		if cj.Window()%cj.Step() != 0 {
			n++
		}
		if int(n) > cj.MaxSamples {
			errs = append(errs, fmt.Errorf("default window needs %d samples, above conjunction.max_samples %d", int(n), cj.MaxSamples))
		}
	}
	if cj.Timeout < 0 {
		errs = append(errs, errors.New("conjunction.timeout must not be negative"))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

// YAML renders the configuration with the auth token redacted.
func (c Config) YAML() ([]byte, error) {
	if c.Auth.Token != "" {
		c.Auth.Token = "REDACTED"
	}
	return yaml.Marshal(c)
}
