// Package config loads macroviewer settings.
//
// Sources are layered in order: built-in defaults, an optional file
// (TOML or YAML, chosen by extension), then MACROVIEWER_* environment
// variables. A double underscore separates the section from the key:
//
//	MACROVIEWER_DATA__SOURCE=https://example.org/macro.json
//	MACROVIEWER_SERVER__SESSION_TTL=2h
//	MACROVIEWER_SERVER__ALLOWED_ORIGINS=https://a.example,https://b.example
//
// Durations are Go duration strings ("7s", "16ms").
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/matzehuels/macroviewer/pkg/cache"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/layout"
	"github.com/matzehuels/macroviewer/pkg/server"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MACROVIEWER_"

// FileNames are searched, in order, when no config path is given.
var FileNames = []string{"macroviewer.toml", "macroviewer.yaml", "macroviewer.yml"}

// Config is the full configuration.
type Config struct {
	Data   DataConfig   `yaml:"data" toml:"data" koanf:"data"`
	View   ViewConfig   `yaml:"view" toml:"view" koanf:"view"`
	Server ServerConfig `yaml:"server" toml:"server" koanf:"server"`
	Cache  CacheConfig  `yaml:"cache" toml:"cache" koanf:"cache"`
	Log    LogConfig    `yaml:"log" toml:"log" koanf:"log"`
}

// DataConfig locates the dataset.
type DataConfig struct {
	// Source is a file path or http(s) URL.
	Source string `yaml:"source" toml:"source" koanf:"source"`
	// Watch reloads the dataset when it changes while serving.
	Watch bool `yaml:"watch" toml:"watch" koanf:"watch"`
	// Refresh skips fresh cached snapshots of remote sources.
	Refresh bool `yaml:"refresh" toml:"refresh" koanf:"refresh"`
	// PollInterval paces remote reload checks.
	PollInterval Duration `yaml:"poll_interval" toml:"poll_interval" koanf:"poll_interval" validate:"min=0"`
}

// ViewConfig sizes and paces the layout.
type ViewConfig struct {
	Width        float64  `yaml:"width" toml:"width" koanf:"width" validate:"gt=0"`
	Height       float64  `yaml:"height" toml:"height" koanf:"height" validate:"gt=0"`
	SettleWindow Duration `yaml:"settle_window" toml:"settle_window" koanf:"settle_window" validate:"gt=0"`
	TickInterval Duration `yaml:"tick_interval" toml:"tick_interval" koanf:"tick_interval" validate:"gt=0"`
	// Seed fixes the initial placement; 0 picks a time-based seed.
	Seed int64 `yaml:"seed" toml:"seed" koanf:"seed"`
	// Ticks is the headless settle budget of render and layout.
	Ticks int `yaml:"ticks" toml:"ticks" koanf:"ticks" validate:"gt=0"`
}

// ServerConfig configures serve.
type ServerConfig struct {
	Addr           string   `yaml:"addr" toml:"addr" koanf:"addr" validate:"required,hostname_port"`
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins" koanf:"allowed_origins" validate:"dive,required"`
	SessionTTL     Duration `yaml:"session_ttl" toml:"session_ttl" koanf:"session_ttl" validate:"gt=0"`
	Metrics        bool     `yaml:"metrics" toml:"metrics" koanf:"metrics"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend   string `yaml:"backend" toml:"backend" koanf:"backend" validate:"oneof=file redis none"`
	Dir       string `yaml:"dir,omitempty" toml:"dir,omitempty" koanf:"dir"`
	RedisURL  string `yaml:"redis_url,omitempty" toml:"redis_url,omitempty" koanf:"redis_url" validate:"required_if=Backend redis"`
	RedisDB   int    `yaml:"redis_db" toml:"redis_db" koanf:"redis_db" validate:"min=0"`
	KeyPrefix string `yaml:"key_prefix" toml:"key_prefix" koanf:"key_prefix"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level" toml:"level" koanf:"level" validate:"oneof=debug info warn error"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Data: DataConfig{PollInterval: Duration(5 * time.Minute)},
		View: ViewConfig{
			Width:        1440,
			Height:       900,
			SettleWindow: Duration(layout.DefaultSettleWindow),
			TickInterval: Duration(layout.DefaultTickInterval),
			Seed:         42,
			Ticks:        300,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			SessionTTL:     Duration(24 * time.Hour),
			Metrics:        true,
		},
		Cache: CacheConfig{Backend: cache.BackendFile, KeyPrefix: "macroviewer:"},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads configuration from path over the defaults, then applies
// environment overrides. An empty path searches [FileNames] in the
// working directory and then in the user config directory; finding none
// is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path == "" {
		path = Find()
	} else if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "config %s", path)
	}
	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "reading config %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "unmarshalling config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps MACROVIEWER_SERVER__SESSION_TTL to server.session_ttl.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported config format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
}

// Find returns the first existing default config file, or "".
func Find() string {
	dirs := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(dir, "macroviewer"))
	}
	for _, dir := range dirs {
		for _, name := range FileNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.ErrCodeInternal, err, "validate config")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
	}
	return errors.New(errors.ErrCodeInvalidInput, "invalid config: %s", strings.Join(msgs, "; "))
}

// Save writes c to path as YAML, or TOML for a .toml path.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		data, err = marshalTOML(c)
	} else {
		data, err = yamlv3.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Viewport returns the layout viewport.
func (c *Config) Viewport() layout.Viewport {
	return layout.Viewport{Width: c.View.Width, Height: c.View.Height}
}

// ServerConfig returns the settings of serve.
func (c *Config) ServerConfig() server.Config {
	return server.Config{
		Addr:           c.Server.Addr,
		AllowedOrigins: c.Server.AllowedOrigins,
		SessionTTL:     c.Server.SessionTTL.D(),
		Viewport:       c.Viewport(),
		SettleWindow:   c.View.SettleWindow.D(),
		TickInterval:   c.View.TickInterval.D(),
		Seed:           c.View.Seed,
	}
}

// CacheOptions returns the options for [cache.Open].
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend: c.Cache.Backend,
		Dir:     c.Cache.Dir,
		Redis: cache.RedisOptions{
			URL:    c.Cache.RedisURL,
			DB:     c.Cache.RedisDB,
			Prefix: c.Cache.KeyPrefix,
		},
	}
}
