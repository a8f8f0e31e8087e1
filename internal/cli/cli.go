// Package cli implements the macroviewer command-line interface.
//
// # Commands
//
//   - render: settle a view headlessly and write svg, json, dot, dot-svg, pdf or png
//   - layout: settled node positions as JSON
//   - inspect: stats, legend, top-10 or a country panel as tables
//   - validate: normalization report and the strict data contract
//   - serve: HTTP API and websocket viewer sessions
//   - tui: interactive filter console
//   - config, cache, completion: housekeeping
//
// Filter flags (--year, --direction, --threshold, --sector, --bloc,
// --bloc-mode, --bloc-scope, --lock) are shared by render, layout and
// inspect. They become engine actions, so a view built on the command
// line is the same view the browser reaches through clicks.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/macroviewer/pkg/buildinfo"
	"github.com/matzehuels/macroviewer/pkg/cache"
	"github.com/matzehuels/macroviewer/pkg/config"
	"github.com/matzehuels/macroviewer/pkg/httputil"
	"github.com/matzehuels/macroviewer/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "macroviewer"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is the --config flag; Config is loaded before any command
	// runs.
	configPath string
	Config     *config.Config
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner over the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	store, err := c.openCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(store, nil, c.Logger), nil
}

// openCache opens the configured backend. An unreachable backend degrades
// to no caching with a warning, since every command works without one.
func (c *CLI) openCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	store, err := cache.Open(ctx, c.Config.CacheOptions())
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "backend", c.Config.Cache.Backend, "err", err)
		return cache.NewNullCache(), nil
	}
	return store, nil
}

// newClient returns the snapshot client for remote datasets, storing
// snapshots in store.
func (c *CLI) newClient(store cache.Cache) *httputil.Client {
	client := httputil.NewClient(httputil.NewCache(store, cache.TTLHTTP))
	client.Logger = c.Logger
	client.UserAgent = buildinfo.UserAgent()
	client.Refresh = c.Config.Data.Refresh
	return client
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the file cache directory: the configured one, else
// ~/.cache/macroviewer.
func (c *CLI) cacheDir() string {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir
	}
	return cache.DefaultDir()
}

// source resolves the dataset argument, falling back to data.source.
func (c *CLI) source(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if c.Config.Data.Source != "" {
		return c.Config.Data.Source, nil
	}
	return "", errNoSource
}
