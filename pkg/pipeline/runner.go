package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/macroviewer/pkg/cache"
	"github.com/matzehuels/macroviewer/pkg/engine"
	"github.com/matzehuels/macroviewer/pkg/io"
	"github.com/matzehuels/macroviewer/pkg/layout"
	"github.com/matzehuels/macroviewer/pkg/observability"
	"github.com/matzehuels/macroviewer/pkg/render"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Settled is a controller whose layout has come to rest.
type Settled struct {
	Controller *engine.Controller
	// LayoutHash identifies dataset, state and positions together.
	LayoutHash string
	Ticks      int
	Hit        bool
}

// Execute runs the complete load → layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	// Stage 1: Load
	loadStart := time.Now()
	loaded, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result := &Result{DatasetHash: loaded.Hash}
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.NodeCount = len(loaded.Dataset.Nodes)

	r.Logger.Info("loaded dataset",
		"nodes", len(loaded.Dataset.Nodes),
		"links", len(loaded.Dataset.Links),
		"duration", result.Stats.LoadTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	settled, err := r.Settle(ctx, loaded, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	defer settled.Controller.Close()
	result.Frame = settled.Controller.Frame()
	result.LayoutHash = settled.LayoutHash
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.LinkCount = result.Frame.Stats.Links
	result.Stats.Ticks = settled.Ticks
	result.CacheInfo.LayoutHit = settled.Hit

	r.Logger.Info("settled layout",
		"ticks", settled.Ticks,
		"cached", settled.Hit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, result.Frame, settled.LayoutHash, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Load reads the dataset named by opts.Source.
func (r *Runner) Load(ctx context.Context, opts Options) (*io.Loaded, error) {
	client := opts.Client
	if client != nil && opts.Refresh && !client.Refresh {
		c := *client
		c.Refresh = true
		client = &c
	}
	loaded, err := io.Load(ctx, opts.Source, client)
	if err != nil {
		return nil, err
	}
	if loaded.Stale != nil {
		r.Logger.Warn("using cached dataset snapshot", "source", opts.Source, "err", loaded.Stale)
	}
	if !loaded.Report.Clean() {
		r.Logger.Warn("dataset repaired during normalization", "report", fmt.Sprintf("%+v", loaded.Report))
	}
	return loaded, nil
}

// Settle builds a controller for loaded, dispatches opts.Actions and
// brings the layout to rest, either from cached positions or by running
// the simulation for opts.Ticks ticks. The caller must Close the
// returned controller.
func (r *Runner) Settle(ctx context.Context, loaded *io.Loaded, opts Options) (*Settled, error) {
	r.applyLogger(&opts)
	opts.SetLayoutDefaults()

	c, err := engine.New(loaded.Dataset, engine.Options{
		Viewport: opts.Viewport(),
		Seed:     opts.Seed,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	for _, a := range opts.Actions {
		if _, err := c.Dispatch(ctx, a); err != nil {
			c.Close()
			return nil, fmt.Errorf("action %s: %w", a.Kind, err)
		}
	}

	key := r.Keyer.LayoutKey(loaded.Hash, opts.LayoutKeyOpts(c.State()))
	hooks := observability.Cache()

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var positions []layout.Position
			if err := json.Unmarshal(data, &positions); err == nil && c.Restore(positions) == len(positions) {
				hooks.OnCacheHit(ctx, "layout")
				return &Settled{Controller: c, LayoutHash: layoutHash(key, data), Hit: true}, nil
			}
			r.Logger.Debug("discarding stale layout cache entry", "key", key)
		}
	}
	hooks.OnCacheMiss(ctx, "layout")

	pipe := observability.Pipeline()
	nodes := len(loaded.Dataset.Nodes)
	pipe.OnLayoutStart(ctx, nodes)
	start := time.Now()
	ticks := c.Driver().Step(opts.Ticks)
	c.Driver().Stop()
	pipe.OnLayoutComplete(ctx, ticks, time.Since(start), nil)

	data, err := json.Marshal(c.Driver().Positions())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("serialize positions: %w", err)
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLLayout); err != nil {
		r.Logger.Warn("layout cache write failed", "err", err)
	} else {
		hooks.OnCacheSet(ctx, "layout", len(data))
	}
	return &Settled{Controller: c, LayoutHash: layoutHash(key, data), Ticks: ticks}, nil
}

// RenderWithCacheInfo renders every format of opts for f with caching and
// reports whether all artifacts came from the cache. Only the formats
// missing from the cache are rendered.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, f engine.Frame, layoutHash string, opts Options) (map[render.Format][]byte, bool, error) {
	if err := opts.SetRenderDefaults(); err != nil {
		return nil, false, err
	}
	hooks := observability.Cache()

	artifacts := make(map[render.Format][]byte, len(opts.Formats))
	var missing []render.Format
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if !opts.Refresh && layoutHash != "" {
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				hooks.OnCacheHit(ctx, "artifact")
				artifacts[format] = data
				continue
			}
		}
		hooks.OnCacheMiss(ctx, "artifact")
		missing = append(missing, format)
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	rendered, err := Render(ctx, f, missing, opts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		artifacts[format] = data
		if layoutHash == "" {
			continue
		}
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			hooks.OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return artifacts, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func layoutHash(key string, positions []byte) string {
	return cache.Hash(append([]byte(key+"\n"), positions...))
}
