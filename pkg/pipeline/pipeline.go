// Package pipeline runs the viewer headlessly: load a dataset, apply a
// filter state, settle the layout and render the frame.
//
// It is shared by the CLI commands (render, layout, inspect) and by the
// server's static render endpoint, so every entry point applies the same
// defaults and the same caching.
//
// # Stages
//
//  1. Load: read or fetch the dataset ([io.Load])
//  2. Layout: build a controller for the requested state and settle the
//     force simulation for a fixed budget
//  3. Render: write each requested format from the settled frame
//
// Settled positions are cached by (dataset hash, state, viewport, seed,
// tick budget) and artifacts by (layout hash, format, render options), so
// re-rendering an unchanged view skips the simulation entirely.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Source:  "data/macro.json",
//	    Actions: []filter.Action{{Kind: filter.KindSelectSector, Sector: "medicine"}},
//	    Formats: []render.Format{render.FormatSVG, render.FormatJSON},
//	})
//	svg := result.Artifacts[render.FormatSVG]
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/macroviewer/pkg/cache"
	"github.com/matzehuels/macroviewer/pkg/engine"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/filter"
	"github.com/matzehuels/macroviewer/pkg/httputil"
	"github.com/matzehuels/macroviewer/pkg/layout"
	"github.com/matzehuels/macroviewer/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultWidth is the default viewport width in pixels.
	DefaultWidth = 1440.0

	// DefaultHeight is the default viewport height in pixels.
	DefaultHeight = 900.0

	// DefaultSeed makes headless layouts reproducible. A live viewer uses a
	// time-based seed instead.
	DefaultSeed = int64(42)

	// DefaultTicks bounds the headless simulation. 300 ticks take alpha
	// from 1 below the 0.001 cutoff.
	DefaultTicks = 300

	// DefaultScale is the PNG resolution multiplier.
	DefaultScale = 2.0
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one headless run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options
	Source  string `json:"source"`
	Refresh bool   `json:"refresh,omitempty"`

	// Actions are dispatched in order to the initial state before the
	// layout settles.
	Actions []filter.Action `json:"actions,omitempty"`

	// Layout options
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Seed   int64   `json:"seed,omitempty"`
	Ticks  int     `json:"ticks,omitempty"`

	// Render options
	Formats []render.Format `json:"formats,omitempty"`
	Title   string          `json:"title,omitempty"`
	Panels  bool            `json:"panels,omitempty"` // header, legend and top-10 in SVG; frame panels in JSON
	Labels  bool            `json:"labels,omitempty"` // GDP line under country names
	Scale   float64         `json:"scale,omitempty"`
	// Detailed adds GDP and rank lines to Graphviz node labels.
	Detailed bool `json:"detailed,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger      `json:"-"`
	Client *httputil.Client `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// DatasetHash is the SHA-256 of the raw dataset payload.
	DatasetHash string

	// LayoutHash identifies the settled positions.
	LayoutHash string

	// Frame is the settled frame the artifacts were rendered from.
	Frame engine.Frame

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[render.Format][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	LinkCount  int
	Ticks      int
	LoadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the settled positions came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Source == "" {
		return errors.New(errors.ErrCodeInvalidInput, "dataset source is required")
	}
	o.SetLayoutDefaults()
	if err := o.SetRenderDefaults(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetLayoutDefaults fills the viewport, seed and tick budget.
func (o *Options) SetLayoutDefaults() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Ticks <= 0 {
		o.Ticks = DefaultTicks
	}
}

// SetRenderDefaults fills formats and scale and rejects unknown formats.
func (o *Options) SetRenderDefaults() error {
	if len(o.Formats) == 0 {
		o.Formats = []render.Format{render.FormatSVG}
	}
	for _, f := range o.Formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	return nil
}

// Viewport is the drawing area of the run.
func (o *Options) Viewport() layout.Viewport {
	return layout.Viewport{Width: o.Width, Height: o.Height}
}

// LayoutKeyOpts returns cache key options for the settled layout of state.
func (o *Options) LayoutKeyOpts(state filter.State) cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		State:  state.Clone(),
		Width:  o.Width,
		Height: o.Height,
		Seed:   o.Seed,
		Ticks:  o.Ticks,
	}
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(f render.Format) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: string(f)}
	switch f {
	case render.FormatDOT, render.FormatDOTSVG:
		k.Detailed = o.Detailed
	case render.FormatJSON:
		k.Panels = o.Panels
	default:
		k.Panels, k.Labels, k.Title = o.Panels, o.Labels, o.Title
		if f == render.FormatPNG {
			k.Scale = o.Scale
		}
	}
	return k
}

// ValidateFormat checks that f is a supported output format.
func ValidateFormat(f render.Format) error {
	for _, known := range render.Formats {
		if f == known {
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, json, dot, dot-svg, pdf, png)", f)
}
