package engine

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/macroviewer/pkg/dataset"
	"github.com/matzehuels/macroviewer/pkg/edges"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/filter"
	"github.com/matzehuels/macroviewer/pkg/index"
	"github.com/matzehuels/macroviewer/pkg/layout"
	"github.com/matzehuels/macroviewer/pkg/lens"
	"github.com/matzehuels/macroviewer/pkg/observability"
)

// DefaultViewport is the drawing area used when none is configured.
var DefaultViewport = layout.Viewport{Width: 1440, Height: 900}

// Options configures a Controller.
type Options struct {
	Viewport     layout.Viewport
	SettleWindow time.Duration
	// TickInterval > 0 runs the layout in the background; zero leaves the
	// simulation to Settle/Step (headless rendering).
	TickInterval time.Duration
	Seed         int64
	Logger       *log.Logger
	// State overrides the initial filter state.
	State *filter.State
	// OnTick receives every background layout tick.
	OnTick func(layout.Snapshot)
	// Now is the clock behind the "last updated" fallback.
	Now func() time.Time
}

// Controller is one live view over a dataset. It is the single writer of
// its filter state and of its layout; all methods are safe for concurrent
// use.
type Controller struct {
	data   *dataset.Dataset
	index  *index.Index
	driver *layout.Driver
	logger *log.Logger
	vp     layout.Viewport
	now    func() time.Time

	mu     sync.Mutex
	state  filter.State
	pass   pass
	effect filter.Effect
}

// pass is the derived view of one state. members is computed once and
// shared by the link filter and the lens.
type pass struct {
	members index.Set
	active  []*index.BlocEntry
	visible []dataset.Link
	styled  lens.Result
}

// New builds the index for d and runs the initial render pass. A nil
// dataset is logged and reported as DATASET_MISSING.
func New(d *dataset.Dataset, opts Options) (*Controller, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if d == nil {
		logger.Error("dataset object is absent, viewer not initialised")
		return nil, errors.New(errors.ErrCodeDatasetMissing, "dataset is absent")
	}
	vp := opts.Viewport
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = DefaultViewport
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Controller{
		data:   d,
		index:  index.Build(d),
		logger: logger,
		vp:     vp,
		now:    now,
		state:  filter.Default(d),
	}
	c.driver = layout.NewDriver(layout.Options{
		Viewport:     vp,
		SettleWindow: opts.SettleWindow,
		TickInterval: opts.TickInterval,
		Seed:         opts.Seed,
		Logger:       logger,
		OnTick:       opts.OnTick,
	})
	if opts.State != nil {
		c.state = opts.State.Clone()
	}

	c.mu.Lock()
	c.apply(context.Background(), filter.EffectRebuild)
	c.mu.Unlock()
	logger.Debug("viewer initialised", "nodes", len(d.Nodes), "links", len(d.Links), "year", c.state.Year)
	return c, nil
}

// Dataset returns the dataset the controller renders.
func (c *Controller) Dataset() *dataset.Dataset { return c.data }

// Index returns the precomputed bloc and sector index.
func (c *Controller) Index() *index.Index { return c.index }

// Driver returns the layout driver.
func (c *Controller) Driver() *layout.Driver { return c.driver }

// State returns a copy of the current filter state.
func (c *Controller) State() filter.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Dispatch applies one action and returns the resulting frame. Invalid
// actions leave the view untouched and return an INVALID_ACTION error.
func (c *Controller) Dispatch(ctx context.Context, a filter.Action) (Frame, error) {
	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if a.Kind.IsDrag() {
		err := c.drag(a)
		observability.Engine().OnDispatch(ctx, string(a.Kind), filter.EffectNone.String(), time.Since(start), err)
		if err != nil {
			return Frame{}, err
		}
		c.effect = filter.EffectNone
		return c.frameLocked(), nil
	}

	next, effect, err := filter.Reduce(c.data, c.state, a)
	observability.Engine().OnDispatch(ctx, string(a.Kind), effect.String(), time.Since(start), err)
	if err != nil {
		c.logger.Debug("action rejected", "kind", a.Kind, "err", err)
		return Frame{}, err
	}
	c.state = next
	c.apply(ctx, effect)
	c.logger.Debug("action applied", "kind", a.Kind, "effect", effect)
	return c.frameLocked(), nil
}

// Frame returns the current frame without changing anything.
func (c *Controller) Frame() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameLocked()
}

// Settle runs the layout to rest synchronously and returns the tick count.
func (c *Controller) Settle() int { return c.driver.Settle() }

// Restore places nodes at previously settled positions and halts the
// layout. It returns the number of nodes placed.
func (c *Controller) Restore(positions []layout.Position) int {
	return c.driver.Restore(positions)
}

// Close halts the layout.
func (c *Controller) Close() { c.driver.Stop() }

// apply performs the work an effect requires. Callers hold c.mu.
func (c *Controller) apply(ctx context.Context, effect filter.Effect) {
	c.effect = effect
	switch effect {
	case filter.EffectRebuild:
		c.pass = c.compute()
		specs := make([]layout.NodeSpec, len(c.pass.styled.Nodes))
		for i, n := range c.pass.styled.Nodes {
			specs[i] = layout.NodeSpec{ID: n.ISO2, Radius: n.DisplayZ}
		}
		links := make([]layout.EdgeSpec, len(c.pass.visible))
		for i, l := range c.pass.visible {
			links[i] = layout.EdgeSpec{Source: l.Source, Target: l.Target, V: l.V}
		}
		gen := c.driver.Rebuild(specs, links)
		observability.Engine().OnRebuild(ctx, gen, len(specs), len(links))
	case filter.EffectRestyle:
		c.pass = c.compute()
		c.driver.Retune(c.pass.styled.Radii())
	}
}

// compute runs the link filter and the lens for the current state.
func (c *Controller) compute() pass {
	var p pass
	if c.state.BlocFiltered() {
		p.active = c.index.ActiveBlocs(c.state.Blocs)
		p.members = c.index.MemberSet(c.state.Blocs, c.state.Mode)
	}
	p.visible = edges.Filter(c.data.Links, c.state, p.members)

	in := lens.Input{
		Nodes:   c.data.Nodes,
		Links:   p.visible,
		Sector:  c.state.Sector,
		Index:   c.index,
		Active:  p.active,
		Members: p.members,
	}
	if c.state.SectorLens() {
		in.Table = c.index.Sector(c.state.Year, c.state.Sector)
	}
	p.styled = lens.Resolve(in)
	return p
}

// highlighted returns the styled pass with the focus highlight applied,
// leaving the cached pass untouched.
func (c *Controller) highlighted() lens.Result {
	r := c.pass.styled
	r.Nodes = slices.Clone(r.Nodes)
	r.Links = slices.Clone(r.Links)
	r.Leaders = slices.Clone(r.Leaders)
	lens.Highlight(&r, c.state.Focus())
	return r
}

func (c *Controller) drag(a filter.Action) error {
	var ok bool
	switch a.Kind {
	case filter.KindDragStart:
		ok = c.driver.DragStart(a.ISO2)
	case filter.KindDragMove:
		ok = c.driver.DragMove(a.ISO2, a.X, a.Y)
	case filter.KindDragEnd:
		ok = c.driver.DragEnd(a.ISO2)
	}
	if !ok {
		return errors.New(errors.ErrCodeInvalidAction, "cannot drag %q", a.ISO2)
	}
	return nil
}
