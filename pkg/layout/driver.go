package layout

import (
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// State is the lifecycle of the driver's current simulation.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateRunning       State = "running"
	StateSettled       State = "settled"
)

// Driver defaults.
const (
	DefaultSettleWindow = 7 * time.Second
	DefaultTickInterval = 16 * time.Millisecond
	RestyleAlpha        = 0.16
	DragAlphaTarget     = 0.06
)

// NodeSpec describes a node for [Driver.Rebuild].
type NodeSpec struct {
	ID     string
	Radius float64
}

// EdgeSpec describes a link for [Driver.Rebuild]. Edges whose endpoints are
// not in the node set are ignored.
type EdgeSpec struct {
	Source, Target string
	V              float64
}

// Position is a read-only copy of a node's coordinates.
type Position struct {
	ID     string  `json:"iso2"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Pinned bool    `json:"pinned,omitempty"`
}

// Snapshot is a consistent copy of the driver's observable state.
type Snapshot struct {
	Generation uint64     `json:"generation"`
	State      State      `json:"state"`
	Alpha      float64    `json:"alpha"`
	Positions  []Position `json:"positions"`
}

// Options configures a Driver.
type Options struct {
	Viewport     Viewport
	SettleWindow time.Duration
	// TickInterval paces the background ticker. Zero disables it: the
	// caller advances the simulation with Step or Settle.
	TickInterval time.Duration
	Seed         int64
	Logger       *log.Logger
	// OnTick is called after every background tick, outside the lock.
	OnTick func(Snapshot)
}

// Driver owns one force simulation and keeps node positions continuous
// across rebuilds. All methods are safe for concurrent use; every write to
// positions happens under one mutex and background ticks belonging to a
// superseded run are discarded.
type Driver struct {
	opts   Options
	logger *log.Logger
	rng    *rand.Rand

	mu     sync.Mutex
	sim    *Simulation
	state  State
	gen    uint64 // bumped by Rebuild
	run    uint64 // bumped by every start and halt
	stop   chan struct{}
	settle *time.Timer
	radius func(Node) float64
	prior  map[string][2]float64
}

// NewDriver returns an uninitialized driver.
func NewDriver(opts Options) *Driver {
	if opts.SettleWindow <= 0 {
		opts.SettleWindow = DefaultSettleWindow
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Driver{
		opts:   opts,
		logger: logger,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		state:  StateUninitialized,
		prior:  make(map[string][2]float64),
	}
}

// Rebuild replaces the simulated graph. Nodes that had a finite position
// before keep it exactly; new nodes are seeded in the central band of the
// viewport. Any running simulation and pending settle timer of the old
// graph are cancelled first. It returns the new generation.
func (d *Driver) Rebuild(nodes []NodeSpec, edges []EdgeSpec) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.haltLocked()
	d.captureLocked()
	d.gen++

	vp := d.opts.Viewport
	simNodes := make([]Node, len(nodes))
	index := make(map[string]int, len(nodes))
	seeded := 0
	for i, spec := range nodes {
		n := Node{ID: spec.ID, Radius: spec.Radius}
		if p, ok := d.prior[spec.ID]; ok && finite(p[0]) && finite(p[1]) {
			n.X, n.Y = p[0], p[1]
		} else {
			n.X = vp.Width*0.1 + d.rng.Float64()*vp.Width*0.8
			n.Y = vp.Height*0.2 + d.rng.Float64()*vp.Height*0.6
			seeded++
		}
		simNodes[i] = n
		index[spec.ID] = i
	}
	simEdges := make([]Edge, 0, len(edges))
	for _, e := range edges {
		s, okS := index[e.Source]
		t, okT := index[e.Target]
		if !okS || !okT || s == t {
			continue
		}
		simEdges = append(simEdges, Edge{Source: s, Target: t, V: e.V})
	}

	d.sim = NewSimulation(simNodes, simEdges, vp, d.rng)
	installForces(d.sim, d.radius)
	d.startLocked()

	d.logger.Debug("layout rebuilt", "generation", d.gen, "nodes", len(simNodes), "edges", len(simEdges), "seeded", seeded)
	return d.gen
}

// Retune replaces the collision radii after displayed radii changed and
// reheats the simulation to alpha 0.16 without moving any node.
func (d *Driver) Retune(radii map[string]float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sim == nil {
		return
	}
	for i := range d.sim.Nodes {
		if r, ok := radii[d.sim.Nodes[i].ID]; ok {
			d.sim.Nodes[i].Radius = r
		}
	}
	d.sim.SetForce("collide", &CollideForce{Radius: d.radius})
	d.sim.Alpha = RestyleAlpha
	d.restartLocked()
}

// SetCollideRadius overrides the collision radius function for subsequent
// rebuilds and retunes. Nil restores [CollideRadius].
func (d *Driver) SetCollideRadius(fn func(Node) float64) {
	d.mu.Lock()
	d.radius = fn
	d.mu.Unlock()
}

// DragStart pins id at its current position and raises the target energy
// so neighbours react while it moves.
func (d *Driver) DragStart(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.nodeLocked(id)
	if n == nil {
		return false
	}
	n.Fixed, n.FX, n.FY = true, n.X, n.Y
	n.VX, n.VY = 0, 0
	d.sim.AlphaTarget = DragAlphaTarget
	d.restartLocked()
	return true
}

// DragMove moves the pin of id. The node is placed at the pin right away so
// a frame taken before the next tick already shows it there.
func (d *Driver) DragMove(id string, x, y float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.nodeLocked(id)
	if n == nil || !finite(x) || !finite(y) {
		return false
	}
	n.Fixed, n.FX, n.FY = true, x, y
	n.X, n.Y, n.VX, n.VY = x, y, 0, 0
	return true
}

// DragEnd releases the pin of id and lets the simulation cool again.
func (d *Driver) DragEnd(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.nodeLocked(id)
	if n == nil {
		return false
	}
	n.Fixed = false
	d.sim.AlphaTarget = 0
	return true
}

// Step advances a running simulation by up to n ticks synchronously,
// halting it once it has cooled. It returns the number of ticks taken.
func (d *Driver) Step(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sim == nil || d.state != StateRunning {
		return 0
	}
	taken := 0
	for taken < n {
		d.sim.Tick()
		taken++
		if d.sim.Done() {
			d.haltLocked()
			break
		}
	}
	return taken
}

// Settle runs the simulation synchronously to completion, bounded by the
// number of ticks the settle window allows at the default tick rate, then
// halts it.
func (d *Driver) Settle() int {
	budget := int(d.opts.SettleWindow / DefaultTickInterval)
	taken := d.Step(budget)
	d.Stop()
	return taken
}

// Stop halts the simulation. Positions stay where they are.
func (d *Driver) Stop() {
	d.mu.Lock()
	d.haltLocked()
	d.mu.Unlock()
}

// Restore moves nodes to previously settled positions and halts the
// simulation. Positions of unknown ids or with non-finite coordinates are
// skipped. It returns the number of nodes moved.
func (d *Driver) Restore(positions []Position) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sim == nil {
		return 0
	}
	moved := 0
	for _, p := range positions {
		n := d.nodeLocked(p.ID)
		if n == nil || !finite(p.X) || !finite(p.Y) {
			continue
		}
		n.X, n.Y, n.VX, n.VY = p.X, p.Y, 0, 0
		moved++
	}
	d.haltLocked()
	return moved
}

// State returns the lifecycle state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Generation returns the number of rebuilds so far.
func (d *Driver) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

// Positions returns a copy of every node's coordinates in rebuild order.
func (d *Driver) Positions() []Position {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.positionsLocked()
}

// Snapshot returns positions and lifecycle state as one consistent copy.
func (d *Driver) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Driver) snapshotLocked() Snapshot {
	s := Snapshot{Generation: d.gen, State: d.state, Positions: d.positionsLocked()}
	if d.sim != nil {
		s.Alpha = d.sim.Alpha
	}
	return s
}

func (d *Driver) positionsLocked() []Position {
	if d.sim == nil {
		return nil
	}
	out := make([]Position, len(d.sim.Nodes))
	for i, n := range d.sim.Nodes {
		out[i] = Position{ID: n.ID, X: n.X, Y: n.Y, Pinned: n.Fixed}
	}
	return out
}

func (d *Driver) nodeLocked(id string) *Node {
	if d.sim == nil {
		return nil
	}
	i, ok := d.sim.Index(id)
	if !ok {
		return nil
	}
	return &d.sim.Nodes[i]
}

func (d *Driver) captureLocked() {
	if d.sim == nil {
		return
	}
	for _, n := range d.sim.Nodes {
		d.prior[n.ID] = [2]float64{n.X, n.Y}
	}
}

// restartLocked resumes a cooled or halted simulation.
func (d *Driver) restartLocked() {
	if d.state == StateRunning {
		return
	}
	d.startLocked()
}

// startLocked marks the simulation running, arms a fresh settle timer and,
// when a tick interval is configured, launches the background ticker.
func (d *Driver) startLocked() {
	d.haltLocked()
	d.run++
	run := d.run
	d.state = StateRunning
	d.settle = time.AfterFunc(d.opts.SettleWindow, func() { d.expire(run) })
	if d.opts.TickInterval > 0 {
		d.stop = make(chan struct{})
		go d.loop(run, d.stop)
	}
}

// haltLocked stops the ticker and settle timer of the current run.
func (d *Driver) haltLocked() {
	if d.settle != nil {
		d.settle.Stop()
		d.settle = nil
	}
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
	if d.state == StateRunning {
		d.state = StateSettled
		d.run++
	}
}

func (d *Driver) expire(run uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if run != d.run {
		return
	}
	d.logger.Debug("layout settle window elapsed", "generation", d.gen)
	d.haltLocked()
}

func (d *Driver) loop(run uint64, stop <-chan struct{}) {
	t := time.NewTicker(d.opts.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			snap, ok := d.tick(run)
			if !ok {
				return
			}
			if d.opts.OnTick != nil {
				d.opts.OnTick(snap)
			}
		}
	}
}

// tick advances one step if run is still current.
func (d *Driver) tick(run uint64) (Snapshot, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if run != d.run || d.state != StateRunning || d.sim == nil {
		return Snapshot{}, false
	}
	d.sim.Tick()
	if d.sim.Done() {
		d.haltLocked()
	}
	return d.snapshotLocked(), true
}
