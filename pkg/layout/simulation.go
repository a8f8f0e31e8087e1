package layout

import (
	"math"
	"math/rand"
)

// Simulation defaults.
const (
	DefaultAlphaMin      = 0.001
	DefaultAlphaDecay    = 0.016
	DefaultVelocityDecay = 0.4
)

// Node is one simulated body. X and Y are owned by the simulation; a node
// with Fixed set is held at (FX, FY) until released.
type Node struct {
	ID     string
	Radius float64 // displayed radius
	X, Y   float64
	VX, VY float64
	FX, FY float64
	Fixed  bool
}

// Edge connects two nodes by index.
type Edge struct {
	Source, Target int
	V              float64
}

// Force contributes velocity to nodes on every tick.
type Force interface {
	// Initialize is called whenever the node or edge set changes.
	Initialize(s *Simulation)
	// Apply adds velocity for one tick at the given alpha.
	Apply(s *Simulation, alpha float64)
}

// Viewport bounds the drawing area. Nodes are clamped to stay within it,
// below a reserved header band.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Layout chrome reserved by the clamp.
const (
	headerBand   = 78.0
	footerBand   = 20.0
	clampPadding = 12.0
)

// Clamp keeps a node of radius z inside the viewport.
func (v Viewport) Clamp(x, y, z float64) (float64, float64) {
	m := z + clampPadding
	x = max(m, min(v.Width-m, x))
	y = max(headerBand+m, min(v.Height-footerBand-m, y))
	return x, y
}

// Simulation is a velocity-Verlet force simulation with d3-force
// semantics: alpha cools toward AlphaTarget by AlphaDecay per tick and
// every velocity is damped by VelocityDecay. It is not safe for concurrent
// use; [Driver] serializes access.
type Simulation struct {
	Nodes []Node
	Edges []Edge

	Alpha         float64
	AlphaMin      float64
	AlphaDecay    float64
	AlphaTarget   float64
	VelocityDecay float64

	Viewport Viewport

	forces []namedForce
	byID   map[string]int
	rng    *rand.Rand
}

type namedForce struct {
	name  string
	force Force
}

// NewSimulation returns a hot simulation (alpha 1) over nodes and edges.
func NewSimulation(nodes []Node, edges []Edge, vp Viewport, rng *rand.Rand) *Simulation {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	s := &Simulation{
		Nodes:         nodes,
		Edges:         edges,
		Alpha:         1,
		AlphaMin:      DefaultAlphaMin,
		AlphaDecay:    DefaultAlphaDecay,
		VelocityDecay: DefaultVelocityDecay,
		Viewport:      vp,
		byID:          make(map[string]int, len(nodes)),
		rng:           rng,
	}
	for i, n := range nodes {
		s.byID[n.ID] = i
	}
	return s
}

// SetForce installs or replaces the named force. A nil force removes it.
func (s *Simulation) SetForce(name string, f Force) {
	for i, nf := range s.forces {
		if nf.name != name {
			continue
		}
		if f == nil {
			s.forces = append(s.forces[:i], s.forces[i+1:]...)
			return
		}
		s.forces[i].force = f
		f.Initialize(s)
		return
	}
	if f != nil {
		s.forces = append(s.forces, namedForce{name, f})
		f.Initialize(s)
	}
}

// Index returns the position of id in Nodes.
func (s *Simulation) Index(id string) (int, bool) {
	i, ok := s.byID[id]
	return i, ok
}

// Done reports whether alpha has cooled below AlphaMin.
func (s *Simulation) Done() bool { return s.Alpha < s.AlphaMin }

// Tick advances the simulation by one step and clamps every node into the
// viewport.
func (s *Simulation) Tick() {
	s.Alpha += (s.AlphaTarget - s.Alpha) * s.AlphaDecay
	for _, nf := range s.forces {
		nf.force.Apply(s, s.Alpha)
	}
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if n.Fixed {
			n.X, n.Y, n.VX, n.VY = n.FX, n.FY, 0, 0
		} else {
			n.VX *= 1 - s.VelocityDecay
			n.VY *= 1 - s.VelocityDecay
			n.X += n.VX
			n.Y += n.VY
		}
		if s.Viewport.Width > 0 && s.Viewport.Height > 0 {
			n.X, n.Y = s.Viewport.Clamp(n.X, n.Y, n.Radius)
		}
	}
}

// jiggle is a tiny random offset that separates coincident nodes.
func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
