package layout

import "math"

// Force constants of the country graph.
const (
	ChargeStrength  = -180.0
	CenterXStrength = 0.03
	CenterYStrength = 0.4
	LinkStrength    = 0.11
	NearDistance    = 70.0  // links with weight >= HeavyLinkWeight
	FarDistance     = 110.0 // lighter links
	HeavyLinkWeight = 3.0
	CollideMargin   = 8.0
)

// LinkDistance is the rest length of a link of weight v.
func LinkDistance(v float64) float64 {
	if v >= HeavyLinkWeight {
		return NearDistance
	}
	return FarDistance
}

// LinkStrengthOf is the spring stiffness of a link of weight v. A zero
// weight counts as 1.
func LinkStrengthOf(v float64) float64 {
	if v == 0 {
		v = 1
	}
	return v * LinkStrength
}

// LinkForce pulls linked nodes toward their rest distance. Each end moves
// in proportion to the other end's share of the combined degree, so hubs
// move less.
type LinkForce struct {
	bias     []float64
	distance []float64
	strength []float64
}

func (f *LinkForce) Initialize(s *Simulation) {
	count := make([]int, len(s.Nodes))
	for _, e := range s.Edges {
		count[e.Source]++
		count[e.Target]++
	}
	f.bias = make([]float64, len(s.Edges))
	f.distance = make([]float64, len(s.Edges))
	f.strength = make([]float64, len(s.Edges))
	for i, e := range s.Edges {
		f.bias[i] = float64(count[e.Source]) / float64(count[e.Source]+count[e.Target])
		f.distance[i] = LinkDistance(e.V)
		f.strength[i] = LinkStrengthOf(e.V)
	}
}

func (f *LinkForce) Apply(s *Simulation, alpha float64) {
	for i, e := range s.Edges {
		src, tgt := &s.Nodes[e.Source], &s.Nodes[e.Target]
		x := tgt.X + tgt.VX - src.X - src.VX
		y := tgt.Y + tgt.VY - src.Y - src.VY
		if x == 0 {
			x = s.jiggle()
		}
		if y == 0 {
			y = s.jiggle()
		}
		l := math.Hypot(x, y)
		l = (l - f.distance[i]) / l * alpha * f.strength[i]
		x *= l
		y *= l
		b := f.bias[i]
		tgt.VX -= x * b
		tgt.VY -= y * b
		src.VX += x * (1 - b)
		src.VY += y * (1 - b)
	}
}

// ManyBodyForce is a pairwise charge. A negative strength repels. Pairs
// are summed exactly; the graphs here have a few hundred nodes at most.
type ManyBodyForce struct {
	Strength    float64
	DistanceMin float64
}

func (f *ManyBodyForce) Initialize(*Simulation) {
	if f.DistanceMin == 0 {
		f.DistanceMin = 1
	}
}

func (f *ManyBodyForce) Apply(s *Simulation, alpha float64) {
	min2 := f.DistanceMin * f.DistanceMin
	for i := range s.Nodes {
		n := &s.Nodes[i]
		for j := range s.Nodes {
			if i == j {
				continue
			}
			x := s.Nodes[j].X - n.X
			y := s.Nodes[j].Y - n.Y
			if x == 0 {
				x = s.jiggle()
			}
			if y == 0 {
				y = s.jiggle()
			}
			l := x*x + y*y
			if l < min2 {
				l = math.Sqrt(min2 * l)
			}
			w := f.Strength * alpha / l
			n.VX += x * w
			n.VY += y * w
		}
	}
}

// AxisForce pulls every node toward a coordinate on one axis.
type AxisForce struct {
	Target   float64
	Strength float64
	Vertical bool
}

func (f *AxisForce) Initialize(*Simulation) {}

func (f *AxisForce) Apply(s *Simulation, alpha float64) {
	k := f.Strength * alpha
	for i := range s.Nodes {
		n := &s.Nodes[i]
		if f.Vertical {
			n.VY += (f.Target - n.Y) * k
		} else {
			n.VX += (f.Target - n.X) * k
		}
	}
}

// CollideForce separates overlapping nodes. Radius returns the collision
// radius of a node; it is resolved on Initialize so retuning means
// installing a new CollideForce.
type CollideForce struct {
	Radius func(n Node) float64

	radii []float64
}

// CollideRadius is the default collision radius: displayed radius plus margin.
func CollideRadius(n Node) float64 { return n.Radius + CollideMargin }

func (f *CollideForce) Initialize(s *Simulation) {
	radius := f.Radius
	if radius == nil {
		radius = CollideRadius
	}
	f.radii = make([]float64, len(s.Nodes))
	for i, n := range s.Nodes {
		f.radii[i] = radius(n)
	}
}

func (f *CollideForce) Apply(s *Simulation, _ float64) {
	for i := range s.Nodes {
		n := &s.Nodes[i]
		ri := f.radii[i]
		ri2 := ri * ri
		xi, yi := n.X+n.VX, n.Y+n.VY
		for j := i + 1; j < len(s.Nodes); j++ {
			m := &s.Nodes[j]
			rj := f.radii[j]
			r := ri + rj
			x := xi - m.X - m.VX
			y := yi - m.Y - m.VY
			l := x*x + y*y
			if l >= r*r {
				continue
			}
			if x == 0 {
				x = s.jiggle()
				l += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l += y * y
			}
			l = math.Sqrt(l)
			l = (r - l) / l
			x *= l
			y *= l
			share := rj * rj / (ri2 + rj*rj)
			n.VX += x * share
			n.VY += y * share
			m.VX -= x * (1 - share)
			m.VY -= y * (1 - share)
		}
	}
}

// installForces attaches the standard force set for the viewport.
func installForces(s *Simulation, radius func(Node) float64) {
	s.SetForce("link", &LinkForce{})
	s.SetForce("charge", &ManyBodyForce{Strength: ChargeStrength})
	s.SetForce("x", &AxisForce{Target: s.Viewport.Width / 2, Strength: CenterXStrength})
	s.SetForce("y", &AxisForce{Target: s.Viewport.Height / 2, Strength: CenterYStrength, Vertical: true})
	s.SetForce("collide", &CollideForce{Radius: radius})
}
