package lens

import (
	"math"

	"github.com/matzehuels/macroviewer/pkg/dataset"
	"github.com/matzehuels/macroviewer/pkg/format"
	"github.com/matzehuels/macroviewer/pkg/index"
)

// Kind names the active lens.
type Kind string

const (
	KindDefault Kind = "default"
	KindSector  Kind = "sector"
)

// Lens constants. They have no configuration surface.
const (
	GDPWeight       = 0.62
	TradeWeight     = 0.38
	ScaleFloor      = 0.72
	ScaleRange      = 0.86
	LeaderCount     = 8
	RingRankCutoff  = 3
	CollisionMargin = 8.0
	RingPadding     = 4.0
	RingWidth       = 1.2
	RingDash        = "4 4"
)

// Input is everything one resolver pass reads. Members is the member set
// computed once for the pass (nil without a bloc filter) and must be the
// same set the link filter used.
type Input struct {
	Nodes   []dataset.Country
	Links   []dataset.Link // visible links only
	Sector  string         // sector id, or "all" for the default lens
	Table   *index.SectorTable
	Index   *index.Index
	Active  []*index.BlocEntry
	Members index.Set
}

// Ring is the dashed highlight circle around a node.
type Ring struct {
	Stroke  string  `json:"stroke"`
	Opacity float64 `json:"opacity"`
	R       float64 `json:"r"`
	Width   float64 `json:"width"`
	Dash    string  `json:"dash"`
}

// Label is a text element attached to a node.
type Label struct {
	Text     string  `json:"text"`
	Fill     string  `json:"fill"`
	Opacity  float64 `json:"opacity"`
	Dy       float64 `json:"dy"`
	FontSize float64 `json:"fontSize"`
}

// NodeStyle is the resolved appearance of one country for one pass.
type NodeStyle struct {
	ISO2     string  `json:"iso2"`
	BaseZ    float64 `json:"baseZ"`
	DisplayZ float64 `json:"displayZ"`

	SectorValue float64 `json:"sectorValue"`
	SectorRank  int     `json:"sectorRank"`
	Producer    bool    `json:"producer"`
	Member      bool    `json:"member"`
	BlocColor   string  `json:"blocColor"`

	// Default lens only.
	Score        float64 `json:"score"`
	GDPNorm      float64 `json:"gdpNorm"`
	TradeNorm    float64 `json:"tradeNorm"`
	TradeFlowUsd float64 `json:"tradeFlowUsd"`
	Leader       bool    `json:"leader"`

	Fill        string  `json:"fill"`
	FillOpacity float64 `json:"fillOpacity"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Ring        Ring    `json:"ring"`
	Label       Label   `json:"label"`
	GDPLabel    Label   `json:"gdpLabel"`
}

// CollisionRadius is the collide-force radius for the node.
func (n NodeStyle) CollisionRadius() float64 { return n.DisplayZ + CollisionMargin }

// LinkStyle is the resolved appearance of one visible link.
type LinkStyle struct {
	Source    string            `json:"s"`
	Target    string            `json:"t"`
	TradeUsd  float64           `json:"tradeUsd"`
	Direction dataset.Direction `json:"direction"`
	V         float64           `json:"v"`
	Intensity float64           `json:"intensity"`

	Stroke  string  `json:"stroke"`
	Width   float64 `json:"width"`
	Opacity float64 `json:"opacity"`
}

// Result is the output of one resolver pass.
type Result struct {
	Kind        Kind        `json:"lens"`
	Nodes       []NodeStyle `json:"nodes"`
	Links       []LinkStyle `json:"links"`
	Leaders     []string    `json:"leaders,omitempty"`
	MaxVisibleV float64     `json:"maxVisibleV"`
}

// Node returns the style of iso2.
func (r *Result) Node(iso2 string) (*NodeStyle, bool) {
	for i := range r.Nodes {
		if r.Nodes[i].ISO2 == iso2 {
			return &r.Nodes[i], true
		}
	}
	return nil, false
}

// Radii maps iso2 to displayed radius, for retuning the collide force.
func (r *Result) Radii() map[string]float64 {
	out := make(map[string]float64, len(r.Nodes))
	for _, n := range r.Nodes {
		out[n.ISO2] = n.DisplayZ
	}
	return out
}

type resolver interface {
	node(n *NodeStyle, c dataset.Country)
	link(l *LinkStyle)
	label(n *NodeStyle)
}

// Resolve computes the appearance of every node and every visible link.
// Every node is styled, including nodes without visible links. The input
// is not modified.
func Resolve(in Input) Result {
	res := Result{
		Kind:  KindDefault,
		Nodes: make([]NodeStyle, len(in.Nodes)),
		Links: make([]LinkStyle, len(in.Links)),
	}
	filtered := in.Members != nil
	blocColor := index.BlocColor(in.Active)

	res.MaxVisibleV = 0
	for _, l := range in.Links {
		res.MaxVisibleV = max(res.MaxVisibleV, l.V)
	}
	if !(res.MaxVisibleV > 0) {
		res.MaxVisibleV = 1
	}

	base := baseLens{in: in, filtered: filtered, blocColor: blocColor, maxV: res.MaxVisibleV}
	var r resolver
	if in.Sector != "" && in.Sector != "all" {
		res.Kind = KindSector
		r = newSectorLens(base)
	} else {
		dl := newDefaultLens(base)
		res.Leaders = dl.leaders
		r = dl
	}

	for i, c := range in.Nodes {
		n := &res.Nodes[i]
		n.ISO2 = c.ISO2
		n.BaseZ = c.BaseZ
		n.DisplayZ = c.BaseZ
		n.SectorValue = in.Table.Value(c.ISO2)
		n.SectorRank = in.Table.Rank(c.ISO2)
		n.Producer = n.SectorValue > 0
		n.Member = filtered && in.Members.Has(c.ISO2)
		n.BlocColor = blocColor
		if in.Index != nil {
			n.BlocColor = in.Index.CountryBlocColor(c.ISO2, in.Active, blocColor)
		}
		r.node(n, c)
		n.Ring.R = n.DisplayZ + RingPadding
		n.Ring.Width = RingWidth
		n.Ring.Dash = RingDash

		n.Label.Text = c.Name
		n.Label.Dy = -n.DisplayZ - 4
		n.Label.FontSize = 7
		if n.DisplayZ >= 18 {
			n.Label.FontSize = 9
		}
		n.GDPLabel.Text = format.Currency(c.GDPUsd)
		n.GDPLabel.Dy = n.DisplayZ + 11
		n.GDPLabel.FontSize = 6
		r.label(n)
	}

	for i, l := range in.Links {
		ls := &res.Links[i]
		ls.Source, ls.Target = l.Source, l.Target
		ls.TradeUsd = l.TradeUsd
		ls.Direction = l.Direction
		ls.V = l.V
		ls.Intensity = math.Sqrt(math.Max(0, l.V) / res.MaxVisibleV)
		r.link(ls)
	}
	return res
}

// baseLens carries what both lenses share.
type baseLens struct {
	in        Input
	filtered  bool
	blocColor string
	maxV      float64
}

// dimmed reports whether a node is a non-member under an active bloc filter.
func (b baseLens) dimmed(n *NodeStyle) bool { return b.filtered && !n.Member }

func (b baseLens) touches(l *LinkStyle) bool {
	return b.filtered && (b.in.Members.Has(l.Source) || b.in.Members.Has(l.Target))
}

func (b baseLens) linkBlocColor(l *LinkStyle) string {
	return index.LinkBlocColor(l.Source, l.Target, b.in.Active, "")
}

// memberColor is the node's resolved bloc color, else the pass color.
func (b baseLens) memberColor(n *NodeStyle) string {
	if n.BlocColor != "" {
		return n.BlocColor
	}
	return b.blocColor
}
