package lens

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/macroviewer/pkg/dataset"
)

// Metrics are the default-lens signals of one country.
type Metrics struct {
	Score        float64
	GDPNorm      float64
	TradeNorm    float64
	TradeFlowUsd float64
	RadiusScale  float64
}

// Score blends the two normalized signals with the fixed 0.62/0.38 split
// and clamps the result to [0, 1].
func Score(gdpNorm, tradeNorm float64) float64 {
	return clamp01(GDPWeight*gdpNorm + TradeWeight*tradeNorm)
}

// ComputeMetrics derives the default-lens signals for every node. GDP is
// normalized against the largest GDP of all nodes, trade against the
// largest per-country sum of visible trade (both endpoints credited). Both
// use square-root scaling.
func ComputeMetrics(nodes []dataset.Country, visible []dataset.Link) map[string]Metrics {
	trade := make(map[string]float64)
	for _, l := range visible {
		if !(l.TradeUsd > 0) {
			continue
		}
		trade[l.Source] += l.TradeUsd
		trade[l.Target] += l.TradeUsd
	}

	maxGDP := 0.0
	for _, n := range nodes {
		maxGDP = max(maxGDP, n.GDPUsd)
	}
	if !(maxGDP > 0) {
		maxGDP = 1
	}
	maxTrade := 0.0
	for _, v := range trade {
		maxTrade = max(maxTrade, v)
	}
	if !(maxTrade > 0) {
		maxTrade = 1
	}

	out := make(map[string]Metrics, len(nodes))
	for _, n := range nodes {
		gdpNorm := math.Sqrt(math.Max(0, n.GDPUsd) / maxGDP)
		flow := trade[n.ISO2]
		tradeNorm := math.Sqrt(flow / maxTrade)
		score := Score(gdpNorm, tradeNorm)
		out[n.ISO2] = Metrics{
			Score:        score,
			GDPNorm:      gdpNorm,
			TradeNorm:    tradeNorm,
			TradeFlowUsd: flow,
			RadiusScale:  ScaleFloor + score*ScaleRange,
		}
	}
	return out
}

type defaultLens struct {
	baseLens
	metrics map[string]Metrics
	leaders []string
	leader  map[string]bool
}

func newDefaultLens(b baseLens) *defaultLens {
	dl := &defaultLens{baseLens: b, metrics: ComputeMetrics(b.in.Nodes, b.in.Links)}

	type ranked struct {
		iso2  string
		score float64
	}
	rows := make([]ranked, 0, len(b.in.Nodes))
	for _, n := range b.in.Nodes {
		if b.filtered && !b.in.Members.Has(n.ISO2) {
			continue
		}
		rows = append(rows, ranked{n.ISO2, dl.metrics[n.ISO2].Score})
	}
	slices.SortStableFunc(rows, func(a, b ranked) int { return cmp.Compare(b.score, a.score) })

	dl.leader = make(map[string]bool, LeaderCount)
	for i := 0; i < len(rows) && i < LeaderCount; i++ {
		dl.leaders = append(dl.leaders, rows[i].iso2)
		dl.leader[rows[i].iso2] = true
	}
	return dl
}

func (dl *defaultLens) node(n *NodeStyle, c dataset.Country) {
	m := dl.metrics[c.ISO2]
	n.Score, n.GDPNorm, n.TradeNorm, n.TradeFlowUsd = m.Score, m.GDPNorm, m.TradeNorm, m.TradeFlowUsd
	n.Leader = dl.leader[c.ISO2]
	n.DisplayZ = clamp(c.BaseZ*m.RadiusScale, dataset.MinBaseZ, dataset.MaxDisplayZ)

	if dl.dimmed(n) {
		n.Fill, n.FillOpacity = dimNodeFill, 0.1
		n.Stroke, n.StrokeWidth = dimNodeStroke, 0.4
	} else {
		n.Fill, n.FillOpacity = NodeRamp.At(n.Score), 0.34+n.Score*0.5
		n.Stroke, n.StrokeWidth = NodeRamp.At(clamp01(n.Score+0.12)), 0.6+n.Score*1.4
	}

	switch {
	case n.Leader:
		n.Ring.Stroke, n.Ring.Opacity = AmberRing, 0.78
	case dl.filtered && n.Member:
		n.Ring.Stroke, n.Ring.Opacity = dl.memberColor(n), 0.52
	default:
		n.Ring.Stroke, n.Ring.Opacity = transparent, 0
	}
}

func (dl *defaultLens) label(n *NodeStyle) {
	if dl.dimmed(n) {
		n.Label.Fill, n.Label.Opacity = "#444", 0.4
		n.GDPLabel.Fill, n.GDPLabel.Opacity = "#444", 0.35
		return
	}
	n.Label.Fill = "#677487"
	if n.Score >= 0.55 {
		n.Label.Fill = "#ddd"
	}
	n.Label.Opacity = 0.56 + n.Score*0.44
	n.GDPLabel.Fill = "#4a4f59"
	if n.Score >= 0.7 {
		n.GDPLabel.Fill = "#667788"
	}
	n.GDPLabel.Opacity = 0.9
}

func (dl *defaultLens) link(l *LinkStyle) {
	touching := dl.touches(l)
	if dl.filtered && !touching {
		l.Stroke, l.Width, l.Opacity = dimLink, 0.3, 0.08
		return
	}
	l.Stroke = LinkRamp.At(l.Intensity)
	if touching {
		if c := dl.linkBlocColor(l); c != "" {
			l.Stroke = RGBA(c, 0.42+l.Intensity*0.38)
		}
	}
	l.Width = 0.5 + l.Intensity*2.1
	l.Opacity = 0.44 + l.Intensity*0.5
}
