package lens

import (
	"github.com/matzehuels/macroviewer/pkg/dataset"
	"github.com/matzehuels/macroviewer/pkg/index"
)

type sectorLens struct {
	baseLens
	color string
}

func newSectorLens(b baseLens) *sectorLens {
	return &sectorLens{baseLens: b, color: index.SectorColor(b.in.Sector)}
}

func (sl *sectorLens) node(n *NodeStyle, c dataset.Country) {
	top := n.SectorRank > 0 && n.SectorRank <= RingRankCutoff

	switch {
	case n.Producer:
		n.Fill, n.Stroke = sl.color, sl.color
	case sl.filtered && n.Member:
		n.Fill, n.Stroke = sl.memberColor(n), sl.memberColor(n)
	default:
		n.Fill, n.Stroke = TierColor(c.GDPUsd), neutralStroke
	}

	switch {
	case sl.dimmed(n):
		n.FillOpacity, n.StrokeWidth = 0.1, 0.4
	case !n.Producer:
		n.FillOpacity, n.StrokeWidth = 0.34, 0.6
	case top:
		n.FillOpacity, n.StrokeWidth = 0.7, 2.1
	default:
		n.FillOpacity, n.StrokeWidth = 0.7, 1.2
	}

	switch {
	case top:
		n.Ring.Stroke, n.Ring.Opacity = sl.color, 0.86
	case sl.filtered && n.Member:
		n.Ring.Stroke, n.Ring.Opacity = sl.memberColor(n), 0.55
	default:
		n.Ring.Stroke, n.Ring.Opacity = transparent, 0
	}
}

func (sl *sectorLens) label(n *NodeStyle) {
	n.GDPLabel.Fill, n.GDPLabel.Opacity = "#444", 0.9
	if sl.dimmed(n) {
		n.Label.Fill, n.Label.Opacity = "#444", 0.45
		n.GDPLabel.Opacity = 0.35
		return
	}
	n.Label.Fill, n.Label.Opacity = "#666", 1
	if n.Producer {
		n.Label.Fill = "#ddd"
	}
}

func (sl *sectorLens) producer(iso2 string) bool {
	return sl.in.Table.Value(iso2) > 0
}

func (sl *sectorLens) link(l *LinkStyle) {
	touching := sl.touches(l)
	producer := sl.producer(l.Source) || sl.producer(l.Target)

	switch {
	case touching:
		c := sl.linkBlocColor(l)
		if c == "" {
			c = sl.blocColor
		}
		l.Stroke, l.Width = RGBA(c, 0.42), max(1.1, l.V*0.95)
	case producer:
		l.Stroke, l.Width = RGBA(sl.color, 0.34), max(1, l.V*0.9)
	default:
		l.Stroke, l.Width = baseLinkStroke(l.V), baseLinkWidth(l.V)
	}

	switch {
	case sl.filtered && touching:
		l.Opacity = 0.9
	case sl.filtered:
		l.Opacity = 0.08
	case producer:
		l.Opacity = 0.9
	default:
		l.Opacity = 0.75
	}
}

func baseLinkStroke(v float64) string {
	switch {
	case v >= 3:
		return "rgba(232,69,60,0.18)"
	case v >= 2:
		return "#1e1e1e"
	}
	return "#151515"
}

func baseLinkWidth(v float64) float64 {
	switch {
	case v >= 3:
		return 1.4
	case v >= 2:
		return 0.7
	}
	return 0.35
}
