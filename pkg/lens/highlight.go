package lens

// Connected returns focus and every country sharing a visible link with it.
func Connected(r *Result, focus string) map[string]bool {
	out := map[string]bool{focus: true}
	for _, l := range r.Links {
		if l.Source == focus {
			out[l.Target] = true
		}
		if l.Target == focus {
			out[l.Source] = true
		}
	}
	return out
}

// Highlight overlays the connected highlight for focus onto r in place.
// Connected nodes stay visible (0.9 for producers, 0.76 otherwise) while
// the rest fade to 0.08; links touching focus are drawn at full opacity in
// the outgoing or incoming accent and every other link nearly disappears.
// An empty focus leaves r unchanged.
func Highlight(r *Result, focus string) {
	if focus == "" {
		return
	}
	conn := Connected(r, focus)
	for i := range r.Nodes {
		n := &r.Nodes[i]
		switch {
		case conn[n.ISO2] && n.Producer:
			n.FillOpacity = 0.9
		case conn[n.ISO2]:
			n.FillOpacity = 0.76
		default:
			n.FillOpacity = 0.08
		}
		n.Label.Opacity = 0.18
		if conn[n.ISO2] {
			n.Label.Opacity = 1
		}
	}
	for i := range r.Links {
		l := &r.Links[i]
		switch focus {
		case l.Source:
			l.Stroke, l.Width, l.Opacity = AccentOutgoing, 2, 1
		case l.Target:
			l.Stroke, l.Width, l.Opacity = AccentIncoming, 2, 1
		default:
			l.Stroke, l.Width, l.Opacity = "#111", 0.3, 0.03
		}
	}
}
