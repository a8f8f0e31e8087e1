// Package filter holds the viewer's filter state and the pure transition
// function that moves it from one interaction to the next.
//
// Every user interaction is an [Action] with a [Kind]. [Reduce] maps
// (state, action) to a new [State] plus an [Effect] telling the caller how
// much rendering work the change requires:
//
//	s := filter.Default(d)
//	s, eff, err := filter.Reduce(d, s, filter.Action{Kind: filter.KindCycleYear})
//
// The bloc selection always holds either ["all"] or a non-empty list of
// concrete catalog ids; [NormalizeBlocSelection] and [ToggleBlocChip]
// maintain that.
package filter
