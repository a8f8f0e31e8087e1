package cli

import (
	"context"
	stdio "io"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/macroviewer/pkg/dataset"
	"github.com/matzehuels/macroviewer/pkg/engine"
	"github.com/matzehuels/macroviewer/pkg/filter"
	"github.com/matzehuels/macroviewer/pkg/index"
	"github.com/matzehuels/macroviewer/pkg/io"
	"github.com/matzehuels/macroviewer/pkg/session"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	panelStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
)

// =============================================================================
// Command
// =============================================================================

// tuiCommand creates the tui command: the filter controls in a terminal.
func (c *CLI) tuiCommand() *cobra.Command {
	var (
		resume bool
		view   viewFlags
	)

	cmd := &cobra.Command{
		Use:   "tui [dataset]",
		Short: "Explore a dataset interactively in the terminal",
		Long: `Explore a dataset in the terminal.

The console drives the same engine as the browser viewer: cycle the year,
direction and threshold, pick a sector lens or a trade bloc, search and lock
a country to see its panel. The view is remembered on exit; --resume picks
it up again.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.source(args)
			if err != nil {
				return err
			}
			actions, err := view.actions()
			if err != nil {
				return err
			}
			return c.runTUI(cmd.Context(), src, resume, actions)
		},
	}

	cmd.Flags().BoolVar(&resume, "resume", false, "start from the view remembered on last exit")
	view.register(cmd.Flags())
	return cmd
}

func (c *CLI) runTUI(ctx context.Context, src string, resume bool, actions []filter.Action) error {
	store, err := c.openCache(ctx, false)
	if err != nil {
		return err
	}
	defer store.Close()

	loaded, err := io.Load(ctx, src, c.newClient(store))
	if err != nil {
		return err
	}

	last, err := session.NewLastView("", 0)
	if err != nil {
		c.Logger.Warn("last view unavailable", "err", err)
	}
	var initial *filter.State
	if resume && last != nil {
		if st, ok, err := last.Load(ctx); err != nil {
			c.Logger.Warn("could not read last view", "err", err)
		} else if ok {
			st = filter.Sanitize(loaded.Dataset, st)
			initial = &st
		}
	}

	ctrl, err := engine.New(loaded.Dataset, engine.Options{
		Viewport: c.Config.Viewport(),
		Seed:     c.Config.View.Seed,
		Logger:   log.New(stdio.Discard),
		State:    initial,
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()
	for _, a := range actions {
		if _, err := ctrl.Dispatch(ctx, a); err != nil {
			return err
		}
	}

	m := newViewModel(ctx, ctrl)
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	if last != nil {
		state := final.(viewModel).ctrl.State()
		if err := last.Save(context.WithoutCancel(ctx), state); err != nil {
			c.Logger.Warn("could not remember view", "err", err)
		}
	}
	return nil
}

// =============================================================================
// Keys
// =============================================================================

type keyMap struct {
	Year      key.Binding
	Direction key.Binding
	Threshold key.Binding
	Sector    key.Binding
	Bloc      key.Binding
	Mode      key.Binding
	Scope     key.Binding
	Search    key.Binding
	Up        key.Binding
	Down      key.Binding
	Lock      key.Binding
	Escape    key.Binding
	Reset     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Year:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "year")),
		Direction: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "direction")),
		Threshold: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "threshold")),
		Sector:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sector")),
		Bloc:      key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bloc")),
		Mode:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "union/intersection")),
		Scope:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "touching/internal")),
		Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Lock:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("⏎", "lock")),
		Escape:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "unlock")),
		Reset:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Year, k.Direction, k.Threshold, k.Sector, k.Bloc, k.Search, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Year, k.Direction, k.Threshold, k.Reset},
		{k.Sector, k.Bloc, k.Mode, k.Scope},
		{k.Up, k.Down, k.Lock, k.Escape},
		{k.Search, k.Help, k.Quit},
	}
}

// =============================================================================
// Model
// =============================================================================

// viewModel is the bubbletea model of the tui command. Every key becomes
// an engine action; the model only renders the returned frame.
type viewModel struct {
	ctx   context.Context
	ctrl  *engine.Controller
	frame engine.Frame
	rows  []countryRow

	keys      keyMap
	help      help.Model
	search    textinput.Model
	searching bool

	cursor int
	height int
	err    error
}

type countryRow struct {
	iso2, name string
	size       float64
}

func newViewModel(ctx context.Context, ctrl *engine.Controller) viewModel {
	ti := textinput.New()
	ti.Placeholder = "country name or code"
	ti.CharLimit = 40
	m := viewModel{
		ctx:    ctx,
		ctrl:   ctrl,
		keys:   newKeyMap(),
		help:   help.New(),
		search: ti,
		height: 12,
	}
	m.setFrame(ctrl.Frame())
	return m
}

func (m *viewModel) setFrame(f engine.Frame) {
	m.frame = f
	d := m.ctrl.Dataset()
	m.rows = m.rows[:0]
	for _, n := range f.Lens.Nodes {
		name := n.ISO2
		if c, ok := d.Country(n.ISO2); ok {
			name = c.Name
		}
		m.rows = append(m.rows, countryRow{iso2: n.ISO2, name: name, size: n.DisplayZ})
	}
	slices.SortStableFunc(m.rows, func(a, b countryRow) int {
		if a.size != b.size {
			if a.size > b.size {
				return -1
			}
			return 1
		}
		return strings.Compare(a.iso2, b.iso2)
	})
	if m.cursor >= len(m.rows) {
		m.cursor = max(0, len(m.rows)-1)
	}
}

func (m *viewModel) dispatch(a filter.Action) {
	f, err := m.ctrl.Dispatch(m.ctx, a)
	m.err = err
	if err == nil {
		m.setFrame(f)
	}
}

func (m viewModel) Init() tea.Cmd {
	return nil
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = max(5, msg.Height-16)
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m viewModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.frame.State
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Year):
		m.dispatch(filter.Action{Kind: filter.KindCycleYear})
	case key.Matches(msg, m.keys.Direction):
		m.dispatch(filter.Action{Kind: filter.KindCycleDirection})
	case key.Matches(msg, m.keys.Threshold):
		m.dispatch(filter.Action{Kind: filter.KindCycleThreshold})
	case key.Matches(msg, m.keys.Sector):
		m.dispatch(m.nextSector(state.Sector))
	case key.Matches(msg, m.keys.Bloc):
		m.dispatch(filter.Action{Kind: filter.KindApplyBlocs, Blocs: []string{nextBloc(state.Blocs)}, Mode: state.Mode, Scope: state.Scope})
	case key.Matches(msg, m.keys.Mode):
		mode := index.Intersection
		if state.Mode == index.Intersection {
			mode = index.Union
		}
		m.dispatch(filter.Action{Kind: filter.KindApplyBlocs, Blocs: state.Blocs, Mode: mode, Scope: state.Scope})
	case key.Matches(msg, m.keys.Scope):
		scope := filter.Internal
		if state.Scope == filter.Internal {
			scope = filter.Touching
		}
		m.dispatch(filter.Action{Kind: filter.KindApplyBlocs, Blocs: state.Blocs, Mode: state.Mode, Scope: scope})
	case key.Matches(msg, m.keys.Reset):
		m.dispatch(filter.Action{Kind: filter.KindReset})
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Lock):
		if m.cursor < len(m.rows) {
			m.dispatch(filter.Action{Kind: filter.KindSelectCountry, ISO2: m.rows[m.cursor].iso2})
		}
	case key.Matches(msg, m.keys.Escape):
		m.dispatch(filter.Action{Kind: filter.KindEscape})
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue("")
		return m, m.search.Focus()
	}
	return m, nil
}

func (m viewModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.dispatch(filter.Action{Kind: filter.KindSearch, Query: ""})
		return m, nil
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		if s := m.frame.Suggestions; len(s) > 0 {
			m.dispatch(filter.Action{Kind: filter.KindSelectCountry, ISO2: s[0].ISO2})
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.dispatch(filter.Action{Kind: filter.KindSearch, Query: m.search.Value()})
	return m, cmd
}

// nextSector steps through the dataset's sectors in order and back to
// the default lens.
func (m viewModel) nextSector(current string) filter.Action {
	sectors := m.ctrl.Dataset().Sectors
	i := slices.IndexFunc(sectors, func(s dataset.Sector) bool { return s.ID == current })
	if i+1 >= len(sectors) {
		return filter.Action{Kind: filter.KindClearSector}
	}
	return filter.Action{Kind: filter.KindSelectSector, Sector: sectors[i+1].ID}
}

// nextBloc steps through the catalog, from Global to the first bloc and
// from the last one back to Global.
func nextBloc(active []string) string {
	current := index.AllBlocs
	if len(active) == 1 {
		current = active[0]
	}
	i := slices.IndexFunc(index.Catalog, func(b index.Bloc) bool { return b.ID == current })
	return index.Catalog[(i+1)%len(index.Catalog)].ID
}

// =============================================================================
// View
// =============================================================================

func (m viewModel) View() string {
	var b strings.Builder
	f := m.frame

	b.WriteString(StyleTitle.Render(appName))
	b.WriteString("  ")
	b.WriteString(StyleHighlight.Render(strings.Join([]string{f.Labels.Year, f.Labels.Direction, f.Labels.Threshold, f.Labels.Bloc}, "  ·  ")))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(strconv.Itoa(f.Stats.Countries) + " countries · " + strconv.Itoa(f.Stats.Links) + " links · GDP " + f.Stats.GDP))
	b.WriteString("\n\n")

	left := m.countryList()
	right := m.sidePanel()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))
	b.WriteString("\n")

	if m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n")
		for _, s := range f.Suggestions {
			b.WriteString(listNormalStyle.Render("  " + s.Flag + " " + s.Name + " (" + s.ISO2 + ")"))
			b.WriteString("\n")
		}
	}
	if m.err != nil {
		b.WriteString(StyleWarning.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m viewModel) countryList() string {
	var b strings.Builder
	start := 0
	if m.cursor >= m.height {
		start = m.cursor - m.height + 1
	}
	end := min(len(m.rows), start+m.height)
	for i := start; i < end; i++ {
		r := m.rows[i]
		line := r.iso2 + "  " + r.name
		if r.iso2 == m.frame.State.Locked {
			line += " ●"
		}
		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render("▸ " + line))
		} else {
			b.WriteString(listNormalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	if len(m.rows) == 0 {
		b.WriteString(listDimStyle.Render("no countries match"))
	}
	return panelStyle.Width(34).Render(strings.TrimRight(b.String(), "\n"))
}

func (m viewModel) sidePanel() string {
	f := m.frame
	var b strings.Builder
	if d := f.Detail; d != nil {
		b.WriteString(StyleTitle.Render(d.Flag + " " + d.Name))
		b.WriteString("\n")
		for _, kv := range [][2]string{{"GDP", d.GDP}, {"Exports", d.Exports}, {"Imports", d.Imports}, {"Balance", d.Balance}} {
			b.WriteString(listDimStyle.Render(padRight(kv[0], 9)) + StyleValue.Render(kv[1]) + "\n")
		}
		for i, p := range d.Partners {
			if i == 5 {
				break
			}
			b.WriteString(listNormalStyle.Render(strconv.Itoa(i+1) + ". " + p.Name + "  " + p.Trade))
			b.WriteString("\n")
		}
		return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
	}

	b.WriteString(StyleTitle.Render(f.Legend.Title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("Top: ") + f.Legend.TopProducer + "\n")
	b.WriteString(listDimStyle.Render("Total: ") + f.Legend.Total + "\n")
	if f.Top10.Message != "" {
		b.WriteString(listDimStyle.Render(f.Top10.Message) + "\n")
	}
	for _, r := range f.Top10.Rows {
		b.WriteString(listNormalStyle.Render(strconv.Itoa(r.Rank) + ". " + r.Flag + " " + r.Name + "  " + r.ValueLabel))
		b.WriteString("\n")
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
