package cli

import (
	"context"
	stdio "io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/macroviewer/pkg/engine"
	"github.com/matzehuels/macroviewer/pkg/filter"
	"github.com/matzehuels/macroviewer/pkg/index"
	"github.com/matzehuels/macroviewer/pkg/io"
)

func newTestViewModel(t *testing.T) viewModel {
	t.Helper()
	d, _, err := io.ImportJSON(testDataset)
	if err != nil {
		t.Fatal(err)
	}
	ctrl, err := engine.New(d, engine.Options{Seed: 1, Logger: log.New(stdio.Discard)})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ctrl.Close)
	return newViewModel(context.Background(), ctrl)
}

func press(m viewModel, keys ...string) viewModel {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(viewModel)
	}
	return m
}

func TestViewModelCycles(t *testing.T) {
	m := newTestViewModel(t)
	if m.frame.State.Year != 2023 {
		t.Fatalf("initial year = %d", m.frame.State.Year)
	}

	m = press(m, "y")
	if m.frame.State.Year != 2022 {
		t.Errorf("year after y = %d, want 2022", m.frame.State.Year)
	}
	m = press(m, "d")
	if m.frame.State.Direction != filter.Exports {
		t.Errorf("direction after d = %q", m.frame.State.Direction)
	}
	m = press(m, "t")
	if m.frame.State.MinTrade != filter.Thresholds[1] {
		t.Errorf("threshold after t = %v", m.frame.State.MinTrade)
	}
	m = press(m, "r")
	if m.frame.State.Year != 2023 || m.frame.State.MinTrade != filter.Thresholds[0] {
		t.Errorf("reset state = %+v", m.frame.State)
	}
}

func TestViewModelSectorAndBlocs(t *testing.T) {
	m := newTestViewModel(t)

	m = press(m, "s")
	if m.frame.State.Sector != "medicine" {
		t.Errorf("sector = %q, want medicine", m.frame.State.Sector)
	}
	m = press(m, "s", "s")
	if m.frame.State.Sector != filter.AllSectors {
		t.Errorf("sector after wrapping = %q", m.frame.State.Sector)
	}

	m = press(m, "b")
	if got := m.frame.State.Blocs; len(got) != 1 || got[0] != index.Catalog[1].ID {
		t.Errorf("blocs = %v, want [%s]", got, index.Catalog[1].ID)
	}
	m = press(m, "m", "e")
	if m.frame.State.Mode != index.Intersection || m.frame.State.Scope != filter.Internal {
		t.Errorf("mode/scope = %s/%s", m.frame.State.Mode, m.frame.State.Scope)
	}
}

func TestViewModelLockAndSearch(t *testing.T) {
	m := newTestViewModel(t)

	if len(m.rows) != 6 {
		t.Fatalf("rows = %d, want 6", len(m.rows))
	}
	for i := 1; i < len(m.rows); i++ {
		if m.rows[i].size > m.rows[i-1].size {
			t.Fatalf("rows not ordered by bubble size: %+v", m.rows)
		}
	}
	m = press(m, "down", "enter")
	if m.frame.State.Locked != m.rows[1].iso2 || m.frame.Detail == nil {
		t.Errorf("locked = %q, detail %v", m.frame.State.Locked, m.frame.Detail)
	}
	m = press(m, "esc")
	if m.frame.State.Locked != "" {
		t.Errorf("esc should unlock, locked = %q", m.frame.State.Locked)
	}

	m = press(m, "/", "g", "e", "r")
	if !m.searching || len(m.frame.Suggestions) != 1 || m.frame.Suggestions[0].ISO2 != "DE" {
		t.Fatalf("suggestions = %+v", m.frame.Suggestions)
	}
	if !strings.Contains(m.View(), "Germany") {
		t.Error("view does not list the suggestion")
	}
	m = press(m, "enter")
	if m.searching || m.frame.State.Locked != "DE" {
		t.Errorf("after enter: searching %v, locked %q", m.searching, m.frame.State.Locked)
	}
	if !strings.Contains(m.View(), "Germany") {
		t.Error("view does not show the country panel")
	}
}

func TestViewModelQuit(t *testing.T) {
	m := newTestViewModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestNextBloc(t *testing.T) {
	last := index.Catalog[len(index.Catalog)-1].ID
	tests := []struct {
		active []string
		want   string
	}{
		{nil, index.Catalog[1].ID},
		{[]string{index.AllBlocs}, index.Catalog[1].ID},
		{[]string{last}, index.AllBlocs},
		{[]string{"eu", "nato"}, index.Catalog[1].ID},
	}
	for _, tt := range tests {
		if got := nextBloc(tt.active); got != tt.want {
			t.Errorf("nextBloc(%v) = %q, want %q", tt.active, got, tt.want)
		}
	}
}
