package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/handiism/moviedata/internal/config"
	"github.com/handiism/moviedata/internal/history"
	"github.com/handiism/moviedata/internal/model"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func withMovies(titles ...string) Model {
	m := NewModel(config.DefaultSettings())
	for i, title := range titles {
		m.movies.Add(model.NewMovie(title, 1990+i, 100, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ""))
	}
	m.movies.SetDirty(false)
	return m
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestModel_AddMovie(t *testing.T) {
	tests := []struct {
		name     string
		year     string
		wantYear int
	}{
		{"with year", "1979", 1979},
		{"unknown year", "", model.UnknownYear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := []tea.Msg{key("a"), key("Alien"), key("enter")}
			if tt.year != "" {
				msgs = append(msgs, key(tt.year))
			}
			msgs = append(msgs, key("enter"))
			m, _ := send(NewModel(config.DefaultSettings()), msgs...)

			if m.state != StateBrowse {
				t.Errorf("state = %v, want StateBrowse", m.state)
			}
			if m.movies.Len() != 1 {
				t.Fatalf("Len() = %d, want 1", m.movies.Len())
			}
			got := m.movies.MovieAt(0)
			if got.Title != "Alien" || got.Year != tt.wantYear {
				t.Errorf("added %q (%d), want Alien (%d)", got.Title, got.Year, tt.wantYear)
			}
			if !m.movies.IsDirty() {
				t.Error("collection should be dirty after adding")
			}
		})
	}
}

func TestModel_AddInvalidYearKeepsPrompt(t *testing.T) {
	m, _ := send(NewModel(config.DefaultSettings()), key("a"), key("Alien"), key("enter"), key("soon"), key("enter"))

	if m.state != StatePrompt || m.prompt != promptYear {
		t.Errorf("state = %v, prompt = %v; want year prompt", m.state, m.prompt)
	}
	if m.movies.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.movies.Len())
	}
	if last := m.logs[len(m.logs)-1]; !strings.Contains(last.Message, "Invalid year") {
		t.Errorf("last log = %q", last.Message)
	}
}

func TestModel_PromptCancel(t *testing.T) {
	m, _ := send(NewModel(config.DefaultSettings()), key("a"), key("q"), key("esc"))

	if m.state != StateBrowse {
		t.Errorf("state = %v, want StateBrowse", m.state)
	}
	if m.movies.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.movies.Len())
	}
}

func TestModel_Navigation(t *testing.T) {
	m := withMovies("Alien", "Brazil", "Heat")

	m, _ = send(m, key("j"), key("j"), key("j"), key("j"))
	if m.cursor != 2 {
		t.Errorf("cursor = %d after moving down, want 2", m.cursor)
	}
	m, _ = send(m, key("k"))
	if m.cursor != 1 {
		t.Errorf("cursor = %d after moving up, want 1", m.cursor)
	}
	m, _ = send(m, key("k"), key("k"))
	if m.cursor != 0 {
		t.Errorf("cursor = %d at top, want 0", m.cursor)
	}
}

func TestModel_DeleteConfirm(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		wantLen int
	}{
		{"confirmed", "y", 2},
		{"declined", "n", 3},
		{"escaped", "esc", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := withMovies("Alien", "Brazil", "Heat")
			m, _ = send(m, key("j"), key("j"), key("d"))
			if m.state != StateConfirmDelete {
				t.Fatalf("state = %v, want StateConfirmDelete", m.state)
			}
			m, _ = send(m, key(tt.answer))

			if m.state != StateBrowse {
				t.Errorf("state = %v, want StateBrowse", m.state)
			}
			if m.movies.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", m.movies.Len(), tt.wantLen)
			}
			if m.cursor >= m.movies.Len() {
				t.Errorf("cursor = %d out of range", m.cursor)
			}
		})
	}
}

func TestModel_QuitWarnsOnceWhenDirty(t *testing.T) {
	m := withMovies("Alien")
	if _, cmd := send(m, key("q")); !isQuit(cmd) {
		t.Error("clean collection should quit on first press")
	}

	m.movies.SetDirty(true)
	m, cmd := send(m, key("q"))
	if isQuit(cmd) {
		t.Fatal("dirty collection should warn before quitting")
	}
	if last := m.logs[len(m.logs)-1]; last.Level.String() != "warning" {
		t.Errorf("last log level = %v, want warning", last.Level)
	}
	if _, cmd := send(m, key("q")); !isQuit(cmd) {
		t.Error("second press should quit")
	}
}

func TestModel_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movies.mqt")

	store, err := history.Open(filepath.Join(dir, "history.db"), 5)
	if err != nil {
		t.Fatalf("history.Open() error = %v", err)
	}
	defer store.Close()

	m := withMovies("Alien", "Heat")
	m.history = store
	m.movies.SetFilename(path)
	m.movies.SetDirty(true)

	m, _ = send(m, key("s"))
	if m.movies.IsDirty() {
		t.Error("collection should be clean after saving")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}

	other := NewModel(config.DefaultSettings(), WithFile(path), WithHistory(store))
	if other.state != StateLoading {
		t.Fatalf("state = %v, want StateLoading", other.state)
	}
	other, _ = send(other, other.loadFile(path)())

	if other.state != StateBrowse {
		t.Errorf("state = %v, want StateBrowse", other.state)
	}
	if other.movies.Len() != 2 || other.movies.Filename() != path {
		t.Errorf("loaded %d movies from %q", other.movies.Len(), other.movies.Filename())
	}

	entries, err := store.Recent()
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Format != "text" {
		t.Errorf("history = %+v", entries)
	}
}

func TestModel_LoadFailureKeepsCollection(t *testing.T) {
	m := withMovies("Alien")

	m, _ = send(m, LoadDoneMsg{Path: "missing.mqb", Err: errors.New("failed to load: missing.mqb")})

	if m.movies.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.movies.Len())
	}
	if last := m.logs[len(m.logs)-1]; last.Level.String() != "error" {
		t.Errorf("last log level = %v, want error", last.Level)
	}
}

func TestModel_ExportXML(t *testing.T) {
	dir := t.TempDir()
	m := withMovies("Alien", "Heat")
	m.movies.SetFilename(filepath.Join(dir, "movies.mqb"))

	m, _ = send(m, key("x"))
	if got, want := m.textInput.Value(), filepath.Join(dir, "movies.xml"); got != want {
		t.Errorf("export prompt = %q, want %q", got, want)
	}
	m, _ = send(m, key("enter"))

	if _, err := os.Stat(filepath.Join(dir, "movies.xml")); err != nil {
		t.Errorf("exported file missing: %v", err)
	}
	if last := m.logs[len(m.logs)-1]; last.Message != "Exported 2 movie records to movies.xml" {
		t.Errorf("last log = %q", last.Message)
	}
}

func TestModel_View(t *testing.T) {
	m := withMovies("Alien", "Heat")
	m.movies.SetFilename("films.mqb")
	m.movies.SetDirty(true)

	view := m.View()
	for _, want := range []string{"Movie Collection", "films.mqb *", "2 movies", "Alien (1990)", "Heat"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}

	empty := NewModel(config.DefaultSettings()).View()
	if !strings.Contains(empty, "No movies yet") {
		t.Error("empty View() should show a hint")
	}
}

func TestLogsAreCapped(t *testing.T) {
	m := NewModel(config.DefaultSettings())
	for i := range maxLogs + 3 {
		m.log(strings.Repeat("x", i+1), 0)
	}
	if len(m.logs) != maxLogs {
		t.Errorf("len(logs) = %d, want %d", len(m.logs), maxLogs)
	}
}
