// Package tui provides a Bubble Tea terminal user interface for browsing and
// editing a movie collection.
package tui

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/handiism/moviedata/internal/collection"
	"github.com/handiism/moviedata/internal/config"
	"github.com/handiism/moviedata/internal/convert"
	"github.com/handiism/moviedata/internal/history"
	"github.com/handiism/moviedata/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F8B500"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(0, 1)
)

// State represents the current UI state.
type State int

const (
	StateBrowse State = iota
	StateLoading
	StatePrompt
	StateConfirmDelete
)

// prompt identifies what the text input is collecting.
type prompt int

const (
	promptNone prompt = iota
	promptTitle
	promptYear
	promptOpen
	promptSave
	promptExport
)

// maxLogs is how many status lines are kept on screen.
const maxLogs = 5

// LogEntry represents a status message in the UI.
type LogEntry struct {
	Message string
	Level   convert.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	prompt    prompt
	textInput textinput.Model
	spinner   spinner.Model
	settings  *config.Settings
	logs      []LogEntry

	movies  *collection.Container
	history *history.Store
	logger  *slog.Logger

	cursor        int
	pendingTitle  string
	pendingDelete *model.Movie
	quitWarned    bool
	loadingPath   string

	width  int
	height int
}

// Option configures a Model.
type Option func(*Model)

// WithFile opens path when the program starts.
func WithFile(path string) Option {
	return func(m *Model) {
		if path != "" {
			m.state = StateLoading
			m.loadingPath = path
		}
	}
}

// WithHistory records opened and saved files in h.
func WithHistory(h *history.Store) Option {
	return func(m *Model) { m.history = h }
}

// WithLogger sets the logger handed to the collection.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModel creates a new TUI model with an empty collection.
func NewModel(settings *config.Settings, opts ...Option) Model {
	if settings == nil {
		settings = config.DefaultSettings()
	}

	ti := textinput.New()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	m := Model{
		state:     StateBrowse,
		textInput: ti,
		spinner:   sp,
		settings:  settings,
		logs:      make([]LogEntry, 0),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.movies = collection.New(collection.WithLogger(m.logger))
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	if m.state == StateLoading {
		return tea.Batch(m.loadFile(m.loadingPath), m.spinner.Tick)
	}
	return nil
}

// Message types
type (
	// LoadDoneMsg is sent when a file has been read in the background.
	LoadDoneMsg struct {
		Path   string
		Movies *collection.Container
		Status string
		Err    error
	}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.state {
		case StatePrompt:
			return m.updatePrompt(msg)
		case StateConfirmDelete:
			return m.updateConfirm(msg), nil
		case StateLoading:
			return m, nil
		}
		return m.updateBrowse(msg)

	case spinner.TickMsg:
		if m.state != StateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case LoadDoneMsg:
		m.state = StateBrowse
		m.loadingPath = ""
		if msg.Err != nil {
			m.log(msg.Err.Error(), convert.LevelError)
			return m, nil
		}
		m.movies = msg.Movies
		m.cursor = 0
		m.quitWarned = false
		m.log(msg.Status, convert.LevelSuccess)
		m.touch(msg.Path)
		return m, nil
	}

	if m.state == StatePrompt {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.settings.Keys
	switch msg.String() {
	case keys.Quit:
		if m.movies.IsDirty() && !m.quitWarned {
			m.quitWarned = true
			m.log(fmt.Sprintf("Unsaved changes, press %s again to quit", keys.Quit), convert.LevelWarning)
			return m, nil
		}
		return m, tea.Quit

	case keys.Up, "up":
		if m.cursor > 0 {
			m.cursor--
		}

	case keys.Down, "down":
		if m.cursor < m.movies.Len()-1 {
			m.cursor++
		}

	case keys.Add:
		return m.startPrompt(promptTitle, "")

	case keys.Delete:
		if m.movies.Len() > 0 {
			m.pendingDelete = m.movies.MovieAt(m.cursor)
			m.state = StateConfirmDelete
		}

	case keys.Save:
		if m.movies.Filename() == "" {
			return m.startPrompt(promptSave, "movies"+m.settings.Format())
		}
		m.save("")

	case keys.Open:
		return m.startPrompt(promptOpen, m.movies.Filename())

	case keys.Export:
		name := m.movies.Filename()
		if name != "" {
			name = strings.TrimSuffix(name, filepath.Ext(name)) + ".xml"
		}
		return m.startPrompt(promptExport, name)
	}
	return m, nil
}

func (m Model) startPrompt(p prompt, value string) (tea.Model, tea.Cmd) {
	m.state = StatePrompt
	m.prompt = p
	m.textInput.Placeholder = promptPlaceholder(p)
	m.textInput.SetValue(value)
	m.textInput.CursorEnd()
	return m, tea.Batch(m.textInput.Focus(), textinput.Blink)
}

func (m Model) endPrompt() Model {
	m.state = StateBrowse
	m.prompt = promptNone
	m.textInput.Blur()
	m.textInput.SetValue("")
	return m
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.settings.Keys
	switch msg.String() {
	case keys.Cancel, "esc":
		return m.endPrompt(), nil
	case keys.Confirm, "enter":
		return m.submitPrompt(strings.TrimSpace(m.textInput.Value()))
	}
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m Model) submitPrompt(value string) (tea.Model, tea.Cmd) {
	switch m.prompt {
	case promptTitle:
		if value == "" {
			return m.endPrompt(), nil
		}
		m.pendingTitle = value
		return m.startPrompt(promptYear, "")

	case promptYear:
		year := model.UnknownYear
		if value != "" {
			n, err := strconv.Atoi(value)
			if err != nil {
				m.log(fmt.Sprintf("Invalid year %q", value), convert.LevelError)
				m.textInput.SetValue("")
				return m, nil
			}
			year = n
		}
		m = m.endPrompt()
		m.add(m.pendingTitle, year)
		m.pendingTitle = ""
		return m, nil

	case promptOpen:
		m = m.endPrompt()
		if value == "" {
			return m, nil
		}
		m.state = StateLoading
		m.loadingPath = value
		return m, tea.Batch(m.loadFile(value), m.spinner.Tick)

	case promptSave:
		m = m.endPrompt()
		if value != "" {
			m.save(value)
		}
		return m, nil

	case promptExport:
		m = m.endPrompt()
		status, err := m.movies.ExportXML(value)
		if err != nil {
			m.log(err.Error(), convert.LevelError)
		} else {
			m.log(status, convert.LevelSuccess)
		}
		return m, nil
	}
	return m.endPrompt(), nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) Model {
	m.state = StateBrowse
	target := m.pendingDelete
	m.pendingDelete = nil
	if msg.String() != "y" || target == nil {
		return m
	}
	if m.movies.Delete(target) {
		m.log(fmt.Sprintf("Deleted %s", target), convert.LevelInfo)
	}
	if m.cursor >= m.movies.Len() {
		m.cursor = max(m.movies.Len()-1, 0)
	}
	return m
}

func (m *Model) add(title string, year int) {
	mv := model.NewMovie(title, year, model.UnknownMinutes, time.Time{}, "")
	if err := mv.Validate(); err != nil {
		m.log(err.Error(), convert.LevelError)
		return
	}
	m.movies.Add(mv)
	m.quitWarned = false
	for i := range m.movies.Len() {
		if m.movies.MovieAt(i) == mv {
			m.cursor = i
			break
		}
	}
	m.log(fmt.Sprintf("Added %s", mv), convert.LevelInfo)
}

func (m *Model) save(path string) {
	status, err := m.movies.Save(path)
	if err != nil {
		m.log(err.Error(), convert.LevelError)
		return
	}
	m.quitWarned = false
	m.log(status, convert.LevelSuccess)
	m.touch(m.movies.Filename())
}

// touch records path in the history store, when there is one.
func (m *Model) touch(path string) {
	if m.history == nil || path == "" {
		return
	}
	format := ""
	if cd, err := m.movies.Registry().Lookup(path); err == nil {
		format = cd.Name()
	}
	if err := m.history.Touch(path, format, m.movies.Len(), time.Now()); err != nil {
		m.log(fmt.Sprintf("Error recording history: %v", err), convert.LevelWarning)
	}
}

func (m *Model) log(message string, level convert.ProgressLevel) {
	m.logs = append(m.logs, LogEntry{Message: message, Level: level})
	// Keep only the last few lines
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// loadFile reads path into a fresh container off the UI goroutine.
func (m Model) loadFile(path string) tea.Cmd {
	logger := m.logger
	return func() tea.Msg {
		c := collection.New(collection.WithLogger(logger))
		var status string
		var err error
		if strings.EqualFold(filepath.Ext(path), ".xml") {
			status, err = c.ImportDOM(path)
		} else {
			status, err = c.Load(path)
		}
		return LoadDoneMsg{Path: path, Movies: c, Status: status, Err: err}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("Movie Collection"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.headerLine()))
	b.WriteString("\n\n")

	switch m.state {
	case StateLoading:
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(subtitleStyle.Render(fmt.Sprintf("Loading %s...", filepath.Base(m.loadingPath))))
		b.WriteString("\n")
	default:
		b.WriteString(m.viewList())
		b.WriteString(m.viewDetails())
	}

	switch m.state {
	case StatePrompt:
		b.WriteString("\n")
		b.WriteString(subtitleStyle.Render(promptLabel(m.prompt)))
		b.WriteString("\n")
		b.WriteString(m.textInput.View())
		b.WriteString("\n")
	case StateConfirmDelete:
		if m.pendingDelete != nil {
			b.WriteString("\n")
			b.WriteString(warningStyle.Render(fmt.Sprintf("Delete %s? (y/n)", m.pendingDelete)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderLogs())

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) headerLine() string {
	name := "(untitled)"
	if m.movies.Filename() != "" {
		name = filepath.Base(m.movies.Filename())
	}
	if m.movies.IsDirty() {
		name += " *"
	}
	return fmt.Sprintf("%s | %d movies", name, m.movies.Len())
}

// visibleRows is how many list rows fit on screen.
func (m Model) visibleRows() int {
	if m.height == 0 {
		return 15
	}
	return max(m.height-16, 3)
}

func (m Model) viewList() string {
	if m.movies.Len() == 0 {
		return infoStyle.Render("No movies yet. Press "+m.settings.Keys.Add+" to add one.") + "\n"
	}

	rows := m.visibleRows()
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, m.movies.Len())

	var b strings.Builder
	for i := start; i < end; i++ {
		mv := m.movies.MovieAt(i)
		line := fmt.Sprintf("%-50s %6s %8s", truncate(mv.Title, 50), yearText(mv.Year), minutesText(mv.Minutes))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("› " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewDetails() string {
	if m.movies.Len() == 0 || m.cursor >= m.movies.Len() {
		return ""
	}
	mv := m.movies.MovieAt(m.cursor)
	details := fmt.Sprintf("%s\nAcquired %s", mv, model.FormatDate(mv.Acquired))
	if mv.Minutes != model.UnknownMinutes {
		details += fmt.Sprintf(" | %d min", mv.Minutes)
	}
	if notes := strings.TrimSpace(mv.Notes); notes != "" {
		first, _, _ := strings.Cut(notes, "\n")
		details += "\n" + dimStyle.Render(truncate(first, 70))
	}
	return "\n" + boxStyle.Render(details) + "\n"
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case convert.LevelError:
			style = errorStyle
			prefix = "✗"
		case convert.LevelWarning:
			style = warningStyle
			prefix = "!"
		case convert.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case convert.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	k := m.settings.Keys
	switch m.state {
	case StatePrompt:
		return k.Confirm + ": confirm • " + k.Cancel + ": cancel"
	case StateConfirmDelete:
		return "y: delete • any other key: keep"
	case StateLoading:
		return "ctrl+c: quit"
	}
	return fmt.Sprintf("%s/%s: move • %s: add • %s: delete • %s: save • %s: open • %s: export XML • %s: quit",
		k.Up, k.Down, k.Add, k.Delete, k.Save, k.Open, k.Export, k.Quit)
}

func promptLabel(p prompt) string {
	switch p {
	case promptTitle:
		return "Title:"
	case promptYear:
		return "Year (blank if unknown):"
	case promptOpen:
		return "Open file:"
	case promptSave:
		return "Save as:"
	case promptExport:
		return "Export XML to:"
	}
	return ""
}

func promptPlaceholder(p prompt) string {
	switch p {
	case promptTitle:
		return "The Matrix"
	case promptYear:
		return "1999"
	case promptOpen, promptSave:
		return "movies.mqb"
	case promptExport:
		return "movies.xml"
	}
	return ""
}

func yearText(year int) string {
	if year == model.UnknownYear {
		return "?"
	}
	return strconv.Itoa(year)
}

func minutesText(minutes int) string {
	if minutes == model.UnknownMinutes {
		return ""
	}
	return strconv.Itoa(minutes) + " min"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Movies returns the collection being edited.
func (m Model) Movies() *collection.Container {
	return m.movies
}

// Run starts the TUI application.
func Run(settings *config.Settings, opts ...Option) error {
	p := tea.NewProgram(NewModel(settings, opts...), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
