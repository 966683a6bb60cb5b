package app

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	boarddomain "minicalen/internal/modules/board/domain"
	syncdto "minicalen/internal/modules/sync/dto"
	apperrors "minicalen/internal/platform/errors"
	"minicalen/internal/ui/theme"
	calendarview "minicalen/internal/ui/views/calendar"
	sidebarview "minicalen/internal/ui/views/sidebar"
)

// ─── ports ───────────────────────────────────────────────────────────────────

type boardPort interface {
	SetDate(date, color, categoryID string)
	ToggleTag(date, tagID string)
	SelectCategory(id string, kind boarddomain.CategoryKind)
	SetCategoryActive(id string, kind boarddomain.CategoryKind, active bool)
	SetCategoryVisible(id string, kind boarddomain.CategoryKind, visible bool)
	SetCategoryLabel(id string, kind boarddomain.CategoryKind, label string)
	AddCategory(c boarddomain.Category, kind boarddomain.CategoryKind) error
	Selected() (boarddomain.Category, boarddomain.CategoryKind, bool)
	Categories() (foreground, text []boarddomain.Category)
	Cells() []boarddomain.CellView
}

type syncPort interface {
	Save(ctx context.Context) (syncdto.SaveOutput, error)
	Load(ctx context.Context, sessionID string) (syncdto.LoadOutput, error)
	Resume(ctx context.Context) (syncdto.LoadOutput, error)
}

type connectionPort interface {
	Connected() bool
}

// ─── panes ───────────────────────────────────────────────────────────────────

type paneID int

const (
	paneCalendar paneID = iota
	paneSidebar
	paneCount
)

// promptMode says what the text prompt is collecting.
type promptMode int

const (
	promptNone promptMode = iota
	promptLoad
	promptRename
	promptAdd
)

// ─── async messages ───────────────────────────────────────────────────────────

type boardChangedMsg struct{}

type savedMsg struct {
	out syncdto.SaveOutput
	err error
}

type loadedMsg struct {
	out syncdto.LoadOutput
	err error
}

type tickMsg time.Time

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Pane   key.Binding
	Apply  key.Binding
	Clear  key.Binding
	Save   key.Binding
	Load   key.Binding
	Resume key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Pane:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		Apply:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "apply category")),
		Clear:  key.NewBinding(key.WithKeys("x", "backspace"), key.WithHelp("x", "clear color")),
		Save:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save session")),
		Load:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open session")),
		Resume: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume last")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pane, k.Apply, k.Save, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pane, k.Apply, k.Clear},
		{k.Save, k.Load, k.Resume},
		{k.Help, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model: a calendar pane, a category
// sidebar, a session prompt, and a status bar. Board mutations go
// through the board port; everything network-shaped goes through the
// sync port and reports back asynchronously.
type Model struct {
	board   boardPort
	sync    syncPort
	conn    connectionPort
	updates <-chan struct{}

	calView  calendarview.Model
	sideView sidebarview.Model

	activePane paneID
	keys       keyMap
	help       help.Model
	showHelp   bool

	prompt     textinput.Model
	promptFor  promptMode
	renameID   string
	promptKind boarddomain.CategoryKind

	sessionID string
	status    string
	width     int
	height    int
}

func NewModel(board boardPort, sync syncPort, conn connectionPort, updates <-chan struct{}, sessionID string) Model {
	prompt := textinput.New()
	prompt.Placeholder = "session id"
	prompt.CharLimit = 64

	m := Model{
		board:     board,
		sync:      sync,
		conn:      conn,
		updates:   updates,
		calView:   calendarview.New(time.Now().UTC()),
		sideView:  sidebarview.New(),
		keys:      defaultKeys(),
		help:      help.New(),
		prompt:    prompt,
		sessionID: sessionID,
		status:    "ready",
	}
	m.refresh()
	return m
}

func (m *Model) refresh() {
	m.calView.SetCells(m.board.Cells())
	fg, text := m.board.Categories()
	m.sideView.SetCategories(fg, text)
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForBoard(), m.tick())
}

// waitForBoard blocks on the board's change feed so remote applies
// repaint without user input.
func (m Model) waitForBoard() tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-m.updates; !ok {
			return nil
		}
		return boardChangedMsg{}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// ─── update ───────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.calView.SetSize(msg.Width*2/3, msg.Height-4)
		m.sideView.SetSize(msg.Width/3, msg.Height-4)
		return m, nil

	case boardChangedMsg:
		m.refresh()
		return m, m.waitForBoard()

	case tickMsg:
		// Periodic repaint keeps the connection indicator honest.
		return m, m.tick()

	case savedMsg:
		if msg.err != nil {
			m.status = "save failed: " + msg.err.Error()
		} else {
			m.sessionID = msg.out.SessionID
			if msg.out.Created {
				m.status = "session created: " + msg.out.SessionID
			} else {
				m.status = "saved at " + msg.out.Timestamp.Local().Format("15:04:05")
			}
		}
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, apperrors.ErrNotFound) {
				m.status = "session not found"
			} else if errors.Is(msg.err, apperrors.ErrNoSession) {
				m.status = "nothing to resume"
			} else {
				m.status = "load failed: " + msg.err.Error()
			}
		} else {
			m.sessionID = msg.out.SessionID
			m.status = "loaded session " + msg.out.SessionID
			m.refresh()
		}
		return m, nil

	case sidebarview.SelectMsg:
		m.board.SelectCategory(msg.ID, msg.Kind)
		m.refresh()
		return m, nil

	case sidebarview.ToggleActiveMsg:
		m.board.SetCategoryActive(msg.ID, msg.Kind, msg.Active)
		m.refresh()
		return m, nil

	case sidebarview.ToggleVisibleMsg:
		m.board.SetCategoryVisible(msg.ID, msg.Kind, msg.Visible)
		m.refresh()
		return m, nil

	case sidebarview.RenameMsg:
		m.promptFor = promptRename
		m.renameID = msg.ID
		m.promptKind = msg.Kind
		m.prompt.Placeholder = "label"
		m.prompt.SetValue(msg.Label)
		m.prompt.Focus()
		m.status = "rename category"
		return m, textinput.Blink

	case sidebarview.AddMsg:
		m.promptFor = promptAdd
		m.promptKind = msg.Kind
		m.prompt.Placeholder = "label"
		m.prompt.SetValue("")
		m.prompt.Focus()
		m.status = "new category label"
		return m, textinput.Blink

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.promptFor != promptNone {
		switch msg.String() {
		case "enter":
			value := m.prompt.Value()
			mode := m.promptFor
			m.closePrompt()
			return m.submitPrompt(mode, value)
		case "esc":
			m.closePrompt()
			m.status = "ready"
			return m, nil
		}
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}

	if m.showHelp {
		if msg.String() == "?" || msg.String() == "esc" {
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.Pane):
		m.activePane = (m.activePane + 1) % paneCount
		return m, nil
	case key.Matches(msg, m.keys.Save):
		m.status = "saving"
		return m, m.saveCmd()
	case key.Matches(msg, m.keys.Load):
		m.promptFor = promptLoad
		m.prompt.Placeholder = "session id"
		m.prompt.Focus()
		m.status = "enter a session id"
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Resume):
		m.status = "resuming"
		return m, m.resumeCmd()
	}

	if m.activePane == paneCalendar {
		switch {
		case key.Matches(msg, m.keys.Apply):
			m.applySelected()
			return m, nil
		case key.Matches(msg, m.keys.Clear):
			m.board.SetDate(m.calView.CursorDate(), "", "")
			m.refresh()
			return m, nil
		}
		var cmd tea.Cmd
		m.calView, cmd = m.calView.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.sideView, cmd = m.sideView.Update(msg)
	return m, cmd
}

func (m *Model) closePrompt() {
	m.promptFor = promptNone
	m.prompt.Blur()
	m.prompt.SetValue("")
}

func (m Model) submitPrompt(mode promptMode, value string) (tea.Model, tea.Cmd) {
	switch mode {
	case promptLoad:
		if value == "" {
			m.status = "ready"
			return m, nil
		}
		m.status = "loading " + value
		return m, m.loadCmd(value)
	case promptRename:
		if value != "" {
			m.board.SetCategoryLabel(m.renameID, m.promptKind, value)
			m.refresh()
		}
		m.status = "ready"
		return m, nil
	case promptAdd:
		if value == "" {
			m.status = "ready"
			return m, nil
		}
		m.addCategory(value)
		return m, nil
	}
	return m, nil
}

// addCategory mints an id in the collection's numbering scheme and,
// for color categories, a starting color from the palette.
func (m *Model) addCategory(label string) {
	fg, text := m.board.Categories()
	c := boarddomain.Category{Label: label, Active: true, Visible: true}
	if m.promptKind == boarddomain.KindText {
		c.ID = boarddomain.NextCategoryID(boarddomain.KindText, text)
	} else {
		c.ID = boarddomain.NextCategoryID(boarddomain.KindForeground, fg)
		c.Color = boarddomain.PaletteColor(len(fg))
	}
	if err := m.board.AddCategory(c, m.promptKind); err != nil {
		m.status = "add failed: " + err.Error()
		return
	}
	m.status = "added " + label
	m.refresh()
}

// applySelected paints the cursor date with the selected category, or
// toggles the selected tag on it.
func (m *Model) applySelected() {
	selected, kind, ok := m.board.Selected()
	if !ok {
		m.status = "no category selected"
		return
	}
	date := m.calView.CursorDate()
	switch kind {
	case boarddomain.KindForeground:
		m.board.SetDate(date, selected.Color, selected.ID)
	case boarddomain.KindText:
		m.board.ToggleTag(date, selected.ID)
	}
	m.refresh()
}

// ─── commands ─────────────────────────────────────────────────────────────────

func (m Model) saveCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.sync.Save(context.Background())
		return savedMsg{out: out, err: err}
	}
}

func (m Model) loadCmd(sessionID string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.sync.Load(context.Background(), sessionID)
		return loadedMsg{out: out, err: err}
	}
}

func (m Model) resumeCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.sync.Resume(context.Background())
		return loadedMsg{out: out, err: err}
	}
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.showHelp {
		return theme.App.Render(m.help.FullHelpView(m.keys.FullHelp()))
	}

	calPane := theme.Pane
	sidePane := theme.Pane
	if m.activePane == paneCalendar {
		calPane = theme.PaneActive
	} else {
		sidePane = theme.PaneActive
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		calPane.Render(m.calView.View()),
		sidePane.Render(m.sideView.View()),
	)

	var footer string
	switch m.promptFor {
	case promptNone:
		footer = m.renderStatusBar()
	case promptLoad:
		footer = "load: " + m.prompt.View()
	default:
		footer = "label: " + m.prompt.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, footer)
}

func (m Model) renderStatusBar() string {
	session := "no session"
	if m.sessionID != "" {
		session = "session " + m.sessionID
	}

	conn := theme.Bad.Render("offline")
	if m.conn != nil && m.conn.Connected() {
		conn = theme.Ok.Render("online")
	}

	left := theme.Muted.Render(session) + "  " + conn
	right := theme.Muted.Render(m.status + "  ·  ? help")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + lipgloss.NewStyle().Width(gap).Render("") + right
}
