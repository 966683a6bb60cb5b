package sidebar

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	boarddomain "minicalen/internal/modules/board/domain"
	"minicalen/internal/ui/theme"
)

// SelectMsg asks the application to make this category the selected
// one.
type SelectMsg struct {
	ID   string
	Kind boarddomain.CategoryKind
}

// ToggleActiveMsg flips the highlighted category's active flag.
type ToggleActiveMsg struct {
	ID     string
	Kind   boarddomain.CategoryKind
	Active bool
}

// ToggleVisibleMsg flips the highlighted category's visibility.
type ToggleVisibleMsg struct {
	ID      string
	Kind    boarddomain.CategoryKind
	Visible bool
}

// RenameMsg asks the application to prompt for a new label for the
// highlighted category.
type RenameMsg struct {
	ID    string
	Kind  boarddomain.CategoryKind
	Label string
}

// AddMsg asks the application to prompt for a new category in the
// highlighted collection.
type AddMsg struct {
	Kind boarddomain.CategoryKind
}

type row struct {
	category boarddomain.Category
	kind     boarddomain.CategoryKind
}

// Model lists both category collections and moves a highlight cursor
// over them. Selection and flag changes are emitted as messages; the
// board itself is never touched from here.
type Model struct {
	rows   []row
	cursor int
	width  int
	height int
}

func New() Model {
	return Model{}
}

// SetCategories rebuilds the rows from current board content.
func (m *Model) SetCategories(foreground, text []boarddomain.Category) {
	m.rows = m.rows[:0]
	for _, c := range foreground {
		m.rows = append(m.rows, row{category: c, kind: boarddomain.KindForeground})
	}
	for _, c := range text {
		m.rows = append(m.rows, row{category: c, kind: boarddomain.KindText})
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || len(m.rows) == 0 {
		return m, nil
	}

	switch keyMsg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "enter", " ":
		r := m.rows[m.cursor]
		return m, func() tea.Msg { return SelectMsg{ID: r.category.ID, Kind: r.kind} }
	case "a":
		r := m.rows[m.cursor]
		return m, func() tea.Msg {
			return ToggleActiveMsg{ID: r.category.ID, Kind: r.kind, Active: !r.category.Active}
		}
	case "v":
		r := m.rows[m.cursor]
		return m, func() tea.Msg {
			return ToggleVisibleMsg{ID: r.category.ID, Kind: r.kind, Visible: !r.category.Visible}
		}
	case "e":
		r := m.rows[m.cursor]
		return m, func() tea.Msg {
			return RenameMsg{ID: r.category.ID, Kind: r.kind, Label: r.category.Label}
		}
	case "+":
		r := m.rows[m.cursor]
		return m, func() tea.Msg { return AddMsg{Kind: r.kind} }
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Categories"))
	b.WriteString("\n")

	lastKind := boarddomain.CategoryKind("")
	for i, r := range m.rows {
		if r.kind != lastKind {
			lastKind = r.kind
			b.WriteString(theme.Muted.Render(divider(r.kind)))
			b.WriteString("\n")
		}
		b.WriteString(m.renderRow(i, r))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(theme.Muted.Render("enter select · a active · v visible · e rename · + add"))
	return b.String()
}

func divider(kind boarddomain.CategoryKind) string {
	if kind == boarddomain.KindText {
		return "─── tags ───"
	}
	return "─── colors ───"
}

func (m Model) renderRow(index int, r row) string {
	marker := "  "
	if r.category.Selected {
		marker = "● "
	}

	swatch := "  "
	if r.category.Color != "" {
		swatch = lipgloss.NewStyle().Background(lipgloss.Color(r.category.Color)).Render("  ")
	} else if r.category.Label != "" && r.kind == boarddomain.KindText {
		swatch = r.category.Label + " "
	}

	label := r.category.Label
	flags := ""
	if !r.category.Active {
		flags += " [off]"
	}
	if !r.category.Visible {
		flags += " [hidden]"
	}

	line := marker + swatch + " " + label + theme.Muted.Render(flags)
	if index == m.cursor {
		return lipgloss.NewStyle().Foreground(theme.Lavender).Bold(true).Render(line)
	}
	if !r.category.Active {
		return theme.Muted.Render(line)
	}
	return line
}
