package calendar

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	boarddomain "minicalen/internal/modules/board/domain"
	"minicalen/internal/ui/theme"
)

const cellWidth = 6

// Model renders one month of annotated dates and owns the date cursor.
type Model struct {
	month  time.Time
	cursor time.Time
	cells  map[string]boarddomain.CellView
	width  int
	height int
}

func New(today time.Time) Model {
	return Model{
		month:  time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC),
		cursor: time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC),
		cells:  map[string]boarddomain.CellView{},
	}
}

// SetCells replaces the projected visual state.
func (m *Model) SetCells(cells []boarddomain.CellView) {
	m.cells = make(map[string]boarddomain.CellView, len(cells))
	for _, cell := range cells {
		m.cells[cell.Date] = cell
	}
}

// CursorDate is the date the cursor sits on, in annotation key form.
func (m Model) CursorDate() string {
	return m.cursor.Format(boarddomain.DateKey)
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
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "left", "h":
		m.moveCursor(-1)
	case "right", "l":
		m.moveCursor(1)
	case "up", "k":
		m.moveCursor(-7)
	case "down", "j":
		m.moveCursor(7)
	case "pgup", "p":
		m.month = m.month.AddDate(0, -1, 0)
		m.cursor = m.clampToMonth(m.cursor)
	case "pgdown", "n":
		m.month = m.month.AddDate(0, 1, 0)
		m.cursor = m.clampToMonth(m.cursor)
	case "home", "g":
		now := time.Now().UTC()
		m.month = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		m.cursor = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	return m, nil
}

func (m *Model) moveCursor(days int) {
	m.cursor = m.cursor.AddDate(0, 0, days)
	if m.cursor.Month() != m.month.Month() || m.cursor.Year() != m.month.Year() {
		m.month = time.Date(m.cursor.Year(), m.cursor.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
}

func (m Model) clampToMonth(cursor time.Time) time.Time {
	day := cursor.Day()
	lastDay := m.month.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(m.month.Year(), m.month.Month(), day, 0, 0, 0, 0, time.UTC)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(theme.Title.Render(m.month.Format("January 2006")))
	b.WriteString("\n")

	header := make([]string, 0, 7)
	for _, day := range []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"} {
		header = append(header, theme.Muted.Render(padCell(day)))
	}
	b.WriteString(strings.Join(header, ""))
	b.WriteString("\n")

	// Monday-first grid.
	first := m.month
	offset := (int(first.Weekday()) + 6) % 7
	lastDay := m.month.AddDate(0, 1, -1).Day()

	col := 0
	for i := 0; i < offset; i++ {
		b.WriteString(padCell(""))
		col++
	}
	for day := 1; day <= lastDay; day++ {
		date := time.Date(m.month.Year(), m.month.Month(), day, 0, 0, 0, 0, time.UTC)
		b.WriteString(m.renderCell(date))
		col++
		if col == 7 {
			b.WriteString("\n")
			col = 0
		}
	}
	if col != 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderCell(date time.Time) string {
	key := date.Format(boarddomain.DateKey)
	cell, annotated := m.cells[key]

	label := padCell(date.Format("2") + glyphString(cell))
	style := lipgloss.NewStyle()
	if annotated && cell.Fill != "" {
		fg := lipgloss.Color("#1e1e2e")
		style = style.Background(lipgloss.Color(cell.Fill)).Foreground(fg)
		if cell.Dimmed {
			style = style.Faint(true)
		}
	}
	if key == m.cursor.Format(boarddomain.DateKey) {
		style = style.Reverse(true).Bold(true)
	}
	return style.Render(label)
}

func glyphString(cell boarddomain.CellView) string {
	if len(cell.Glyphs) == 0 {
		return ""
	}
	glyphs := cell.Glyphs
	if len(glyphs) > 2 {
		glyphs = glyphs[:2]
	}
	var b strings.Builder
	b.WriteString(" ")
	for _, g := range glyphs {
		b.WriteString(g.Symbol)
	}
	return b.String()
}

func padCell(s string) string {
	if runeLen := lipgloss.Width(s); runeLen < cellWidth {
		return s + strings.Repeat(" ", cellWidth-runeLen)
	}
	return s
}
