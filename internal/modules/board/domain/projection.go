package domain

import (
	"sort"
	"unicode/utf8"
)

// Glyph is the rendered form of one tag on a calendar cell.
type Glyph struct {
	Symbol string
	Color  string
	Dimmed bool
}

// CellView is the computed visual state of one annotated calendar
// cell. It is a pure projection of store content and carries no state
// of its own.
type CellView struct {
	Date   string
	Fill   string
	Dimmed bool
	Glyphs []Glyph
}

// Symbol reduces a tag label to a single rune for cell rendering. A
// one-rune label (the usual case) passes through unchanged.
func Symbol(label string) string {
	r, size := utf8.DecodeRuneInString(label)
	if size == 0 || r == utf8.RuneError {
		return "·"
	}
	return string(r)
}

// Project recomputes the per-date visual attributes from current
// categories and annotations. An annotation referencing an unknown
// category renders without a fill, tags only. Dates with nothing to
// show are omitted.
func Project(foreground, text []Category, annotations map[string]Annotation) []CellView {
	fgByID := make(map[string]Category, len(foreground))
	for _, c := range foreground {
		fgByID[c.ID] = c
	}
	textByID := make(map[string]Category, len(text))
	for _, c := range text {
		textByID[c.ID] = c
	}

	out := make([]CellView, 0, len(annotations))
	for date, ann := range annotations {
		cell := CellView{Date: date}
		if ann.CategoryID != "" {
			if cat, ok := fgByID[ann.CategoryID]; ok {
				cell.Fill = cat.Color
				cell.Dimmed = !cat.Active || !cat.Visible
			}
		}
		for _, tagID := range ann.TagIDs {
			tag, ok := textByID[tagID]
			if !ok || !tag.Visible {
				continue
			}
			cell.Glyphs = append(cell.Glyphs, Glyph{
				Symbol: Symbol(tag.Label),
				Color:  tag.Color,
				Dimmed: !tag.Active,
			})
		}
		if cell.Fill == "" && len(cell.Glyphs) == 0 {
			continue
		}
		out = append(out, cell)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
