package domain

// DefaultForeground is the starting palette for a fresh board.
func DefaultForeground() []Category {
	return []Category{
		{ID: "1", Label: "Red", Color: "#F44336", Active: true, Visible: true, Selected: true},
		{ID: "2", Label: "Blue", Color: "#2196F3", Active: true, Visible: true},
		{ID: "3", Label: "Green", Color: "#4CAF50", Active: true, Visible: true},
		{ID: "4", Label: "Yellow", Color: "#FFEB3B", Active: true, Visible: true},
	}
}

var palette = []string{"#9C27B0", "#FF9800", "#00BCD4", "#795548", "#607D8B", "#E91E63"}

// PaletteColor picks a starting color for the nth color category added
// at runtime, cycling when the palette runs out.
func PaletteColor(n int) string {
	if n < 0 {
		n = 0
	}
	return palette[n%len(palette)]
}

// DefaultText is the starting tag set for a fresh board.
func DefaultText() []Category {
	return []Category{
		{ID: "t1", Label: "★", Active: true, Visible: true},
		{ID: "t2", Label: "♥", Active: true, Visible: true},
		{ID: "t3", Label: "✓", Active: true, Visible: true},
	}
}
