package domain

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrInvalidCategory  = errors.New("category is invalid")
)

// CategoryKind names the collection a category lives in. Background
// categories still round-trip through snapshots but are never edited.
type CategoryKind string

const (
	KindForeground CategoryKind = "foreground"
	KindText       CategoryKind = "text"
	KindBackground CategoryKind = "background"
)

type Category struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Color    string `json:"color,omitempty"`
	Active   bool   `json:"active"`
	Selected bool   `json:"selected"`
	Visible  bool   `json:"visible"`
}

// UnmarshalJSON defaults Active and Visible to true when a snapshot
// produced by an older client omits them.
func (c *Category) UnmarshalJSON(data []byte) error {
	type alias Category
	raw := struct {
		alias
		Active  *bool `json:"active"`
		Visible *bool `json:"visible"`
	}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Category(raw.alias)
	c.Active = raw.Active == nil || *raw.Active
	c.Visible = raw.Visible == nil || *raw.Visible
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrInvalidCategory
	}
	return nil
}

// NextCategoryID mints the next id in a collection's numbering
// scheme: plain integers for color categories, a "t" prefix for tags.
func NextCategoryID(kind CategoryKind, existing []Category) string {
	prefix := ""
	if kind == KindText {
		prefix = "t"
	}
	max := 0
	for _, c := range existing {
		id := c.ID
		if prefix != "" {
			if !strings.HasPrefix(id, prefix) {
				continue
			}
			id = strings.TrimPrefix(id, prefix)
		}
		if n, err := strconv.Atoi(id); err == nil && n > max {
			max = n
		}
	}
	return prefix + strconv.Itoa(max+1)
}

// TagSortKey orders tag categories by the numeric suffix of their id,
// so t2 sorts before t10. Ids without a numeric suffix sort after all
// numbered ids, by raw string.
func TagSortKey(id string) (int, string) {
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	if i == len(id) {
		return 1 << 30, id
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil {
		return 1 << 30, id
	}
	return n, id
}

// TagLess reports whether tag id a displays before tag id b.
func TagLess(a, b string) bool {
	an, as := TagSortKey(a)
	bn, bs := TagSortKey(b)
	if an != bn {
		return an < bn
	}
	return as < bs
}

// CloneCategories returns an independent copy of a category slice.
func CloneCategories(in []Category) []Category {
	if in == nil {
		return nil
	}
	out := make([]Category, len(in))
	copy(out, in)
	return out
}
