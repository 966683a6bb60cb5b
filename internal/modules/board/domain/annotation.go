package domain

import (
	"errors"
	"sort"
	"time"
)

var ErrInvalidDate = errors.New("date must be YYYY-MM-DD")

// DateKey is the canonical ISO form annotations are keyed by.
const DateKey = "2006-01-02"

func ValidateDate(date string) error {
	if _, err := time.Parse(DateKey, date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// Annotation marks one calendar date. Color is a denormalized copy of
// the owning category's color and is kept consistent by the store.
type Annotation struct {
	Color      string   `json:"color,omitempty"`
	CategoryID string   `json:"categoryId,omitempty"`
	TagIDs     []string `json:"textCategoryIds,omitempty"`
}

// Empty reports whether the annotation carries nothing worth keeping.
// Empty annotations are deleted from the map, never stored.
func (a Annotation) Empty() bool {
	return a.CategoryID == "" && len(a.TagIDs) == 0
}

func (a Annotation) Clone() Annotation {
	out := a
	if a.TagIDs != nil {
		out.TagIDs = make([]string, len(a.TagIDs))
		copy(out.TagIDs, a.TagIDs)
	}
	return out
}

// WithTagToggled returns the annotation with tagID added if absent or
// removed if present. Tags stay sorted by numeric suffix regardless of
// toggle order.
func (a Annotation) WithTagToggled(tagID string) Annotation {
	out := a.Clone()
	for i, id := range out.TagIDs {
		if id == tagID {
			out.TagIDs = append(out.TagIDs[:i], out.TagIDs[i+1:]...)
			if len(out.TagIDs) == 0 {
				out.TagIDs = nil
			}
			return out
		}
	}
	out.TagIDs = append(out.TagIDs, tagID)
	sort.Slice(out.TagIDs, func(i, j int) bool {
		return TagLess(out.TagIDs[i], out.TagIDs[j])
	})
	return out
}

// CloneAnnotations deep-copies an annotation map.
func CloneAnnotations(in map[string]Annotation) map[string]Annotation {
	out := make(map[string]Annotation, len(in))
	for date, ann := range in {
		out[date] = ann.Clone()
	}
	return out
}
