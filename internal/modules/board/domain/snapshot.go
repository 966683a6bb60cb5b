package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// DateEntry pairs a date with its annotation for the wire and disk
// representation, which carries annotations as an ordered list.
type DateEntry struct {
	Date string `json:"date"`
	Annotation
}

// Snapshot is the whole-document unit exchanged with peers and the
// relay. TextCategories has no omitempty on purpose: a nil slice after
// decode means the sender omitted the field, and remote apply keeps
// the existing tag categories in that case.
type Snapshot struct {
	ForegroundCategories []Category  `json:"foregroundCategories"`
	BackgroundCategories []Category  `json:"backgroundCategories"`
	TextCategories       []Category  `json:"textCategories"`
	DateAnnotations      []DateEntry `json:"dateAnnotations"`
	Timestamp            time.Time   `json:"timestamp"`
}

func (s Snapshot) Clone() Snapshot {
	out := s
	out.ForegroundCategories = CloneCategories(s.ForegroundCategories)
	out.BackgroundCategories = CloneCategories(s.BackgroundCategories)
	out.TextCategories = CloneCategories(s.TextCategories)
	if s.DateAnnotations != nil {
		out.DateAnnotations = make([]DateEntry, len(s.DateAnnotations))
		for i, entry := range s.DateAnnotations {
			out.DateAnnotations[i] = DateEntry{Date: entry.Date, Annotation: entry.Annotation.Clone()}
		}
	}
	return out
}

// AnnotationMap converts the entry list back to the keyed form,
// dropping entries that carry nothing.
func (s Snapshot) AnnotationMap() map[string]Annotation {
	out := make(map[string]Annotation, len(s.DateAnnotations))
	for _, entry := range s.DateAnnotations {
		if entry.Empty() {
			continue
		}
		out[entry.Date] = entry.Annotation.Clone()
	}
	return out
}

// EntriesFromMap flattens an annotation map into a date-sorted list so
// two snapshots of the same content serialize identically.
func EntriesFromMap(in map[string]Annotation) []DateEntry {
	out := make([]DateEntry, 0, len(in))
	for date, ann := range in {
		out = append(out, DateEntry{Date: date, Annotation: ann.Clone()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Fingerprint hashes the snapshot's content. The timestamp is excluded
// so change detection compares what the user sees, not when it was
// produced. Annotations are canonicalized through the keyed form first,
// so entry order and empty placeholders never affect the hash.
func (s Snapshot) Fingerprint() string {
	content := struct {
		Foreground  []Category  `json:"fg"`
		Background  []Category  `json:"bg"`
		Text        []Category  `json:"text"`
		Annotations []DateEntry `json:"anns"`
	}{
		Foreground:  s.ForegroundCategories,
		Background:  s.BackgroundCategories,
		Text:        s.TextCategories,
		Annotations: EntriesFromMap(s.AnnotationMap()),
	}
	payload, _ := json.Marshal(content)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// SameContent reports structural equality of two snapshots, timestamps
// excluded.
func (s Snapshot) SameContent(other Snapshot) bool {
	return s.Fingerprint() == other.Fingerprint()
}
