package service

import (
	"reflect"
	"testing"
	"time"

	"minicalen/internal/modules/board/domain"
	"minicalen/internal/platform/clock"
)

func newTestStore() *Store {
	return NewStore(clock.Frozen{At: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)})
}

func TestSetDateScenario(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	date := "2024-03-15"

	s.SetDate(date, "#F44336", "1")
	ann, ok := s.Annotation(date)
	if !ok || ann.Color != "#F44336" || ann.CategoryID != "1" {
		t.Fatalf("after set: %+v ok=%v", ann, ok)
	}

	s.ToggleTag(date, "t1")
	ann, _ = s.Annotation(date)
	if !reflect.DeepEqual(ann.TagIDs, []string{"t1"}) {
		t.Fatalf("tags = %v", ann.TagIDs)
	}

	s.SetDate(date, "", "")
	ann, ok = s.Annotation(date)
	if !ok {
		t.Fatal("entry with tags must survive clearing the color")
	}
	if ann.CategoryID != "" || ann.Color != "" {
		t.Fatalf("color not cleared: %+v", ann)
	}
	if !reflect.DeepEqual(ann.TagIDs, []string{"t1"}) {
		t.Fatalf("tags lost: %v", ann.TagIDs)
	}

	s.ToggleTag(date, "t1")
	if _, ok := s.Annotation(date); ok {
		t.Fatal("entry must be deleted once nothing remains")
	}
}

func TestCleanupInvariantUnderMixedMutation(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	for _, d := range dates {
		s.SetDate(d, "#F44336", "1")
		s.ToggleTag(d, "t2")
		s.SetDate(d, "", "")
		s.ToggleTag(d, "t1")
		s.ToggleTag(d, "t2")
	}
	for _, entry := range s.Snapshot().DateAnnotations {
		if entry.Empty() {
			t.Fatalf("empty annotation stored for %s", entry.Date)
		}
	}
}

func TestSelectCategoryIsGloballyExclusive(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	s.SelectCategory("2", domain.KindForeground)
	s.SelectCategory("t1", domain.KindText)

	fg, text := s.Categories()
	selected := 0
	for _, c := range append(fg, text...) {
		if c.Selected {
			selected++
			if c.ID != "t1" {
				t.Fatalf("wrong category selected: %s", c.ID)
			}
		}
	}
	if selected != 1 {
		t.Fatalf("%d categories selected, want 1", selected)
	}

	got, kind, ok := s.Selected()
	if !ok || got.ID != "t1" || kind != domain.KindText {
		t.Fatalf("Selected() = %v %v %v", got.ID, kind, ok)
	}
}

func TestCascadingRecolor(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	s.SetDate("2024-01-01", "#F44336", "1")
	s.SetDate("2024-01-02", "#2196F3", "2")

	s.SetCategoryColor("1", "#000000")

	ann, _ := s.Annotation("2024-01-01")
	if ann.Color != "#000000" {
		t.Fatalf("annotation not recolored: %q", ann.Color)
	}
	other, _ := s.Annotation("2024-01-02")
	if other.Color != "#2196F3" {
		t.Fatalf("unrelated annotation recolored: %q", other.Color)
	}
}

func TestApplyRemoteHoldsGateAcrossListeners(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	heldDuringNotify := false
	unsubscribe := s.Subscribe(func() {
		heldDuringNotify = s.Gate().Held()
	})
	defer unsubscribe()

	s.ApplyRemote(domain.Snapshot{
		ForegroundCategories: []domain.Category{{ID: "9", Color: "#123456", Active: true, Visible: true}},
		TextCategories:       []domain.Category{},
	})

	if !heldDuringNotify {
		t.Fatal("gate must be held while listeners run")
	}
	if s.Gate().Held() {
		t.Fatal("gate must be released after apply completes")
	}
}

func TestApplyRemoteMatchesFingerprint(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	remote := domain.Snapshot{
		ForegroundCategories: []domain.Category{{ID: "1", Label: "Red", Color: "#F44336", Active: true, Visible: true}},
		TextCategories:       []domain.Category{{ID: "t1", Label: "★", Active: true, Visible: true}},
		DateAnnotations: []domain.DateEntry{
			{Date: "2024-03-15", Annotation: domain.Annotation{Color: "#F44336", CategoryID: "1", TagIDs: []string{"t1"}}},
		},
		Timestamp: time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC),
	}

	s.ApplyRemote(remote)

	if !s.Snapshot().SameContent(remote) {
		t.Fatal("store content must match the applied snapshot")
	}
}

func TestApplyRemoteKeepsTextCategoriesWhenOmitted(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	_, before := s.Categories()
	if len(before) == 0 {
		t.Fatal("expected default tag categories")
	}

	s.ApplyRemote(domain.Snapshot{
		ForegroundCategories: []domain.Category{{ID: "1", Active: true, Visible: true}},
	})

	_, after := s.Categories()
	if !reflect.DeepEqual(after, before) {
		t.Fatalf("tag categories changed: %v -> %v", before, after)
	}
}

func TestSetCategoryLabelNotifiesListeners(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	calls := 0
	unsubscribe := s.Subscribe(func() { calls++ })
	defer unsubscribe()

	s.SetCategoryLabel("t1", domain.KindText, "urgent")

	_, text := s.Categories()
	if text[0].Label != "urgent" {
		t.Fatalf("label = %q, want urgent", text[0].Label)
	}
	if calls != 1 {
		t.Fatalf("listener ran %d times, want 1", calls)
	}
}

func TestAddCategoryValidatesAndAppends(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	if err := s.AddCategory(domain.Category{Label: "no id"}, domain.KindForeground); err == nil {
		t.Fatal("category without an id accepted")
	}

	next := domain.Category{ID: "5", Label: "Purple", Color: "#9C27B0", Active: true, Visible: true}
	if err := s.AddCategory(next, domain.KindForeground); err != nil {
		t.Fatalf("add: %v", err)
	}
	fg, _ := s.Categories()
	if fg[len(fg)-1].ID != "5" {
		t.Fatalf("last category = %+v", fg[len(fg)-1])
	}

	tag := domain.Category{ID: "t4", Label: "!", Active: true, Visible: true}
	if err := s.AddCategory(tag, domain.KindText); err != nil {
		t.Fatalf("add tag: %v", err)
	}
	_, text := s.Categories()
	if text[len(text)-1].ID != "t4" {
		t.Fatalf("last tag = %+v", text[len(text)-1])
	}
}

func TestRemoveCategoryScrubsAnnotations(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	s.SetDate("2024-01-01", "#F44336", "1")
	s.ToggleTag("2024-01-01", "t1")
	s.SetDate("2024-01-02", "#F44336", "1")

	s.RemoveCategory("1", domain.KindForeground)

	ann, ok := s.Annotation("2024-01-01")
	if !ok || ann.CategoryID != "" || len(ann.TagIDs) != 1 {
		t.Fatalf("tagged entry mishandled: %+v ok=%v", ann, ok)
	}
	if _, ok := s.Annotation("2024-01-02"); ok {
		t.Fatal("entry with only the removed category must be deleted")
	}

	s.RemoveCategory("t1", domain.KindText)
	if _, ok := s.Annotation("2024-01-01"); ok {
		t.Fatal("entry must be deleted when its last tag is removed")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	calls := 0
	unsubscribe := s.Subscribe(func() { calls++ })

	s.SetDate("2024-01-01", "#F44336", "1")
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	unsubscribe()
	s.SetDate("2024-01-02", "#F44336", "1")
	if calls != 1 {
		t.Fatalf("calls after unsubscribe = %d, want 1", calls)
	}
}

func TestSnapshotIsDetachedCopy(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	s.SetDate("2024-01-01", "#F44336", "1")

	snap := s.Snapshot()
	snap.DateAnnotations[0].Color = "#FFFFFF"
	snap.ForegroundCategories[0].Label = "mutated"

	ann, _ := s.Annotation("2024-01-01")
	if ann.Color != "#F44336" {
		t.Fatal("snapshot aliases store annotations")
	}
	fg, _ := s.Categories()
	if fg[0].Label == "mutated" {
		t.Fatal("snapshot aliases store categories")
	}
}
