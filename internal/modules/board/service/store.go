package service

import (
	"sync"

	"minicalen/internal/modules/board/domain"
	"minicalen/internal/platform/clock"
)

// Store is the single source of truth for categories and date
// annotations. All mutation goes through its methods; listeners are
// notified after each mutation completes, outside the store lock.
type Store struct {
	mu          sync.Mutex
	foreground  []domain.Category
	background  []domain.Category
	text        []domain.Category
	annotations map[string]domain.Annotation
	gate        *Gate
	clock       clock.Clock

	listenerMu sync.Mutex
	listeners  map[int]func()
	nextToken  int
}

func NewStore(clk clock.Clock) *Store {
	return &Store{
		foreground:  domain.DefaultForeground(),
		text:        domain.DefaultText(),
		annotations: map[string]domain.Annotation{},
		gate:        &Gate{},
		clock:       clk,
		listeners:   map[int]func(){},
	}
}

// Gate exposes the remote-apply marker for broadcast suppression.
func (s *Store) Gate() *Gate {
	return s.gate
}

// Subscribe registers a listener invoked after every mutation. The
// returned function removes it.
func (s *Store) Subscribe(fn func()) func() {
	s.listenerMu.Lock()
	token := s.nextToken
	s.nextToken++
	s.listeners[token] = fn
	s.listenerMu.Unlock()
	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, token)
		s.listenerMu.Unlock()
	}
}

func (s *Store) notify() {
	s.listenerMu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenerMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// SetDate assigns a color category to a date, or clears it when color
// or categoryID is empty. Clearing keeps the entry if tags remain and
// deletes it otherwise.
func (s *Store) SetDate(date, color, categoryID string) {
	s.mu.Lock()
	ann := s.annotations[date].Clone()
	if color != "" && categoryID != "" {
		ann.Color = color
		ann.CategoryID = categoryID
	} else {
		ann.Color = ""
		ann.CategoryID = ""
	}
	if ann.Empty() {
		delete(s.annotations, date)
	} else {
		s.annotations[date] = ann
	}
	s.mu.Unlock()
	s.notify()
}

// ToggleTag flips one tag on a date, deleting the entry when nothing
// remains.
func (s *Store) ToggleTag(date, tagID string) {
	s.mu.Lock()
	ann := s.annotations[date].WithTagToggled(tagID)
	if ann.Empty() {
		delete(s.annotations, date)
	} else {
		s.annotations[date] = ann
	}
	s.mu.Unlock()
	s.notify()
}

// SelectCategory makes the target the only selected category across
// both collections.
func (s *Store) SelectCategory(id string, kind domain.CategoryKind) {
	s.mu.Lock()
	for i := range s.foreground {
		s.foreground[i].Selected = false
	}
	for i := range s.text {
		s.text[i].Selected = false
	}
	switch kind {
	case domain.KindForeground:
		for i := range s.foreground {
			if s.foreground[i].ID == id {
				s.foreground[i].Selected = true
			}
		}
	case domain.KindText:
		for i := range s.text {
			if s.text[i].ID == id {
				s.text[i].Selected = true
			}
		}
	}
	s.mu.Unlock()
	s.notify()
}

// Selected returns the currently selected category and its kind, if
// any.
func (s *Store) Selected() (domain.Category, domain.CategoryKind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.foreground {
		if c.Selected {
			return c, domain.KindForeground, true
		}
	}
	for _, c := range s.text {
		if c.Selected {
			return c, domain.KindText, true
		}
	}
	return domain.Category{}, "", false
}

// SetCategoryColor changes a foreground category's color and recolors
// every annotation referencing it. The cascade is skipped while a
// remote apply holds the gate, since remote snapshots already carry
// consistent colors.
func (s *Store) SetCategoryColor(id, color string) {
	s.mu.Lock()
	found := false
	for i := range s.foreground {
		if s.foreground[i].ID == id {
			s.foreground[i].Color = color
			found = true
		}
	}
	if found && !s.gate.Held() {
		for date, ann := range s.annotations {
			if ann.CategoryID == id {
				ann = ann.Clone()
				ann.Color = color
				s.annotations[date] = ann
			}
		}
	}
	s.mu.Unlock()
	if found {
		s.notify()
	}
}

func (s *Store) SetCategoryLabel(id string, kind domain.CategoryKind, label string) {
	s.mu.Lock()
	s.updateCategory(id, kind, func(c *domain.Category) { c.Label = label })
	s.mu.Unlock()
	s.notify()
}

func (s *Store) SetCategoryActive(id string, kind domain.CategoryKind, active bool) {
	s.mu.Lock()
	s.updateCategory(id, kind, func(c *domain.Category) { c.Active = active })
	s.mu.Unlock()
	s.notify()
}

func (s *Store) SetCategoryVisible(id string, kind domain.CategoryKind, visible bool) {
	s.mu.Lock()
	s.updateCategory(id, kind, func(c *domain.Category) { c.Visible = visible })
	s.mu.Unlock()
	s.notify()
}

func (s *Store) updateCategory(id string, kind domain.CategoryKind, mutate func(*domain.Category)) {
	list := &s.foreground
	if kind == domain.KindText {
		list = &s.text
	}
	for i := range *list {
		if (*list)[i].ID == id {
			mutate(&(*list)[i])
		}
	}
}

// AddCategory appends a category to its collection.
func (s *Store) AddCategory(c domain.Category, kind domain.CategoryKind) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	if kind == domain.KindText {
		s.text = append(s.text, c)
	} else {
		s.foreground = append(s.foreground, c)
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// RemoveCategory deletes a category and scrubs annotations that
// referenced it, dropping entries left empty.
func (s *Store) RemoveCategory(id string, kind domain.CategoryKind) {
	s.mu.Lock()
	if kind == domain.KindText {
		s.text = removeByID(s.text, id)
		for date, ann := range s.annotations {
			next := ann
			for i, tagID := range ann.TagIDs {
				if tagID == id {
					next = ann.Clone()
					next.TagIDs = append(next.TagIDs[:i], next.TagIDs[i+1:]...)
					if len(next.TagIDs) == 0 {
						next.TagIDs = nil
					}
					break
				}
			}
			if next.Empty() {
				delete(s.annotations, date)
			} else {
				s.annotations[date] = next
			}
		}
	} else {
		s.foreground = removeByID(s.foreground, id)
		for date, ann := range s.annotations {
			if ann.CategoryID != id {
				continue
			}
			next := ann.Clone()
			next.CategoryID = ""
			next.Color = ""
			if next.Empty() {
				delete(s.annotations, date)
			} else {
				s.annotations[date] = next
			}
		}
	}
	s.mu.Unlock()
	s.notify()
}

func removeByID(list []domain.Category, id string) []domain.Category {
	out := list[:0]
	for _, c := range list {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// ApplyRemote replaces the collections with the snapshot's content as
// one unit. The gate is held until every listener has observed the new
// state, so nothing echoes the remote change back out. A snapshot
// without tag categories keeps the existing ones.
func (s *Store) ApplyRemote(snap domain.Snapshot) {
	s.gate.Enter()
	defer s.gate.Exit()

	s.mu.Lock()
	s.foreground = domain.CloneCategories(snap.ForegroundCategories)
	if s.foreground == nil {
		s.foreground = []domain.Category{}
	}
	// Background categories are legacy content with no local editor;
	// they ride along so a later save never loses them.
	s.background = domain.CloneCategories(snap.BackgroundCategories)
	if snap.TextCategories != nil {
		s.text = domain.CloneCategories(snap.TextCategories)
	}
	s.annotations = snap.AnnotationMap()
	s.mu.Unlock()

	s.notify()
}

// Snapshot copies current content into a serializable unit stamped
// with the current time.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Snapshot{
		ForegroundCategories: domain.CloneCategories(s.foreground),
		BackgroundCategories: domain.CloneCategories(s.background),
		TextCategories:       domain.CloneCategories(s.text),
		DateAnnotations:      domain.EntriesFromMap(s.annotations),
		Timestamp:            s.clock.Now(),
	}
}

// Categories returns copies of both editable collections.
func (s *Store) Categories() (foreground, text []domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneCategories(s.foreground), domain.CloneCategories(s.text)
}

// Annotation looks up one date.
func (s *Store) Annotation(date string) (domain.Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ann, ok := s.annotations[date]
	return ann.Clone(), ok
}

// Cells recomputes the calendar projection from current content.
func (s *Store) Cells() []domain.CellView {
	s.mu.Lock()
	fg := domain.CloneCategories(s.foreground)
	text := domain.CloneCategories(s.text)
	anns := domain.CloneAnnotations(s.annotations)
	s.mu.Unlock()
	return domain.Project(fg, text, anns)
}
