package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	boarddomain "minicalen/internal/modules/board/domain"
	boardservice "minicalen/internal/modules/board/service"
	"minicalen/internal/modules/sync/domain"
	"minicalen/internal/platform/clock"
	apperrors "minicalen/internal/platform/errors"
)

const testDebounce = 30 * time.Millisecond

type fakeSnapshots struct {
	mu    sync.Mutex
	saved map[string]boarddomain.Snapshot
	times map[string]time.Time
	fail  error
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{saved: map[string]boarddomain.Snapshot{}, times: map[string]time.Time{}}
}

func (f *fakeSnapshots) Save(_ context.Context, id string, snap boarddomain.Snapshot) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return time.Time{}, f.fail
	}
	f.saved[id] = snap.Clone()
	f.times[id] = snap.Timestamp
	return snap.Timestamp, nil
}

func (f *fakeSnapshots) Load(_ context.Context, id string) (boarddomain.Snapshot, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.saved[id]
	if !ok {
		return boarddomain.Snapshot{}, time.Time{}, apperrors.ErrNotFound
	}
	return snap.Clone(), f.times[id], nil
}

func (f *fakeSnapshots) List(_ context.Context) ([]domain.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SessionInfo, 0, len(f.saved))
	for id := range f.saved {
		out = append(out, domain.SessionInfo{ID: id, Timestamp: f.times[id]})
	}
	return out, nil
}

func (f *fakeSnapshots) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.saved[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.saved, id)
	delete(f.times, id)
	return nil
}

type published struct {
	sessionID string
	snap      boarddomain.Snapshot
}

type fakeChannel struct {
	mu      sync.Mutex
	joined  []string
	left    []string
	sent    []published
	handler func(string, boarddomain.Snapshot)
}

func (f *fakeChannel) Join(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, id)
	return nil
}

func (f *fakeChannel) Leave(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, id)
	return nil
}

func (f *fakeChannel) Publish(id string, snap boarddomain.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, published{sessionID: id, snap: snap.Clone()})
	return nil
}

func (f *fakeChannel) Subscribe(fn func(string, boarddomain.Snapshot)) func() {
	f.mu.Lock()
	f.handler = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.handler = nil
		f.mu.Unlock()
	}
}

func (f *fakeChannel) Connected() bool { return true }
func (f *fakeChannel) Close() error    { return nil }

func (f *fakeChannel) deliver(id string, snap boarddomain.Snapshot) {
	f.mu.Lock()
	fn := f.handler
	f.mu.Unlock()
	if fn != nil {
		fn(id, snap)
	}
}

func (f *fakeChannel) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeChannel) lastSent() published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type fakeResume struct {
	mu sync.Mutex
	id string
}

func (f *fakeResume) SaveResume(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.id = id
	return nil
}

func (f *fakeResume) LoadResume(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.id == "" {
		return "", apperrors.ErrNoSession
	}
	return f.id, nil
}

func (f *fakeResume) ClearResume(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.id = ""
	return nil
}

type seqID struct {
	mu sync.Mutex
	n  int
}

func (g *seqID) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("session-%d", g.n)
}

type fixture struct {
	store     *boardservice.Store
	snapshots *fakeSnapshots
	channel   *fakeChannel
	resume    *fakeResume
	svc       *SyncService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     boardservice.NewStore(clock.Frozen{At: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}),
		snapshots: newFakeSnapshots(),
		channel:   &fakeChannel{},
		resume:    &fakeResume{},
	}
	f.svc = NewSyncService(f.store, f.snapshots, f.channel, f.resume, &seqID{}, zerolog.Nop(), testDebounce)
	t.Cleanup(func() { _ = f.svc.Close() })
	return f
}

func settle() {
	time.Sleep(4 * testDebounce)
}

func TestSaveMintsSessionAndJoins(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	session, created, err := f.svc.Save(context.Background())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !created || session.ID == "" {
		t.Fatalf("session = %+v created=%v", session, created)
	}
	if len(f.channel.joined) != 1 || f.channel.joined[0] != session.ID {
		t.Fatalf("joined = %v", f.channel.joined)
	}
	if got, _ := f.resume.LoadResume(context.Background()); got != session.ID {
		t.Fatalf("resume id = %q", got)
	}

	_, created, err = f.svc.Save(context.Background())
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if created {
		t.Fatal("second save must reuse the existing id")
	}
}

func TestSaveFailureLeavesSessionUnset(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.snapshots.fail = apperrors.ErrPersistence
	if _, _, err := f.svc.Save(context.Background()); err == nil {
		t.Fatal("expected save error")
	}
	if f.svc.Session().Active() {
		t.Fatal("failed first save must not leave a session id behind")
	}
}

func TestLoadUnknownSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, err := f.svc.Load(context.Background(), "missing"); err != apperrors.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLoadDoesNotBroadcastLoadedState(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.SetDate("2024-03-15", "#F44336", "1")
	if _, _, err := f.svc.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	sessionID := f.svc.Session().ID

	g := newFixture(t)
	if _, err := g.svc.Load(context.Background(), "nope"); err == nil {
		t.Fatal("expected not found")
	}
	g.snapshots.saved = f.snapshots.saved
	g.snapshots.times = f.snapshots.times
	if _, err := g.svc.Load(context.Background(), sessionID); err != nil {
		t.Fatalf("load: %v", err)
	}

	settle()
	if n := g.channel.sentCount(); n != 0 {
		t.Fatalf("load produced %d broadcasts, want 0", n)
	}
}

func TestRoundTripReproducesContent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.SetDate("2024-03-15", "#F44336", "1")
	f.store.ToggleTag("2024-03-15", "t1")
	session, _, err := f.svc.Save(context.Background())
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	g := newFixture(t)
	g.snapshots.saved = f.snapshots.saved
	g.snapshots.times = f.snapshots.times
	if _, err := g.svc.Load(context.Background(), session.ID); err != nil {
		t.Fatalf("load: %v", err)
	}

	if !g.store.Snapshot().SameContent(f.store.Snapshot()) {
		t.Fatal("loaded board differs from the saved one")
	}
}

func TestDebounceCoalescesRapidMutations(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, _, err := f.svc.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	for day := 1; day <= 5; day++ {
		f.store.SetDate(fmt.Sprintf("2024-03-%02d", day), "#F44336", "1")
	}
	settle()

	if n := f.channel.sentCount(); n != 1 {
		t.Fatalf("%d broadcasts, want 1", n)
	}
	sent := f.channel.lastSent()
	if !sent.snap.SameContent(f.store.Snapshot()) {
		t.Fatal("broadcast must carry the final coalesced state")
	}
}

func TestRevertedChangeIsNotSent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, _, err := f.svc.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	f.store.SetDate("2024-03-15", "#F44336", "1")
	f.store.SetDate("2024-03-15", "", "")
	settle()

	if n := f.channel.sentCount(); n != 0 {
		t.Fatalf("%d broadcasts for a reverted change, want 0", n)
	}
}

func TestRemoteApplyDoesNotEcho(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	session, _, err := f.svc.Save(context.Background())
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	remote := f.store.Snapshot()
	remote.DateAnnotations = []boarddomain.DateEntry{
		{Date: "2024-03-20", Annotation: boarddomain.Annotation{Color: "#2196F3", CategoryID: "2"}},
	}
	f.channel.deliver(session.ID, remote)

	settle()
	if n := f.channel.sentCount(); n != 0 {
		t.Fatalf("remote apply echoed %d broadcasts, want 0", n)
	}
	ann, ok := f.store.Annotation("2024-03-20")
	if !ok || ann.CategoryID != "2" {
		t.Fatalf("remote state not applied: %+v ok=%v", ann, ok)
	}
}

func TestRemoteForOtherSessionIsIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, _, err := f.svc.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	before := f.store.Snapshot()

	other := before.Clone()
	other.DateAnnotations = []boarddomain.DateEntry{
		{Date: "2024-04-01", Annotation: boarddomain.Annotation{Color: "#000000", CategoryID: "1"}},
	}
	f.channel.deliver("someone-else", other)

	if !f.store.Snapshot().SameContent(before) {
		t.Fatal("snapshot for another session must not be applied")
	}
}

func TestLocalChangeAfterRemoteApplyStillBroadcasts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	session, _, err := f.svc.Save(context.Background())
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	remote := f.store.Snapshot()
	remote.DateAnnotations = []boarddomain.DateEntry{
		{Date: "2024-03-20", Annotation: boarddomain.Annotation{Color: "#2196F3", CategoryID: "2"}},
	}
	f.channel.deliver(session.ID, remote)

	f.store.ToggleTag("2024-03-21", "t1")
	settle()

	if n := f.channel.sentCount(); n != 1 {
		t.Fatalf("%d broadcasts, want 1", n)
	}
}

func TestPendingSendSkippedWhileGateHeld(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, _, err := f.svc.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A local change arms the debounce timer; the gate then goes up
	// before it fires, as it does while a remote apply is in flight.
	f.store.SetDate("2024-03-16", "#F44336", "1")
	f.store.Gate().Enter()
	settle()
	f.store.Gate().Exit()

	if n := f.channel.sentCount(); n != 0 {
		t.Fatalf("%d broadcasts while the gate was held, want 0", n)
	}

	// Once the gate drops, the next local change broadcasts normally.
	f.store.ToggleTag("2024-03-16", "t1")
	settle()
	if n := f.channel.sentCount(); n != 1 {
		t.Fatalf("%d broadcasts after gate release, want 1", n)
	}
}

func TestCloseCancelsPendingSend(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, _, err := f.svc.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	f.store.SetDate("2024-03-15", "#F44336", "1")
	if err := f.svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	settle()

	if n := f.channel.sentCount(); n != 0 {
		t.Fatalf("%d broadcasts after close, want 0", n)
	}
	if len(f.channel.left) == 0 {
		t.Fatal("close must leave the joined session")
	}
}

func TestResumeUsesRecordedSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.SetDate("2024-03-15", "#F44336", "1")
	session, _, err := f.svc.Save(context.Background())
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	g := newFixture(t)
	g.snapshots.saved = f.snapshots.saved
	g.snapshots.times = f.snapshots.times
	g.resume.id = session.ID

	resumed, err := g.svc.Resume(context.Background())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.ID != session.ID {
		t.Fatalf("resumed %q, want %q", resumed.ID, session.ID)
	}
}

func TestResumeWithoutRecordFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, err := f.svc.Resume(context.Background()); err != apperrors.ErrNoSession {
		t.Fatalf("err = %v, want ErrNoSession", err)
	}
}

func TestDeleteClearsMatchingResume(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	session, _, err := f.svc.Save(context.Background())
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := f.svc.Delete(context.Background(), session.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.resume.LoadResume(context.Background()); err != apperrors.ErrNoSession {
		t.Fatal("resume record must be cleared with the session")
	}
	if err := f.svc.Delete(context.Background(), session.ID); err != apperrors.ErrNotFound {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}
