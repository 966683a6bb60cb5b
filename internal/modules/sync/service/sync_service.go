package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	boarddomain "minicalen/internal/modules/board/domain"
	boardservice "minicalen/internal/modules/board/service"
	"minicalen/internal/modules/sync/domain"
	syncout "minicalen/internal/modules/sync/port/out"
	apperrors "minicalen/internal/platform/errors"
	"minicalen/internal/platform/id"
)

// SyncService keeps the local board, its peers, and the relay's
// persisted copy in agreement. It watches the board for local deltas,
// coalesces them behind a trailing-edge debounce, and applies inbound
// snapshots atomically through the board's gated bulk-replace.
type SyncService struct {
	store     *boardservice.Store
	snapshots syncout.SnapshotStore
	channel   syncout.Channel
	resume    syncout.ResumeStore
	idGen     id.Generator
	log       zerolog.Logger
	debounce  time.Duration

	mu      sync.Mutex
	session domain.Session
	// refFP fingerprints the last-synchronized snapshot. Local change
	// detection compares board content against it; it advances on every
	// send and on every inbound remote apply.
	refFP  string
	timer  *time.Timer
	closed bool

	unsubStore   func()
	unsubChannel func()
}

func NewSyncService(
	store *boardservice.Store,
	snapshots syncout.SnapshotStore,
	channel syncout.Channel,
	resume syncout.ResumeStore,
	idGen id.Generator,
	log zerolog.Logger,
	debounce time.Duration,
) *SyncService {
	s := &SyncService{
		store:     store,
		snapshots: snapshots,
		channel:   channel,
		resume:    resume,
		idGen:     idGen,
		log:       log,
		debounce:  debounce,
	}
	s.unsubStore = store.Subscribe(s.onBoardChange)
	s.unsubChannel = channel.Subscribe(s.onRemote)
	return s
}

// Session returns the current attachment, zero when none.
func (s *SyncService) Session() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Save persists the current board. On first save it mints a session
// id, joins the relay room, and records it for resume.
func (s *SyncService) Save(ctx context.Context) (domain.Session, bool, error) {
	s.mu.Lock()
	created := !s.session.Active()
	if created {
		s.session.ID = s.idGen.New()
	}
	sessionID := s.session.ID
	s.mu.Unlock()

	snap := s.store.Snapshot()
	ts, err := s.snapshots.Save(ctx, sessionID, snap)
	if err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("save failed")
		if created {
			s.mu.Lock()
			s.session = domain.Session{}
			s.mu.Unlock()
		}
		return domain.Session{}, false, err
	}

	if created {
		if err := s.channel.Join(sessionID); err != nil {
			s.log.Warn().Err(err).Str("session", sessionID).Msg("join after save failed")
		}
		if err := s.resume.SaveResume(ctx, sessionID); err != nil {
			s.log.Warn().Err(err).Msg("record resume session failed")
		}
	}

	s.mu.Lock()
	s.session.Timestamp = ts
	s.refFP = snap.Fingerprint()
	session := s.session
	s.mu.Unlock()
	return session, created, nil
}

// Load fetches a snapshot by id and applies it through the gated
// remote path. The reference fingerprint is committed before the board
// changes, so the apply itself never reads as a fresh local delta.
func (s *SyncService) Load(ctx context.Context, sessionID string) (domain.Session, error) {
	if err := (domain.Session{ID: sessionID}).Validate(); err != nil {
		return domain.Session{}, err
	}
	snap, ts, err := s.snapshots.Load(ctx, sessionID)
	if err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("load failed")
		return domain.Session{}, err
	}

	s.mu.Lock()
	s.cancelPendingLocked()
	s.session = domain.Session{ID: sessionID, Timestamp: ts}
	s.refFP = snap.Fingerprint()
	s.mu.Unlock()

	s.store.ApplyRemote(snap)

	// The board may normalize the snapshot (an omitted tag collection
	// keeps the existing one), so re-anchor the reference on what the
	// board actually holds now.
	s.mu.Lock()
	s.refFP = s.store.Snapshot().Fingerprint()
	session := s.session
	s.mu.Unlock()

	if err := s.channel.Join(sessionID); err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("join after load failed")
	}
	if err := s.resume.SaveResume(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Msg("record resume session failed")
	}
	return session, nil
}

// Resume reloads the session recorded by the last save or load.
func (s *SyncService) Resume(ctx context.Context) (domain.Session, error) {
	sessionID, err := s.resume.LoadResume(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	return s.Load(ctx, sessionID)
}

func (s *SyncService) List(ctx context.Context) ([]domain.SessionInfo, error) {
	return s.snapshots.List(ctx)
}

// Delete removes a persisted session and forgets it for resume when it
// was the recorded one.
func (s *SyncService) Delete(ctx context.Context, sessionID string) error {
	if err := s.snapshots.Delete(ctx, sessionID); err != nil {
		return err
	}
	recorded, err := s.resume.LoadResume(ctx)
	if err == nil && recorded == sessionID {
		if err := s.resume.ClearResume(ctx); err != nil {
			s.log.Warn().Err(err).Msg("clear resume session failed")
		}
	}
	return nil
}

// onBoardChange runs after every board mutation. Remote applies hold
// the gate through their listeners, so they fall out here immediately.
func (s *SyncService) onBoardChange() {
	if s.store.Gate().Held() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.session.Active() {
		return
	}
	if s.store.Snapshot().Fingerprint() == s.refFP {
		return
	}
	s.cancelPendingLocked()
	s.timer = time.AfterFunc(s.debounce, s.flush)
}

// flush fires when the debounce window closes. Conditions are checked
// again here: the board may have reverted, or a remote apply may be in
// flight, and either means the send is no longer wanted.
func (s *SyncService) flush() {
	if s.store.Gate().Held() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.session.Active() {
		return
	}
	snap := s.store.Snapshot()
	fp := snap.Fingerprint()
	if fp == s.refFP {
		return
	}
	// A remote apply may have started since the check at the top; its
	// onRemote will re-anchor the reference, so this send must not go
	// out with the pre-apply snapshot.
	if s.store.Gate().Held() {
		return
	}

	if err := s.channel.Publish(s.session.ID, snap); err != nil {
		s.log.Error().Err(err).Str("session", s.session.ID).Msg("broadcast failed")
		return
	}
	// Optimistic advance. The relay persists forwarded changes itself,
	// so peers and storage converge without waiting on an ack.
	s.refFP = fp
}

// onRemote applies an inbound snapshot. The reference fingerprint is
// updated before the board mutation so the arrival never schedules an
// outbound broadcast of its own content.
func (s *SyncService) onRemote(sessionID string, snap boarddomain.Snapshot) {
	s.mu.Lock()
	if s.closed || sessionID != s.session.ID {
		s.mu.Unlock()
		return
	}
	s.cancelPendingLocked()
	s.refFP = snap.Fingerprint()
	s.session.Timestamp = snap.Timestamp
	s.mu.Unlock()

	s.store.ApplyRemote(snap)

	s.mu.Lock()
	s.refFP = s.store.Snapshot().Fingerprint()
	s.mu.Unlock()
}

func (s *SyncService) cancelPendingLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Close tears the synchronizer down: no sends fire after it returns.
func (s *SyncService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancelPendingLocked()
	sessionID := s.session.ID
	s.mu.Unlock()

	s.unsubStore()
	s.unsubChannel()
	if sessionID != "" {
		if err := s.channel.Leave(sessionID); err != nil {
			s.log.Warn().Err(err).Str("session", sessionID).Msg("leave on close failed")
		}
	}
	return nil
}

// Describe summarizes a persisted session without touching the live
// board.
func (s *SyncService) Describe(ctx context.Context, sessionID string) (domain.SessionInfo, boarddomain.Snapshot, error) {
	snap, ts, err := s.snapshots.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.SessionInfo{}, boarddomain.Snapshot{}, err
		}
		return domain.SessionInfo{}, boarddomain.Snapshot{}, fmt.Errorf("describe session: %w", err)
	}
	return domain.SessionInfo{ID: sessionID, Timestamp: ts}, snap, nil
}
