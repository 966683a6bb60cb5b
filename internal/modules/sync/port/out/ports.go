package out

import (
	"context"
	"time"

	boarddomain "minicalen/internal/modules/board/domain"
	"minicalen/internal/modules/sync/domain"
)

// SnapshotStore persists whole-document snapshots keyed by session id.
type SnapshotStore interface {
	Save(ctx context.Context, sessionID string, snap boarddomain.Snapshot) (time.Time, error)
	Load(ctx context.Context, sessionID string) (boarddomain.Snapshot, time.Time, error)
	List(ctx context.Context) ([]domain.SessionInfo, error)
	Delete(ctx context.Context, sessionID string) error
}

// Channel is the persistent bidirectional connection to the relay.
// Join idempotently leaves any previously joined session. Delivery is
// at most once; nothing may depend on ordering between a publish and
// the relay's own persistence of it.
type Channel interface {
	Join(sessionID string) error
	Leave(sessionID string) error
	Publish(sessionID string, snap boarddomain.Snapshot) error
	Subscribe(fn func(sessionID string, snap boarddomain.Snapshot)) func()
	Connected() bool
	Close() error
}

// ResumeStore remembers the last joined session so a restarted client
// picks up where it left off.
type ResumeStore interface {
	SaveResume(ctx context.Context, sessionID string) error
	LoadResume(ctx context.Context) (string, error)
	ClearResume(ctx context.Context) error
}
