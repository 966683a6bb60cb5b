package out

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	syncout "minicalen/internal/modules/sync/port/out"
	"minicalen/internal/platform/clock"
	apperrors "minicalen/internal/platform/errors"
)

// FileResumeStore records the last joined session in the data dir, the
// desktop analog of a session id carried in a URL fragment.
type FileResumeStore struct {
	path  string
	clock clock.Clock
}

func NewFileResumeStore(dataDir string, clk clock.Clock) syncout.ResumeStore {
	return &FileResumeStore{path: filepath.Join(dataDir, "resume.json"), clock: clk}
}

type resumeRecord struct {
	SessionID string    `json:"sessionId"`
	SavedAt   time.Time `json:"savedAt"`
}

func (s *FileResumeStore) SaveResume(_ context.Context, sessionID string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	record := resumeRecord{SessionID: sessionID, SavedAt: s.clock.Now()}
	payload, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal resume record: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o644); err != nil {
		return fmt.Errorf("write resume record: %w", err)
	}
	return nil
}

func (s *FileResumeStore) LoadResume(_ context.Context) (string, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.ErrNoSession
		}
		return "", fmt.Errorf("read resume record: %w", err)
	}
	record := resumeRecord{}
	if err := json.Unmarshal(payload, &record); err != nil {
		return "", fmt.Errorf("decode resume record: %w", err)
	}
	if record.SessionID == "" {
		return "", apperrors.ErrNoSession
	}
	return record.SessionID, nil
}

func (s *FileResumeStore) ClearResume(_ context.Context) error {
	if err := os.Remove(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("clear resume record: %w", err)
	}
	return nil
}
