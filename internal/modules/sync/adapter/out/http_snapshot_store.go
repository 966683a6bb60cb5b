package out

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	boarddomain "minicalen/internal/modules/board/domain"
	"minicalen/internal/modules/sync/domain"
	syncout "minicalen/internal/modules/sync/port/out"
	apperrors "minicalen/internal/platform/errors"
)

// HTTPSnapshotStore talks to the relay's REST surface.
type HTTPSnapshotStore struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSnapshotStore(baseURL string, client *http.Client) syncout.SnapshotStore {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSnapshotStore{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type saveRequest struct {
	ID    string               `json:"id"`
	State boarddomain.Snapshot `json:"state"`
}

type saveResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

type loadResponse struct {
	ID        string               `json:"id"`
	Timestamp time.Time            `json:"timestamp"`
	State     boarddomain.Snapshot `json:"state"`
}

func (s *HTTPSnapshotStore) Save(ctx context.Context, sessionID string, snap boarddomain.Snapshot) (time.Time, error) {
	payload, err := json.Marshal(saveRequest{ID: sessionID, State: snap})
	if err != nil {
		return time.Time{}, fmt.Errorf("encode session: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/sessions", bytes.NewReader(payload))
	if err != nil {
		return time.Time{}, fmt.Errorf("build save request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusBadRequest:
		return time.Time{}, apperrors.ErrValidation
	default:
		return time.Time{}, fmt.Errorf("%w: save returned %d", apperrors.ErrPersistence, resp.StatusCode)
	}

	out := saveResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return time.Time{}, fmt.Errorf("decode save response: %w", err)
	}
	return out.Timestamp, nil
}

func (s *HTTPSnapshotStore) Load(ctx context.Context, sessionID string) (boarddomain.Snapshot, time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/sessions/"+sessionID, nil)
	if err != nil {
		return boarddomain.Snapshot{}, time.Time{}, fmt.Errorf("build load request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return boarddomain.Snapshot{}, time.Time{}, fmt.Errorf("%w: %v", apperrors.ErrTransport, err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return boarddomain.Snapshot{}, time.Time{}, apperrors.ErrNotFound
	default:
		return boarddomain.Snapshot{}, time.Time{}, fmt.Errorf("%w: load returned %d", apperrors.ErrPersistence, resp.StatusCode)
	}

	out := loadResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return boarddomain.Snapshot{}, time.Time{}, fmt.Errorf("decode session: %w", err)
	}
	return out.State, out.Timestamp, nil
}

func (s *HTTPSnapshotStore) List(ctx context.Context) ([]domain.SessionInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/sessions", nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTransport, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: list returned %d", apperrors.ErrPersistence, resp.StatusCode)
	}
	var out []domain.SessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode session list: %w", err)
	}
	return out, nil
}

func (s *HTTPSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/api/sessions/"+sessionID, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrTransport, err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	default:
		return fmt.Errorf("%w: delete returned %d", apperrors.ErrPersistence, resp.StatusCode)
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
