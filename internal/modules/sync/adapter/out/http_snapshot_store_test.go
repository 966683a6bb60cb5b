package out

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	boarddomain "minicalen/internal/modules/board/domain"
	apperrors "minicalen/internal/platform/errors"
)

func newRelayStub(t *testing.T) *httptest.Server {
	t.Helper()
	sessions := map[string]loadResponse{}

	r := mux.NewRouter()
	r.HandleFunc("/api/sessions", func(w http.ResponseWriter, req *http.Request) {
		body := saveRequest{}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.ID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		stored := loadResponse{ID: body.ID, Timestamp: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), State: body.State}
		sessions[body.ID] = stored
		_ = json.NewEncoder(w).Encode(saveResponse{ID: stored.ID, Timestamp: stored.Timestamp})
	}).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions", func(w http.ResponseWriter, _ *http.Request) {
		out := []saveResponse{}
		for _, s := range sessions {
			out = append(out, saveResponse{ID: s.ID, Timestamp: s.Timestamp})
		}
		_ = json.NewEncoder(w).Encode(out)
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
		stored, ok := sessions[mux.Vars(req)["id"]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(stored)
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["id"]
		if _, ok := sessions[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(sessions, id)
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}).Methods(http.MethodDelete)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSnapshotStoreSaveLoadDelete(t *testing.T) {
	t.Parallel()

	srv := newRelayStub(t)
	store := NewHTTPSnapshotStore(srv.URL, srv.Client())
	ctx := context.Background()

	snap := boarddomain.Snapshot{
		ForegroundCategories: []boarddomain.Category{{ID: "1", Color: "#F44336", Active: true, Visible: true}},
		TextCategories:       []boarddomain.Category{{ID: "t1", Label: "★", Active: true, Visible: true}},
		DateAnnotations: []boarddomain.DateEntry{
			{Date: "2024-03-15", Annotation: boarddomain.Annotation{Color: "#F44336", CategoryID: "1"}},
		},
	}

	ts, err := store.Save(ctx, "s1", snap)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if ts.IsZero() {
		t.Fatal("save returned zero timestamp")
	}

	loaded, loadedTS, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loadedTS.Equal(ts) {
		t.Fatalf("timestamps differ: %v vs %v", loadedTS, ts)
	}
	if !loaded.SameContent(snap) {
		t.Fatal("loaded snapshot differs from saved one")
	}

	rows, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "s1" {
		t.Fatalf("rows = %v", rows)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "s1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestHTTPSnapshotStoreLoadNotFound(t *testing.T) {
	t.Parallel()

	srv := newRelayStub(t)
	store := NewHTTPSnapshotStore(srv.URL, srv.Client())

	if _, _, err := store.Load(context.Background(), "ghost"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestHTTPSnapshotStoreSaveRejected(t *testing.T) {
	t.Parallel()

	srv := newRelayStub(t)
	store := NewHTTPSnapshotStore(srv.URL, srv.Client())

	if _, err := store.Save(context.Background(), "", boarddomain.Snapshot{}); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}
