package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ruenthai-pos/api/internal/handler"
)

type mockArchiver struct {
	archived []int64
	err      error
}

func (m *mockArchiver) Run(_ context.Context) ([]int64, error) {
	return m.archived, m.err
}

type mockSyncer struct {
	synced int
	err    error
}

func (m *mockSyncer) Run(_ context.Context) (int, error) {
	return m.synced, m.err
}

type mockAdminStore struct {
	count int64
}

func (m *mockAdminStore) CountOrderHistory(_ context.Context) (int64, error) {
	return m.count, nil
}

func setupAdminRouter(a *mockArchiver, s handler.LedgerSyncer, store *mockAdminStore) *chi.Mux {
	h := handler.NewAdminHandler(a, s, store)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestAdminRunArchive(t *testing.T) {
	router := setupAdminRouter(&mockArchiver{archived: []int64{3, 7}}, &mockSyncer{}, &mockAdminStore{})

	rr := doRequest(t, router, "POST", "/admin/archive/run", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["count"] != float64(2) {
		t.Errorf("count: got %v, want 2", resp["count"])
	}
	ids := resp["archived_order_ids"].([]interface{})
	if len(ids) != 2 || ids[0] != float64(3) || ids[1] != float64(7) {
		t.Errorf("archived ids: got %v", ids)
	}
}

func TestAdminRunArchive_Empty(t *testing.T) {
	router := setupAdminRouter(&mockArchiver{archived: []int64{}}, &mockSyncer{}, &mockAdminStore{})

	rr := doRequest(t, router, "POST", "/admin/archive/run", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if resp := decodeResponse(t, rr); resp["count"] != float64(0) {
		t.Errorf("count: got %v, want 0", resp["count"])
	}
}

func TestAdminRunArchive_Failure(t *testing.T) {
	router := setupAdminRouter(&mockArchiver{err: errors.New("db down")}, &mockSyncer{}, &mockAdminStore{})

	rr := doRequest(t, router, "POST", "/admin/archive/run", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestAdminRunLedgerSync(t *testing.T) {
	router := setupAdminRouter(&mockArchiver{}, &mockSyncer{synced: 4}, &mockAdminStore{})

	rr := doRequest(t, router, "POST", "/admin/ledger/sync", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if resp := decodeResponse(t, rr); resp["synced"] != float64(4) {
		t.Errorf("synced: got %v, want 4", resp["synced"])
	}
}

func TestAdminRunLedgerSync_NotConfigured(t *testing.T) {
	router := setupAdminRouter(&mockArchiver{}, nil, &mockAdminStore{})

	rr := doRequest(t, router, "POST", "/admin/ledger/sync", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
	if resp := decodeResponse(t, rr); resp["error"] != "no ledger configured" {
		t.Errorf("error: got %v", resp["error"])
	}
}

func TestAdminHistoryStats(t *testing.T) {
	router := setupAdminRouter(&mockArchiver{}, &mockSyncer{}, &mockAdminStore{count: 128})

	rr := doRequest(t, router, "GET", "/admin/history/stats", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if resp := decodeResponse(t, rr); resp["archived_orders"] != float64(128) {
		t.Errorf("archived_orders: got %v, want 128", resp["archived_orders"])
	}
}
