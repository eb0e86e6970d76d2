package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Archiver copies completed orders into the history tables.
// Satisfied by *service.ArchiveService.
type Archiver interface {
	Run(ctx context.Context) ([]int64, error)
}

// LedgerSyncer exports archived orders to the external ledger.
// Satisfied by *ledger.SyncService; nil when no ledger is configured.
type LedgerSyncer interface {
	Run(ctx context.Context) (int, error)
}

// AdminStore defines the database methods needed by admin endpoints.
// Satisfied by *database.Queries.
type AdminStore interface {
	CountOrderHistory(ctx context.Context) (int64, error)
}

// AdminHandler exposes the background maintenance jobs for manual runs. The
// scheduler runs the same services on a timer; these endpoints exist so an
// admin can force a run and see the result.
type AdminHandler struct {
	archiver Archiver
	syncer   LedgerSyncer
	store    AdminStore
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(archiver Archiver, syncer LedgerSyncer, store AdminStore) *AdminHandler {
	return &AdminHandler{archiver: archiver, syncer: syncer, store: store}
}

// RegisterRoutes registers admin endpoints on the given Chi router.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/admin/archive/run", h.RunArchive)
	r.Post("/admin/ledger/sync", h.RunLedgerSync)
	r.Get("/admin/history/stats", h.HistoryStats)
}

// --- Handlers ---

// RunArchive archives all completed orders that have no history row yet.
func (h *AdminHandler) RunArchive(w http.ResponseWriter, r *http.Request) {
	archived, err := h.archiver.Run(r.Context())
	if err != nil {
		log.Printf("ERROR: run archive: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"archived_order_ids": archived,
		"count":              len(archived),
	})
}

// RunLedgerSync exports one batch of unsynced history rows to the ledger.
// Without a configured ledger the rows must stay unsynced, so the request is
// rejected instead of marked against nothing.
func (h *AdminHandler) RunLedgerSync(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no ledger configured"})
		return
	}

	synced, err := h.syncer.Run(r.Context())
	if err != nil {
		log.Printf("ERROR: run ledger sync: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"synced": synced})
}

// HistoryStats reports the size of the order history.
func (h *AdminHandler) HistoryStats(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.CountOrderHistory(r.Context())
	if err != nil {
		log.Printf("ERROR: count order history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"archived_orders": count})
}
