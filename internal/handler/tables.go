package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ruenthai-pos/api/internal/database"
	"github.com/ruenthai-pos/api/internal/promptpay"
)

// TableStore defines the database methods needed by table handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	ListTables(ctx context.Context) ([]database.DiningTable, error)
	GetTable(ctx context.Context, id int64) (database.DiningTable, error)
	CreateTable(ctx context.Context, name string) (database.DiningTable, error)
	OpenTableSession(ctx context.Context, arg database.OpenTableSessionParams) (database.DiningTable, error)
	CheckoutTable(ctx context.Context, id int64) (database.DiningTable, error)
	ClearTable(ctx context.Context, id int64) (database.DiningTable, error)
	SumSessionTotal(ctx context.Context, sessionID uuid.UUID) (pgtype.Numeric, error)
	MarkSessionBilled(ctx context.Context, sessionID uuid.UUID) (int64, error)
}

// TableHandler handles dining table and session lifecycle endpoints.
type TableHandler struct {
	store TableStore

	// promptPay is nil when no receiving account is configured; bills then
	// come back without a QR payload.
	promptPay *promptpay.Builder
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore, promptPay *promptpay.Builder) *TableHandler {
	return &TableHandler{store: store, promptPay: promptPay}
}

// RegisterRoutes registers table endpoints on the given Chi router.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tables", h.List)
	r.Post("/tables", h.Create)
	r.Post("/tables/{id}/open", h.Open)
	r.Post("/tables/{id}/checkout", h.Checkout)
	r.Post("/tables/{id}/clear", h.Clear)
}

// --- Request / Response types ---

type createTableRequest struct {
	Name string `json:"name"`
}

type tableResponse struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Status           string     `json:"status"`
	SessionID        *uuid.UUID `json:"session_id"`
	SessionStartedAt *time.Time `json:"session_started_at"`
	CheckoutAt       *time.Time `json:"checkout_at"`
}

type billResponse struct {
	Table            tableResponse `json:"table"`
	SessionID        uuid.UUID     `json:"session_id"`
	TotalAmount      string        `json:"total_amount"`
	PromptPayPayload string        `json:"promptpay_payload,omitempty"`
}

type clearTableResponse struct {
	Table        tableResponse `json:"table"`
	BilledOrders int64         `json:"billed_orders"`
}

func toTableResponse(t database.DiningTable) tableResponse {
	resp := tableResponse{
		ID:     t.ID,
		Name:   t.Name,
		Status: t.Status,
	}
	if t.SessionID.Valid {
		sid := uuid.UUID(t.SessionID.Bytes)
		resp.SessionID = &sid
	}
	if t.SessionStartedAt.Valid {
		resp.SessionStartedAt = &t.SessionStartedAt.Time
	}
	if t.CheckoutAt.Valid {
		resp.CheckoutAt = &t.CheckoutAt.Time
	}
	return resp
}

// --- Handlers ---

// List returns every table with its current session state.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = toTableResponse(t)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new dining table.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	table, err := h.store.CreateTable(r.Context(), req.Name)
	if err != nil {
		log.Printf("ERROR: create table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toTableResponse(table))
}

// Open seats a party: assigns a fresh session to an available table. The
// occupy step is one atomic statement, so two staff opening the same table
// concurrently get one winner and one conflict.
func (h *TableHandler) Open(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	table, err := h.store.OpenTableSession(r.Context(), database.OpenTableSessionParams{
		ID:        id,
		SessionID: uuid.New(),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "table is not available"})
			return
		}
		log.Printf("ERROR: open table session: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// Checkout moves an occupied table to CHECKOUT and returns the bill: the sum
// of the session's non-rejected orders plus a PromptPay payload for that
// amount when a receiving account is configured.
func (h *TableHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	table, err := h.store.CheckoutTable(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "table is not occupied"})
			return
		}
		log.Printf("ERROR: checkout table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	sessionID := uuid.UUID(table.SessionID.Bytes)
	total, err := h.store.SumSessionTotal(r.Context(), sessionID)
	if err != nil {
		log.Printf("ERROR: sum session total: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := billResponse{
		Table:       toTableResponse(table),
		SessionID:   sessionID,
		TotalAmount: numericToString(total),
	}

	if h.promptPay != nil {
		amount := numericToDecimal(total)
		if amount.IsPositive() {
			payload, err := h.promptPay.Amount(amount)
			if err != nil {
				log.Printf("ERROR: build promptpay payload: %v", err)
			} else {
				resp.PromptPayPayload = payload
			}
		} else {
			// Zero-total bill: the customer scans a static payload and
			// types the amount themselves, if anything is owed at all.
			resp.PromptPayPayload = h.promptPay.Static()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Clear settles the table after payment: the session's orders are marked
// billed and the table goes back to AVAILABLE with no session.
func (h *TableHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	table, err := h.store.GetTable(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	var billed int64
	if table.SessionID.Valid {
		sessionID := uuid.UUID(table.SessionID.Bytes)
		billed, err = h.store.MarkSessionBilled(r.Context(), sessionID)
		if err != nil {
			log.Printf("ERROR: mark session billed: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	}

	cleared, err := h.store.ClearTable(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "table is already available"})
			return
		}
		log.Printf("ERROR: clear table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, clearTableResponse{
		Table:        toTableResponse(cleared),
		BilledOrders: billed,
	})
}
