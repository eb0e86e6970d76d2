package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ruenthai-pos/api/internal/database"
	"github.com/ruenthai-pos/api/internal/enum"
)

type mockSyncStore struct {
	listUnsyncedFn func(ctx context.Context, limit int32) ([]database.OrderHistory, error)
	listItemsFn    func(ctx context.Context, orderID int64) ([]database.OrderHistoryItem, error)
	markSyncedErr  error

	synced []int64
}

func (m *mockSyncStore) ListUnsyncedOrderHistory(ctx context.Context, limit int32) ([]database.OrderHistory, error) {
	return m.listUnsyncedFn(ctx, limit)
}
func (m *mockSyncStore) ListOrderHistoryItems(ctx context.Context, orderID int64) ([]database.OrderHistoryItem, error) {
	return m.listItemsFn(ctx, orderID)
}
func (m *mockSyncStore) MarkOrderHistorySynced(ctx context.Context, orderID int64) error {
	if m.markSyncedErr != nil {
		return m.markSyncedErr
	}
	m.synced = append(m.synced, orderID)
	return nil
}

// mockLedger keeps one row per order id, like the spreadsheet does.
type mockLedger struct {
	upsertErrFor map[int64]error
	rows         map[int64]Entry
	upserts      int
}

func newMockLedger() *mockLedger {
	return &mockLedger{rows: make(map[int64]Entry)}
}

func (m *mockLedger) UpsertOrder(_ context.Context, e Entry) error {
	if err := m.upsertErrFor[e.OrderID]; err != nil {
		return err
	}
	m.upserts++
	m.rows[e.OrderID] = e
	return nil
}

func makeHistoryNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func historyRow(orderID int64, completedAt time.Time) database.OrderHistory {
	return database.OrderHistory{
		OrderID:     orderID,
		TableID:     1,
		SessionID:   uuid.New(),
		Status:      enum.OrderStatusCompleted,
		TotalAmount: makeHistoryNumeric("230.00"),
		CreatedAt:   completedAt.Add(-30 * time.Minute),
		CompletedAt: pgtype.Timestamptz{Time: completedAt, Valid: true},
	}
}

func TestSyncRunEmptyBacklog(t *testing.T) {
	store := &mockSyncStore{
		listUnsyncedFn: func(ctx context.Context, limit int32) ([]database.OrderHistory, error) {
			return nil, nil
		},
	}
	led := newMockLedger()
	svc := NewSyncService(store, led)

	n, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 synced, got %d", n)
	}
	if led.upserts != 0 {
		t.Error("empty backlog must not touch the ledger")
	}
}

func TestSyncRunExportsAndMarks(t *testing.T) {
	completedAt := time.Date(2026, 3, 10, 19, 45, 0, 0, time.UTC)
	store := &mockSyncStore{
		listUnsyncedFn: func(ctx context.Context, limit int32) ([]database.OrderHistory, error) {
			return []database.OrderHistory{historyRow(7, completedAt)}, nil
		},
		listItemsFn: func(ctx context.Context, orderID int64) ([]database.OrderHistoryItem, error) {
			return []database.OrderHistoryItem{
				{OrderID: orderID, ItemName: "Pad Krapow", Quantity: 2},
				{OrderID: orderID, ItemName: "Thai Milk Tea", Quantity: 1,
					SelectedOption: pgtype.Text{String: "extra pearls", Valid: true}},
			}, nil
		},
	}
	led := newMockLedger()
	svc := NewSyncService(store, led)

	n, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 synced, got %d", n)
	}

	e, ok := led.rows[7]
	if !ok {
		t.Fatalf("expected a ledger row for order 7, got %+v", led.rows)
	}
	if !e.CompletedAt.Equal(completedAt) {
		t.Errorf("entry lost fields: %+v", e)
	}
	if e.TotalAmount.StringFixed(2) != "230.00" {
		t.Errorf("total = %s, want 230.00", e.TotalAmount.StringFixed(2))
	}
	if e.Items != "2x Pad Krapow, 1x Thai Milk Tea (extra pearls)" {
		t.Errorf("items summary = %q", e.Items)
	}

	if len(store.synced) != 1 || store.synced[0] != 7 {
		t.Errorf("expected order 7 marked synced, got %v", store.synced)
	}
}

func TestSyncRunUpsertFailureLeavesUnsynced(t *testing.T) {
	store := &mockSyncStore{
		listUnsyncedFn: func(ctx context.Context, limit int32) ([]database.OrderHistory, error) {
			return []database.OrderHistory{historyRow(7, time.Now().UTC())}, nil
		},
		listItemsFn: func(ctx context.Context, orderID int64) ([]database.OrderHistoryItem, error) {
			return nil, nil
		},
	}
	upsertErr := errors.New("quota exceeded")
	led := newMockLedger()
	led.upsertErrFor = map[int64]error{7: upsertErr}
	svc := NewSyncService(store, led)

	if _, err := svc.Run(context.Background()); !errors.Is(err, upsertErr) {
		t.Fatalf("expected wrapped upsert error, got %v", err)
	}
	if len(store.synced) != 0 {
		t.Error("rows must stay unsynced when the export fails")
	}
}

func TestSyncRunPartialFailureKeepsEarlierMarks(t *testing.T) {
	store := &mockSyncStore{
		listUnsyncedFn: func(ctx context.Context, limit int32) ([]database.OrderHistory, error) {
			return []database.OrderHistory{
				historyRow(1, time.Now().UTC()),
				historyRow(2, time.Now().UTC()),
			}, nil
		},
		listItemsFn: func(ctx context.Context, orderID int64) ([]database.OrderHistoryItem, error) {
			return nil, nil
		},
	}
	led := newMockLedger()
	led.upsertErrFor = map[int64]error{2: errors.New("quota exceeded")}
	svc := NewSyncService(store, led)

	n, err := svc.Run(context.Background())
	if err == nil {
		t.Fatal("expected an error from the failing entry")
	}
	if n != 1 {
		t.Errorf("expected 1 synced before the failure, got %d", n)
	}
	if len(store.synced) != 1 || store.synced[0] != 1 {
		t.Errorf("expected only order 1 marked synced, got %v", store.synced)
	}
}

func TestSyncRunRetryOverwritesSameRow(t *testing.T) {
	row := historyRow(7, time.Now().UTC())
	store := &mockSyncStore{
		listUnsyncedFn: func(ctx context.Context, limit int32) ([]database.OrderHistory, error) {
			return []database.OrderHistory{row}, nil
		},
		listItemsFn: func(ctx context.Context, orderID int64) ([]database.OrderHistoryItem, error) {
			return nil, nil
		},
		markSyncedErr: errors.New("db down"),
	}
	led := newMockLedger()
	svc := NewSyncService(store, led)

	// First run exports but fails to mark, so the row stays in the backlog.
	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected the mark failure to surface")
	}

	store.markSyncedErr = nil
	n, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 synced on retry, got %d", n)
	}
	if led.upserts != 2 || len(led.rows) != 1 {
		t.Errorf("retry must overwrite the keyed row, got %d upserts over %d rows",
			led.upserts, len(led.rows))
	}
}

func TestSyncRunRespectsBatchLimit(t *testing.T) {
	var gotLimit int32
	store := &mockSyncStore{
		listUnsyncedFn: func(ctx context.Context, limit int32) ([]database.OrderHistory, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	svc := NewSyncService(store, newMockLedger())

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if gotLimit != syncBatchSize {
		t.Errorf("limit = %d, want %d", gotLimit, syncBatchSize)
	}
}

func TestSyncRunFallsBackToCreatedAt(t *testing.T) {
	row := historyRow(3, time.Now().UTC())
	row.CompletedAt = pgtype.Timestamptz{}
	store := &mockSyncStore{
		listUnsyncedFn: func(ctx context.Context, limit int32) ([]database.OrderHistory, error) {
			return []database.OrderHistory{row}, nil
		},
		listItemsFn: func(ctx context.Context, orderID int64) ([]database.OrderHistoryItem, error) {
			return nil, nil
		},
	}
	led := newMockLedger()
	svc := NewSyncService(store, led)

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !led.rows[3].CompletedAt.Equal(row.CreatedAt) {
		t.Error("entry must fall back to created_at when completed_at is null")
	}
}
