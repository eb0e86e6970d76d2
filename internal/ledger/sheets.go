package ledger

import (
	"context"
	"fmt"
	"strconv"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const sheetsDateLayout = "2006-01-02 15:04:05"

// GoogleSheets keeps one spreadsheet row per order, keyed by the order id in
// column B: completed_at, order id, table id, session id, items summary,
// total.
type GoogleSheets struct {
	service       *sheets.Service
	spreadsheetID string
	writeRange    string
	keyRange      string
}

// NewGoogleSheets creates a sheets-backed ledger from a service-account
// credentials file.
func NewGoogleSheets(ctx context.Context, credentialsFile, spreadsheetID string) (*GoogleSheets, error) {
	service, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &GoogleSheets{
		service:       service,
		spreadsheetID: spreadsheetID,
		writeRange:    "A:F",
		keyRange:      "B:B",
	}, nil
}

// UpsertOrder writes the entry's row, updating in place when the order id is
// already present in the key column and appending otherwise. Re-exporting an
// order overwrites its row instead of duplicating it.
func (g *GoogleSheets) UpsertOrder(ctx context.Context, e Entry) error {
	row := []any{
		e.CompletedAt.Format(sheetsDateLayout),
		e.OrderID,
		e.TableID,
		e.SessionID,
		e.Items,
		e.TotalAmount.StringFixed(2),
	}
	body := &sheets.ValueRange{Values: [][]any{row}}

	keys, err := g.service.Spreadsheets.Values.
		Get(g.spreadsheetID, g.keyRange).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("read ledger key column: %w", err)
	}

	key := strconv.FormatInt(e.OrderID, 10)
	for i, cells := range keys.Values {
		if len(cells) == 0 || fmt.Sprint(cells[0]) != key {
			continue
		}
		_, err := g.service.Spreadsheets.Values.
			Update(g.spreadsheetID, fmt.Sprintf("A%d:F%d", i+1, i+1), body).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("update ledger row for order %d: %w", e.OrderID, err)
		}
		return nil
	}

	_, err = g.service.Spreadsheets.Values.
		Append(g.spreadsheetID, g.writeRange, body).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to spreadsheet: %w", err)
	}
	return nil
}
