package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ruenthai-pos/api/internal/database"
	"github.com/shopspring/decimal"
)

// Revenue policy: order_count and total_sales count COMPLETED orders only;
// distinct_customers counts sessions with at least one non-REJECTED order.
// Rejected orders never contribute to any figure. The policy is fixed here
// and applies to every caller; the dashboard must not grow per-endpoint
// variants of it.

// Errors returned by the sales service.
var (
	ErrInvalidRange  = errors.New("start_date must not be after end_date")
	ErrUnknownWindow = errors.New("unknown range keyword")
)

// Range keywords accepted by ResolveKeyword. WEEK and MONTH are trailing
// windows inclusive of today; CALENDAR_MONTH is month-to-date. Both month
// flavors stay independently selectable.
const (
	WindowToday         = "today"
	WindowWeek          = "week"
	WindowMonth         = "month"
	WindowCalendarMonth = "calendar_month"
)

const dateLayout = "2006-01-02"

// SalesStore defines the DB methods needed for aggregation.
// Satisfied by *database.Queries; narrow interface for testability.
type SalesStore interface {
	GetRangeSales(ctx context.Context, arg database.GetRangeSalesParams) (database.GetRangeSalesRow, error)
	GetDistinctCustomers(ctx context.Context, arg database.GetDistinctCustomersParams) (int64, error)
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error)
}

// Window is a half-open UTC interval [Start, End) resolved from local
// calendar dates. All aggregation queries take exactly this shape, so the
// local-vs-UTC conversion happens in one place only.
type Window struct {
	Start time.Time
	End   time.Time
}

// Summary is one window's aggregate. Zero values, never nil, for empty windows.
type Summary struct {
	OrderCount        int64
	TotalSales        decimal.Decimal
	DistinctCustomers int64
}

// DailyPoint is one day of the charting breakdown.
type DailyPoint struct {
	Date       string
	OrderCount int64
	TotalSales decimal.Decimal
}

// Dashboard is the composed dashboard payload. Every field is produced by
// the same range primitive applied to a different window.
type Dashboard struct {
	Period         Summary
	TodaySales     decimal.Decimal
	WeekSales      decimal.Decimal
	MonthSales     decimal.Decimal
	TotalCustomers int64
	Daily          []DailyPoint
}

// SalesService computes revenue and customer aggregates.
type SalesService struct {
	store SalesStore
	loc   *time.Location
	now   func() time.Time
}

// NewSalesService creates a SalesService using loc as the establishment's
// local timezone for all window arithmetic.
func NewSalesService(store SalesStore, loc *time.Location) *SalesService {
	return &SalesService{store: store, loc: loc, now: time.Now}
}

// localMidnight returns today's local midnight.
func (s *SalesService) localMidnight() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

// ResolveKeyword computes the canonical window for a named range, relative to
// "now" in local time at call time.
func (s *SalesService) ResolveKeyword(keyword string) (Window, error) {
	midnight := s.localMidnight()
	end := midnight.AddDate(0, 0, 1)

	var start time.Time
	switch keyword {
	case WindowToday:
		start = midnight
	case WindowWeek:
		start = midnight.AddDate(0, 0, -6)
	case WindowMonth:
		start = midnight.AddDate(0, 0, -29)
	case WindowCalendarMonth:
		now := s.now().In(s.loc)
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrUnknownWindow, keyword)
	}

	return Window{Start: start.UTC(), End: end.UTC()}, nil
}

// ResolveDates normalizes an explicit inclusive local-date pair to the same
// half-open UTC window the keyword form produces. start > end is a validation
// error, never an empty result.
func (s *SalesService) ResolveDates(startDate, endDate string) (Window, error) {
	start, err := time.ParseInLocation(dateLayout, startDate, s.loc)
	if err != nil {
		return Window{}, fmt.Errorf("invalid start_date: %w", err)
	}
	end, err := time.ParseInLocation(dateLayout, endDate, s.loc)
	if err != nil {
		return Window{}, fmt.Errorf("invalid end_date: %w", err)
	}
	if start.After(end) {
		return Window{}, ErrInvalidRange
	}
	return Window{Start: start.UTC(), End: end.AddDate(0, 0, 1).UTC()}, nil
}

// Summarize returns the aggregate for one window. An empty window yields
// zeroes; a storage failure is surfaced as-is, no retries.
func (s *SalesService) Summarize(ctx context.Context, w Window) (Summary, error) {
	row, err := s.store.GetRangeSales(ctx, database.GetRangeSalesParams{
		StartDate: w.Start,
		EndDate:   w.End,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("range sales: %w", err)
	}

	customers, err := s.store.GetDistinctCustomers(ctx, database.GetDistinctCustomersParams{
		StartDate: w.Start,
		EndDate:   w.End,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("distinct customers: %w", err)
	}

	return Summary{
		OrderCount:        row.OrderCount,
		TotalSales:        numericToDecimal(row.TotalSales),
		DistinctCustomers: customers,
	}, nil
}

// Daily returns the per-day breakdown for one window, bucketed by local
// calendar day.
func (s *SalesService) Daily(ctx context.Context, w Window) ([]DailyPoint, error) {
	rows, err := s.store.GetDailySales(ctx, database.GetDailySalesParams{
		StartDate: w.Start,
		EndDate:   w.End,
		Timezone:  s.loc.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("daily sales: %w", err)
	}

	points := make([]DailyPoint, len(rows))
	for i, row := range rows {
		date := ""
		if row.SaleDate.Valid {
			date = row.SaleDate.Time.Format(dateLayout)
		}
		points[i] = DailyPoint{
			Date:       date,
			OrderCount: row.OrderCount,
			TotalSales: numericToDecimal(row.TotalSales),
		}
	}
	return points, nil
}

// Dashboard composes the dashboard payload: the requested period plus the
// three canonical quick-filter windows, each computed by Summarize.
func (s *SalesService) Dashboard(ctx context.Context, period Window) (*Dashboard, error) {
	periodSummary, err := s.Summarize(ctx, period)
	if err != nil {
		return nil, err
	}

	today, err := s.ResolveKeyword(WindowToday)
	if err != nil {
		return nil, err
	}
	todaySummary, err := s.Summarize(ctx, today)
	if err != nil {
		return nil, err
	}

	week, err := s.ResolveKeyword(WindowWeek)
	if err != nil {
		return nil, err
	}
	weekSummary, err := s.Summarize(ctx, week)
	if err != nil {
		return nil, err
	}

	month, err := s.ResolveKeyword(WindowMonth)
	if err != nil {
		return nil, err
	}
	monthSummary, err := s.Summarize(ctx, month)
	if err != nil {
		return nil, err
	}

	daily, err := s.Daily(ctx, period)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Period:         periodSummary,
		TodaySales:     todaySummary.TotalSales,
		WeekSales:      weekSummary.TotalSales,
		MonthSales:     monthSummary.TotalSales,
		TotalCustomers: periodSummary.DistinctCustomers,
		Daily:          daily,
	}, nil
}
