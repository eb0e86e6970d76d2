package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruenthai-pos/api/internal/cache"
	"github.com/ruenthai-pos/api/internal/service"
)

// SalesProvider resolves reporting windows and computes aggregates.
// Satisfied by *service.SalesService.
type SalesProvider interface {
	ResolveKeyword(keyword string) (service.Window, error)
	ResolveDates(startDate, endDate string) (service.Window, error)
	Summarize(ctx context.Context, w service.Window) (service.Summary, error)
	Daily(ctx context.Context, w service.Window) ([]service.DailyPoint, error)
	Dashboard(ctx context.Context, period service.Window) (*service.Dashboard, error)
}

// DashboardHandler handles sales reporting endpoints.
type DashboardHandler struct {
	sales    SalesProvider
	cache    cache.DashboardCache
	cacheTTL time.Duration
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(sales SalesProvider, c cache.DashboardCache, cacheTTL time.Duration) *DashboardHandler {
	return &DashboardHandler{sales: sales, cache: c, cacheTTL: cacheTTL}
}

// RegisterRoutes registers reporting endpoints on the given Chi router.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/reports/sales", h.Sales)
}

// --- Response types ---

type summaryResponse struct {
	OrderCount        int64  `json:"order_count"`
	TotalSales        string `json:"total_sales"`
	DistinctCustomers int64  `json:"distinct_customers"`
}

type dailyPointResponse struct {
	Date       string `json:"date"`
	OrderCount int64  `json:"order_count"`
	TotalSales string `json:"total_sales"`
}

type dashboardResponse struct {
	Period         summaryResponse      `json:"period"`
	TodaySales     string               `json:"today_sales"`
	WeekSales      string               `json:"week_sales"`
	MonthSales     string               `json:"month_sales"`
	TotalCustomers int64                `json:"total_customers"`
	Daily          []dailyPointResponse `json:"daily"`
}

type salesReportResponse struct {
	Summary summaryResponse      `json:"summary"`
	Daily   []dailyPointResponse `json:"daily"`
}

func toSummaryResponse(s service.Summary) summaryResponse {
	return summaryResponse{
		OrderCount:        s.OrderCount,
		TotalSales:        s.TotalSales.StringFixed(2),
		DistinctCustomers: s.DistinctCustomers,
	}
}

func toDailyResponses(points []service.DailyPoint) []dailyPointResponse {
	resp := make([]dailyPointResponse, len(points))
	for i, p := range points {
		resp[i] = dailyPointResponse{
			Date:       p.Date,
			OrderCount: p.OrderCount,
			TotalSales: p.TotalSales.StringFixed(2),
		}
	}
	return resp
}

func toDashboardResponse(d *service.Dashboard) dashboardResponse {
	return dashboardResponse{
		Period:         toSummaryResponse(d.Period),
		TodaySales:     d.TodaySales.StringFixed(2),
		WeekSales:      d.WeekSales.StringFixed(2),
		MonthSales:     d.MonthSales.StringFixed(2),
		TotalCustomers: d.TotalCustomers,
		Daily:          toDailyResponses(d.Daily),
	}
}

// --- Handlers ---

// Dashboard returns the composed dashboard for ?range= (today, week, month,
// calendar_month) or an explicit ?start_date=&end_date= pair. Results are
// cached briefly per window.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	window, ok := h.resolveWindow(w, r)
	if !ok {
		return
	}

	key := fmt.Sprintf("dashboard:%d:%d", window.Start.Unix(), window.End.Unix())
	if cached, hit, err := h.cache.Get(r.Context(), key); err != nil {
		log.Printf("ERROR: dashboard cache get: %v", err)
	} else if hit {
		writeJSON(w, http.StatusOK, toDashboardResponse(cached))
		return
	}

	dash, err := h.sales.Dashboard(r.Context(), window)
	if err != nil {
		log.Printf("ERROR: compute dashboard: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := h.cache.Set(r.Context(), key, dash, h.cacheTTL); err != nil {
		log.Printf("ERROR: dashboard cache set: %v", err)
	}

	writeJSON(w, http.StatusOK, toDashboardResponse(dash))
}

// Sales returns the summary and per-day breakdown for one window, uncached.
func (h *DashboardHandler) Sales(w http.ResponseWriter, r *http.Request) {
	window, ok := h.resolveWindow(w, r)
	if !ok {
		return
	}

	summary, err := h.sales.Summarize(r.Context(), window)
	if err != nil {
		log.Printf("ERROR: summarize sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	daily, err := h.sales.Daily(r.Context(), window)
	if err != nil {
		log.Printf("ERROR: daily sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, salesReportResponse{
		Summary: toSummaryResponse(summary),
		Daily:   toDailyResponses(daily),
	})
}

// resolveWindow picks the window from the query: ?range= keyword, or an
// explicit date pair. With neither, today. It writes the error response
// itself and reports success through the bool.
func (h *DashboardHandler) resolveWindow(w http.ResponseWriter, r *http.Request) (service.Window, bool) {
	q := r.URL.Query()
	keyword := q.Get("range")
	startDate, endDate := q.Get("start_date"), q.Get("end_date")

	if keyword != "" && (startDate != "" || endDate != "") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "use either range or start_date/end_date, not both"})
		return service.Window{}, false
	}

	if startDate != "" || endDate != "" {
		if startDate == "" || endDate == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start_date and end_date are both required"})
			return service.Window{}, false
		}
		window, err := h.sales.ResolveDates(startDate, endDate)
		if err != nil {
			if errors.Is(err, service.ErrInvalidRange) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": service.ErrInvalidRange.Error()})
			} else {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date"})
			}
			return service.Window{}, false
		}
		return window, true
	}

	if keyword == "" {
		keyword = service.WindowToday
	}
	window, err := h.sales.ResolveKeyword(keyword)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown range keyword"})
		return service.Window{}, false
	}
	return window, true
}
