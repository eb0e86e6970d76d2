package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ruenthai-pos/api/internal/cache"
	"github.com/ruenthai-pos/api/internal/config"
	"github.com/ruenthai-pos/api/internal/database"
	"github.com/ruenthai-pos/api/internal/enum"
	"github.com/ruenthai-pos/api/internal/handler"
	"github.com/ruenthai-pos/api/internal/ledger"
	mw "github.com/ruenthai-pos/api/internal/middleware"
	"github.com/ruenthai-pos/api/internal/promptpay"
	"github.com/ruenthai-pos/api/internal/service"
	"github.com/ruenthai-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up. Staff-facing
// routes require authentication; reporting and maintenance routes are
// admin-only.
func New(
	cfg *config.Config,
	queries *database.Queries,
	pool *pgxpool.Pool,
	hub *ws.Hub,
	dashCache cache.DashboardCache,
	payBuilder *promptpay.Builder,
	archiveSvc *service.ArchiveService,
	syncSvc *ledger.SyncService,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/kitchen", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	loc := cfg.Location()

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Menu
		menuHandler := handler.NewMenuHandler(queries)
		r.Route("/menu", menuHandler.RegisterRoutes)

		// Tables and sessions
		tableHandler := handler.NewTableHandler(queries, payBuilder)
		tableHandler.RegisterRoutes(r)

		// Orders
		newOrderStore := func(db database.DBTX) service.OrderStore {
			return database.New(db)
		}
		orderService := service.NewOrderService(pool, newOrderStore)
		orderHandler := handler.NewOrderHandler(queries, orderService, hub, loc)
		orderHandler.RegisterRoutes(r)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))

			salesService := service.NewSalesService(queries, loc)
			dashboardHandler := handler.NewDashboardHandler(salesService, dashCache, cfg.DashboardCacheTTL)
			dashboardHandler.RegisterRoutes(r)

			// A nil syncSvc must stay a nil interface so the handler can
			// reject sync requests when no ledger is configured.
			var syncer handler.LedgerSyncer
			if syncSvc != nil {
				syncer = syncSvc
			}
			adminHandler := handler.NewAdminHandler(archiveSvc, syncer, queries)
			adminHandler.RegisterRoutes(r)
		})
	})

	log.Println("router initialized")
	return r
}
