package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmfarrell/trolley/internal/classify"
	"github.com/dmfarrell/trolley/internal/config"
	"github.com/dmfarrell/trolley/internal/handler"
	"github.com/dmfarrell/trolley/internal/middleware"
	"github.com/dmfarrell/trolley/internal/receipt"
	"github.com/dmfarrell/trolley/internal/store"
	"github.com/dmfarrell/trolley/internal/trip"
	ws "github.com/dmfarrell/trolley/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	authH       *handler.AuthHandler
	listH       *handler.ListHandler
	itemH       *handler.ItemHandler
	tripH       *handler.TripHandler
	insightsH   *handler.InsightsHandler
	shopH       *handler.ShopHandler
	catalogH    *handler.CatalogHandler
	receiptH    *handler.ReceiptHandler
	userStore   *store.UserStore
	authStore   *store.AuthSessionStore
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	authStore := store.NewAuthSessionStore(db)
	listStore := store.NewListStore(db)
	itemStore := store.NewItemStore(db)
	catalogStore := store.NewCatalogStore(db)
	sessionStore := store.NewSessionStore(db)
	shopStore := store.NewShopStore(db)

	classifier := classify.NewService(cfg.Classifier.URL)
	receiptSvc := receipt.NewService(cfg.Receipt.URL)
	registry := trip.NewRegistry()

	return &Server{
		db:          db,
		hub:         hub,
		authH:       handler.NewAuthHandler(userStore, authStore, logger.With("component", "auth")),
		listH:       handler.NewListHandler(listStore, registry, hub, logger.With("component", "list")),
		itemH:       handler.NewItemHandler(itemStore, listStore, catalogStore, classifier, hub, logger.With("component", "item")),
		tripH:       handler.NewTripHandler(registry, listStore, itemStore, sessionStore, shopStore, hub, logger.With("component", "trip")),
		insightsH:   handler.NewInsightsHandler(listStore, sessionStore, logger.With("component", "insights")),
		shopH:       handler.NewShopHandler(shopStore, catalogStore, hub, logger.With("component", "shop")),
		catalogH:    handler.NewCatalogHandler(catalogStore, itemStore, hub, logger.With("component", "catalog")),
		receiptH:    handler.NewReceiptHandler(receiptSvc, itemStore, listStore, catalogStore, hub, logger.With("component", "receipt")),
		userStore:   userStore,
		authStore:   authStore,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// AuthSessionStore returns the auth session store for cleanup tasks.
func (s *Server) AuthSessionStore() *store.AuthSessionStore {
	return s.authStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.authStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// List API routes
	mux.HandleFunc("POST /api/lists", s.listH.Create)
	mux.HandleFunc("GET /api/lists", s.listH.List)
	mux.HandleFunc("GET /api/lists/active", s.listH.Active)
	mux.HandleFunc("GET /api/lists/{id}", s.listH.Get)
	mux.HandleFunc("PUT /api/lists/{id}", s.listH.Rename)
	mux.HandleFunc("PUT /api/lists/{id}/shared", s.listH.SetShared)
	mux.HandleFunc("POST /api/lists/{id}/collaborators", s.listH.AddCollaborator)
	mux.HandleFunc("DELETE /api/lists/{id}/collaborators", s.listH.RemoveCollaborator)
	mux.HandleFunc("DELETE /api/lists/{id}", s.listH.Delete)
	mux.HandleFunc("POST /api/lists/bulk-delete", s.listH.BulkDelete)

	// Item API routes
	mux.HandleFunc("POST /api/lists/{list_id}/items", s.itemH.Create)
	mux.HandleFunc("GET /api/lists/{list_id}/items", s.itemH.List)
	mux.HandleFunc("GET /api/lists/{list_id}/items/grouped", s.itemH.Grouped)
	mux.HandleFunc("PATCH /api/lists/{list_id}/items/{id}", s.itemH.Update)
	mux.HandleFunc("DELETE /api/lists/{list_id}/items/{id}", s.itemH.Delete)
	mux.HandleFunc("PUT /api/lists/{list_id}/items/reorder", s.itemH.Reorder)

	// Trip API routes
	mux.HandleFunc("GET /api/lists/{list_id}/trip", s.tripH.Status)
	mux.HandleFunc("POST /api/lists/{list_id}/trip/start", s.tripH.Start)
	mux.HandleFunc("POST /api/lists/{list_id}/trip/complete", s.tripH.Complete)
	mux.HandleFunc("POST /api/lists/{list_id}/trip/save", s.tripH.Save)
	mux.HandleFunc("POST /api/lists/{list_id}/trip/discard", s.tripH.Discard)

	// Receipt API routes
	mux.HandleFunc("POST /api/lists/{list_id}/receipt/scan", s.receiptH.Scan)
	mux.HandleFunc("POST /api/lists/{list_id}/receipt/apply", s.receiptH.Apply)

	// History and insights API routes
	mux.HandleFunc("GET /api/history", s.insightsH.History)
	mux.HandleFunc("GET /api/insights/stats", s.insightsH.Stats)
	mux.HandleFunc("GET /api/insights/recurring", s.insightsH.Recurring)
	mux.HandleFunc("GET /api/insights/overdue", s.insightsH.Overdue)

	// Shop API routes
	mux.HandleFunc("GET /api/shops", s.shopH.Search)
	mux.HandleFunc("POST /api/shops", s.shopH.Create)
	mux.HandleFunc("GET /api/shops/mine", s.shopH.MyShops)
	mux.HandleFunc("GET /api/shops/{id}", s.shopH.Get)
	mux.HandleFunc("GET /api/shops/{id}/layout", s.shopH.Layout)

	// Catalog API routes
	mux.HandleFunc("GET /api/catalog", s.catalogH.List)
	mux.HandleFunc("GET /api/catalog/categories", s.catalogH.Categories)
	mux.HandleFunc("GET /api/catalog/{name}", s.catalogH.Get)
	mux.HandleFunc("PUT /api/catalog/{name}/price", s.catalogH.UpdatePrice)
	mux.HandleFunc("PUT /api/catalog/{name}/category", s.catalogH.UpdateCategory)
	mux.HandleFunc("GET /api/catalog/{name}/price-history", s.catalogH.PriceHistory)
	mux.HandleFunc("POST /api/catalog/{name}/archive", s.catalogH.Archive)
	mux.HandleFunc("POST /api/catalog/{name}/unarchive", s.catalogH.Unarchive)

	// WebSocket sync
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
