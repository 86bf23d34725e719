package server

import (
	"log"
	"net/http"

	"github.com/diewo77/facturacion/auth"
	"github.com/diewo77/facturacion/httpx"
	"github.com/diewo77/facturacion/internal/config"
	"github.com/diewo77/facturacion/internal/handlers"
	"github.com/diewo77/facturacion/internal/middleware"
	"github.com/diewo77/facturacion/internal/services"
	"gorm.io/gorm"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	customers := services.NewCustomerService(db)
	customers.Subscribe(func(ev services.CustomerEvent) {
		log.Printf("customer %s id=%d name=%q", ev.Kind, ev.Customer.ID, ev.Customer.Name)
	})
	products := services.NewProductService(db)
	billing := services.NewBillingService(db, cfg.App.InvoicesDir)
	reports := services.NewReportService(billing)
	authSvc := services.NewAuthService(db)

	sessions := auth.NewSessions(cfg.App.SessionSecret, cfg.App.SessionTTL())
	// Ensure the session still refers to an existing user.
	sessions.SetUserVerifier(authSvc.UserExists)
	protect := func(h http.HandlerFunc) http.Handler { return sessions.RequireAuth(h) }

	// --- Health endpoints ---
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		// Lightweight DB check; detailed errors stay out of the body.
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Public auth routes ---
	ah := handlers.NewAuthHandler(authSvc, sessions)
	mux.HandleFunc("POST /signup", ah.Signup)
	mux.HandleFunc("POST /login", ah.Login)
	mux.HandleFunc("POST /logout", ah.Logout)

	// --- Customers ---
	ch := handlers.NewCustomerHandler(customers)
	mux.Handle("GET /customers", protect(ch.List))
	mux.Handle("POST /customers", protect(ch.Create))
	mux.Handle("GET /customers/{id}", protect(ch.View))
	mux.Handle("PUT /customers/{id}", protect(ch.Update))
	mux.Handle("DELETE /customers/{id}", protect(ch.Delete))

	// --- Products ---
	ph := handlers.NewProductHandler(products, billing)
	mux.Handle("GET /products", protect(ph.List))
	mux.Handle("POST /products", protect(ph.Create))
	mux.Handle("GET /products/search", protect(ph.Search))
	mux.Handle("GET /products/{id}", protect(ph.View))
	mux.Handle("PUT /products/{id}", protect(ph.Update))
	mux.Handle("DELETE /products/{id}", protect(ph.Delete))

	// --- Invoices ---
	ih := handlers.NewInvoiceHandler(billing, reports)
	mux.Handle("POST /invoices/preview", protect(ih.Preview))
	mux.Handle("POST /invoices", protect(ih.Create))
	mux.Handle("GET /invoices", protect(ih.List))
	mux.Handle("GET /invoices/next-number", protect(ih.NextNumber))
	mux.Handle("GET /invoices/export.xlsx", protect(ih.Export))
	mux.Handle("GET /invoices/{id}", protect(ih.View))
	mux.Handle("GET /invoices/{id}/pdf", protect(ih.PDF))

	return middleware.RequestID(middleware.Logging(middleware.Recover(sessions.Middleware(mux))))
}
