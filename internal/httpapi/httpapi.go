package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mustawda/backend/internal/backup"
	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/logging"
	"mustawda/backend/internal/service"
	"mustawda/backend/internal/store"
)

const internalErrorMessage = "حدث خطأ داخلي في الخادم"

type API struct {
	service       *service.Service
	auth          *AuthManager
	backups       *backup.Writer
	logger        *logrus.Logger
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, backups *backup.Writer, logger *logrus.Logger, allowedOrigin string) *API {
	if logger == nil {
		logger = logging.Discard()
	}
	if backups == nil {
		backups = backup.NewWriter("")
	}
	return &API{
		service:       svc,
		auth:          auth,
		backups:       backups,
		logger:        logger,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

var (
	staff  = []string{domain.RoleAdmin, domain.RoleAssistantAdmin}
	admins = []string{domain.RoleAdmin}
)

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealth)
	mux.HandleFunc("POST /api/auth/login", a.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", a.requireAuth(a.handleLogout))
	mux.HandleFunc("GET /api/auth/me", a.requireAuth(a.handleMe))

	mux.HandleFunc("GET /api/products", a.requireAuth(a.handleListProducts))
	mux.HandleFunc("POST /api/products", a.requireAuth(a.handleCreateProduct, staff...))
	mux.HandleFunc("GET /api/products/barcode/{barcode}", a.requireAuth(a.handleProductByBarcode))
	mux.HandleFunc("GET /api/products/{id}", a.requireAuth(a.handleGetProduct))
	mux.HandleFunc("PUT /api/products/{id}", a.requireAuth(a.handleUpdateProduct, staff...))
	mux.HandleFunc("DELETE /api/products/{id}", a.requireAuth(a.handleDeleteProduct, staff...))

	mux.HandleFunc("GET /api/categories", a.requireAuth(a.handleListCategories))
	mux.HandleFunc("POST /api/categories", a.requireAuth(a.handleCreateCategory, staff...))
	mux.HandleFunc("GET /api/categories/{id}", a.requireAuth(a.handleGetCategory))
	mux.HandleFunc("PUT /api/categories/{id}", a.requireAuth(a.handleUpdateCategory, staff...))
	mux.HandleFunc("DELETE /api/categories/{id}", a.requireAuth(a.handleDeleteCategory, staff...))

	mux.HandleFunc("POST /api/cart/checkout", a.requireAuth(a.handleCheckout))
	mux.HandleFunc("GET /api/sales", a.requireAuth(a.handleListSales))
	mux.HandleFunc("GET /api/sales/{id}", a.requireAuth(a.handleGetSale))
	mux.HandleFunc("GET /api/returns", a.requireAuth(a.handleListReturns, staff...))
	mux.HandleFunc("POST /api/returns", a.requireAuth(a.handleCreateReturn, staff...))

	mux.HandleFunc("GET /api/debt-customers", a.requireAuth(a.handleListDebtCustomers))
	mux.HandleFunc("POST /api/debt-customers", a.requireAuth(a.handleCreateDebtCustomer))
	mux.HandleFunc("GET /api/debt-customers/{id}", a.requireAuth(a.handleGetDebtCustomer))
	mux.HandleFunc("PUT /api/debt-customers/{id}", a.requireAuth(a.handleUpdateDebtCustomer))
	mux.HandleFunc("DELETE /api/debt-customers/{id}", a.requireAuth(a.handleDeleteDebtCustomer))
	mux.HandleFunc("GET /api/debts", a.requireAuth(a.handleListDebts))
	mux.HandleFunc("GET /api/debts/{id}", a.requireAuth(a.handleGetDebt))
	mux.HandleFunc("POST /api/debts/{id}/payments", a.requireAuth(a.handleAddDebtPayment))

	mux.HandleFunc("GET /api/users", a.requireAuth(a.handleListUsers, admins...))
	mux.HandleFunc("POST /api/users", a.requireAuth(a.handleCreateUser, admins...))
	mux.HandleFunc("PUT /api/users", a.requireAuth(a.handleUpdateUser, admins...))
	mux.HandleFunc("DELETE /api/users", a.requireAuth(a.handleDeleteUser, admins...))
	mux.HandleFunc("PUT /api/users/{id}", a.requireAuth(a.handleUpdateUser, admins...))
	mux.HandleFunc("DELETE /api/users/{id}", a.requireAuth(a.handleDeleteUser, admins...))

	mux.HandleFunc("GET /api/stats/dashboard", a.requireAuth(a.handleDashboard, staff...))
	mux.HandleFunc("GET /api/backup/export", a.requireAuth(a.handleExportBackup, admins...))
	mux.HandleFunc("POST /api/backup", a.requireAuth(a.handleWriteBackup, admins...))
	mux.HandleFunc("POST /api/migrate", a.requireAuth(a.handleMigrate, admins...))

	return a.withMiddleware(mux)
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		if a.allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.WithFields(logrus.Fields{
			"module":      "http",
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(startedAt).Milliseconds(),
		}).Info("request")
	})
}

func decodeJSON(r *http.Request, dest any) error {
	return decodeBody(r, dest, true)
}

// decodeLooseJSON ignores fields dest does not declare. POS clients send cart
// lines with a product snapshot attached.
func decodeLooseJSON(r *http.Request, dest any) error {
	return decodeBody(r, dest, false)
}

func decodeBody(r *http.Request, dest any, strict bool) error {
	decoder := json.NewDecoder(r.Body)
	if strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(dest); err != nil {
		return store.Errorf(store.ErrInvalidInput, "بيانات الطلب غير صالحة: %v", err)
	}
	return nil
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders {error} for 4xx and {error, details} for 5xx.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.LogError(a.logger, "http", "writeError", r.Method+" "+r.URL.Path, nil, err)
		writeJSON(w, status, map[string]any{
			"error":   internalErrorMessage,
			"details": err.Error(),
		})
		return
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// writeFailure renders the {success:false, message} shape used by the auth
// and user routes.
func (a *API) writeFailure(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logging.LogError(a.logger, "http", "writeFailure", r.Method+" "+r.URL.Path, nil, err)
		msg = internalErrorMessage
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
