// Package http exposes the ledger over a small JSON API.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ronnyfly2/finanzas-basicas/internal/core"
	"github.com/ronnyfly2/finanzas-basicas/internal/ledger"
)

type Server struct {
	http.Server
	store *ledger.Store
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, store *ledger.Store) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store: store,
	}

	mux.HandleFunc("/healthz", s.withSecurityHeaders(s.handleHealth))
	mux.HandleFunc("/api/summary", s.withSecurityHeaders(s.handleSummary))
	mux.HandleFunc("/api/transactions", s.withSecurityHeaders(s.handleTransactions))
	mux.HandleFunc("/api/transactions/", s.withSecurityHeaders(s.handleTransactionByID))
	mux.HandleFunc("/api/transactions/clear", s.withSecurityHeaders(s.handleClearTransactions))
	mux.HandleFunc("/api/members", s.withSecurityHeaders(s.handleMembers))
	mux.HandleFunc("/api/members/", s.withSecurityHeaders(s.handleMemberByName))
	mux.HandleFunc("/api/categories", s.withSecurityHeaders(s.handleCategories))
	mux.HandleFunc("/api/categories/", s.withSecurityHeaders(s.handleCategoryByName))
	mux.HandleFunc("/api/currencies", s.withSecurityHeaders(s.handleCurrencies))
	mux.HandleFunc("/api/currencies/", s.withSecurityHeaders(s.handleCurrencyByCode))
	mux.HandleFunc("/api/settings/currency", s.withSecurityHeaders(s.handleDisplayCurrency))
	mux.HandleFunc("/api/filters", s.withSecurityHeaders(s.handleFilters))
	mux.HandleFunc("/api/export", s.withSecurityHeaders(s.handleExport))
	mux.HandleFunc("/api/import", s.withSecurityHeaders(s.handleImport))
	mux.HandleFunc("/api/confirm", s.withSecurityHeaders(s.handleConfirm))
	mux.HandleFunc("/api/cancel", s.withSecurityHeaders(s.handleCancel))

	return s
}

// withSecurityHeaders adds basic security headers to all responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "url", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// statusFor maps the error taxonomy onto HTTP statuses: integrity rejections
// are conflicts, validation failures are unprocessable, malformed imports are
// plain bad requests.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrSnapshotFormat), errors.Is(err, ledger.ErrNoPending):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrMemberExists),
		errors.Is(err, ledger.ErrMemberInUse),
		errors.Is(err, ledger.ErrCategoryExists),
		errors.Is(err, ledger.ErrCategoryInUse),
		errors.Is(err, ledger.ErrCurrencyExists),
		errors.Is(err, ledger.ErrCurrencyInUse),
		errors.Is(err, ledger.ErrBaseCurrency),
		errors.Is(err, ledger.ErrLastCurrency):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrUnknownMember),
		errors.Is(err, ledger.ErrUnknownCategory),
		errors.Is(err, ledger.ErrUnknownCurrency),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrEmptyMember),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyDate),
		errors.Is(err, core.ErrEmptyCurrency),
		errors.Is(err, core.ErrInvalidRate),
		errors.Is(err, core.ErrIncomeCategory):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// pathTail returns the path segment after the given prefix, URL-decoded by the
// mux already, or "" when absent.
func pathTail(r *http.Request, prefix string) string {
	return strings.TrimPrefix(r.URL.Path, prefix)
}
