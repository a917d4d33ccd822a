package http

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ronnyfly2/finanzas-basicas/internal/core"
	"github.com/ronnyfly2/finanzas-basicas/internal/ledger"
)

type dateGroupResponse struct {
	Date         core.Date          `json:"date"`
	Label        string             `json:"label"`
	Transactions []core.Transaction `json:"transactions"`
}

type summaryResponse struct {
	ledger.Summary
	DisplayCurrency  string              `json:"displayCurrency"`
	FormattedIncome  string              `json:"formattedIncome"`
	FormattedExpense string              `json:"formattedExpense"`
	FormattedBalance string              `json:"formattedBalance"`
	Groups           []dateGroupResponse `json:"groupedTransactions"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	sum := s.store.Summarize()
	display := s.store.DisplayCurrency()
	currencies := s.store.Currencies()
	rates := s.store.Rates()

	// Totals are already in the display currency; formatting adds the symbol.
	resp := summaryResponse{
		Summary:          sum,
		DisplayCurrency:  display,
		FormattedIncome:  core.FormatCurrency(sum.TotalIncome, display, display, currencies, rates),
		FormattedExpense: core.FormatCurrency(sum.TotalExpense, display, display, currencies, rates),
		FormattedBalance: core.FormatCurrency(sum.Balance, display, display, currencies, rates),
	}
	for _, g := range s.store.GroupedTransactions() {
		resp.Groups = append(resp.Groups, dateGroupResponse{
			Date:         g.Date,
			Label:        core.FormatDateHeader(g.Date),
			Transactions: g.Transactions,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	raw, err := s.store.ExportSnapshot()
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ledger.ExportFilename(time.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw); err != nil {
		slog.ErrorContext(r.Context(), "Write export failed", "error", err)
	}
}

// handleImport reads the uploaded snapshot and registers a pending import;
// nothing mutates until /api/confirm.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "error al leer el archivo"})
		return
	}

	action, err := s.store.RequestImport(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, action)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	if err := s.store.Confirm(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	slog.InfoContext(r.Context(), "Pending action confirmed")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	s.store.Cancel()
	w.WriteHeader(http.StatusNoContent)
}
