package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ronnyfly2/finanzas-basicas/internal/core"
)

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.store.FilteredTransactions())
	case http.MethodPost:
		s.createTransaction(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "formato de solicitud no válido"})
		return
	}
	t.Description = sanitizeInput(t.Description)
	t.Detail = sanitizeInput(t.Detail)

	saved, err := s.store.AddTransaction(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Transaction created",
		"id", saved.ID,
		"type", saved.Type,
		"amount", saved.Amount.String(),
		"member", saved.Member,
		"category", saved.Category)
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(pathTail(r, "/api/transactions/"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id no válido"})
		return
	}

	switch r.Method {
	case http.MethodPut:
		var t core.Transaction
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "formato de solicitud no válido"})
			return
		}
		t.ID = id
		t.Description = sanitizeInput(t.Description)
		t.Detail = sanitizeInput(t.Detail)
		if err := s.store.UpdateTransaction(r.Context(), t); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	case http.MethodDelete:
		// Absent ids are a silent no-op, matching the store.
		s.store.DeleteTransaction(r.Context(), id)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "PUT, DELETE")
	}
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	// Destructive: goes through the confirmation gate.
	writeJSON(w, http.StatusAccepted, s.store.RequestClearTransactions())
}
