package http

import (
	"encoding/json"
	"net/http"

	"github.com/ronnyfly2/finanzas-basicas/internal/core"
)

type nameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.store.Members())
	case http.MethodPost:
		var req nameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "formato de solicitud no válido"})
			return
		}
		// Empty or duplicate names are a silent no-op.
		s.store.AddMember(r.Context(), sanitizeInput(req.Name))
		writeJSON(w, http.StatusOK, s.store.Members())
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleMemberByName(w http.ResponseWriter, r *http.Request) {
	name := pathTail(r, "/api/members/")
	if name == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req nameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "formato de solicitud no válido"})
			return
		}
		if err := s.store.RenameMember(r.Context(), name, sanitizeInput(req.Name)); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.store.Members())
	case http.MethodDelete:
		if err := s.store.DeleteMember(r.Context(), name); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "PUT, DELETE")
	}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.store.Categories())
	case http.MethodPost:
		var c core.Category
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "formato de solicitud no válido"})
			return
		}
		c.Name = sanitizeInput(c.Name)
		s.store.AddCategory(r.Context(), c)
		writeJSON(w, http.StatusOK, s.store.Categories())
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleCategoryByName(w http.ResponseWriter, r *http.Request) {
	name := pathTail(r, "/api/categories/")
	if name == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var c core.Category
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "formato de solicitud no válido"})
			return
		}
		c.Name = sanitizeInput(c.Name)
		if err := s.store.RenameCategory(r.Context(), name, c); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.store.Categories())
	case http.MethodDelete:
		if err := s.store.DeleteCategory(r.Context(), name); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "PUT, DELETE")
	}
}

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.store.Currencies())
	case http.MethodPost:
		var c core.Currency
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "formato de solicitud no válido"})
			return
		}
		if err := s.store.AddCurrency(r.Context(), c); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, s.store.Currencies())
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleCurrencyByCode(w http.ResponseWriter, r *http.Request) {
	code := pathTail(r, "/api/currencies/")
	if code == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var c core.Currency
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "formato de solicitud no válido"})
			return
		}
		c.Code = code
		if err := s.store.UpdateCurrency(r.Context(), c); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.store.Currencies())
	case http.MethodDelete:
		if err := s.store.DeleteCurrency(r.Context(), code); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "PUT, DELETE")
	}
}

func (s *Server) handleDisplayCurrency(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"code": s.store.DisplayCurrency()})
	case http.MethodPut:
		var req struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "formato de solicitud no válido"})
			return
		}
		if err := s.store.SetDisplayCurrency(r.Context(), req.Code); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"code": req.Code})
	default:
		methodNotAllowed(w, "GET, PUT")
	}
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		var req struct {
			Start string `json:"start"`
			End   string `json:"end"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "formato de solicitud no válido"})
			return
		}
		var start, end core.Date
		var err error
		if req.Start != "" {
			if start, err = core.ParseDate(req.Start); err != nil {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
				return
			}
		}
		if req.End != "" {
			if end, err = core.ParseDate(req.End); err != nil {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
				return
			}
		}
		s.store.SetDateFilter(start, end)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		s.store.ResetFilters()
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "PUT, DELETE")
	}
}
