package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/leadimport/internal/core"
)

type columnsResponse struct {
	Success bool                    `json:"success"`
	Columns []core.ColumnDescriptor `json:"columns"`
}

type leadResponse struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleColumns lists the leads table columns a client can map onto.
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	cols, err := s.service.Columns(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, columnsResponse{Success: true, Columns: cols})
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	id, err := leadID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	lead, err := s.service.GetLead(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, leadResponse{Success: true, Data: lead})
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	id, err := leadID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.service.DeleteLead(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, messageResponse{
		Success: true,
		Message: fmt.Sprintf("lead %d deleted", id),
	})
}

func leadID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidLeadID, raw)
	}
	return id, nil
}
