package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/teleskop/fieldbridge/errors"
)

// writeJSON writes a JSON response with the given status
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Errorw("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.IsCatalogUnavailable(err):
		status = http.StatusServiceUnavailable
	case errors.IsRecordNotFound(err):
		status = http.StatusNotFound
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, StateMessage{
		Type:      "batch_state",
		SessionID: s.session.ID(),
		State:     s.session.BatchState(),
	})
}

func (s *Server) handleMappings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.Mappings())
}

// handleAutomap proposes mappings for unmapped fields and adopts them
func (s *Server) handleAutomap(w http.ResponseWriter, r *http.Request) {
	proposals, err := s.session.ProposeAutoMappings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.session.ExtendMappings(proposals...); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"proposed": proposals,
		"mappings": s.session.Mappings(),
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	messages, err := s.session.ValidateMappings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if messages == nil {
		messages = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	recordID := r.PathValue("record")
	p, err := s.session.ComputePreview(r.Context(), recordID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleLoadPage(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil || page < 1 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "page must be a positive integer"})
		return
	}

	s.session.LoadPage(r.Context(), page)
	s.writeJSON(w, http.StatusOK, StateMessage{
		Type:      "batch_state",
		SessionID: s.session.ID(),
		State:     s.session.BatchState(),
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	recordID := r.PathValue("record")
	s.session.Reload(r.Context(), recordID)
	s.writeJSON(w, http.StatusOK, StateMessage{
		Type:      "batch_state",
		SessionID: s.session.ID(),
		State:     s.session.BatchState(),
	})
}
