package http

import (
	"net/http"

	"coachgraph/src/domain"
)

func (s *Server) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateEdgeInput
	if err := decodeBody(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}

	edge, err := s.graphService.CreateEdge(r.Context(), userID(r), request, sessionID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, edge)
}

func (s *Server) UpdateEdge(w http.ResponseWriter, r *http.Request) {
	var request domain.UpdateEdgeInput
	if err := decodeBody(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}

	edge, err := s.graphService.UpdateEdge(r.Context(), userID(r), r.PathValue("id"), request, sessionID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, edge)
}

func (s *Server) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	if err := s.graphService.DeleteEdge(r.Context(), userID(r), r.PathValue("id"), sessionID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
