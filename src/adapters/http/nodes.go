package http

import (
	"net/http"

	"coachgraph/src/domain"
)

func (s *Server) CreateNode(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateNodeInput
	if err := decodeBody(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}

	node, err := s.graphService.CreateNode(r.Context(), userID(r), request, sessionID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, node)
}

func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.graphService.GetNode(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, node)
}

func (s *Server) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var request domain.UpdateNodeInput
	if err := decodeBody(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}

	node, err := s.graphService.UpdateNode(r.Context(), userID(r), r.PathValue("id"), request, sessionID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, node)
}

func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := s.graphService.DeleteNode(r.Context(), userID(r), r.PathValue("id"), sessionID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) UpdateNodeStatus(w http.ResponseWriter, r *http.Request) {
	var request UpdateStatusRequest
	if err := decodeBody(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}

	node, err := s.graphService.UpdateNodeStatus(r.Context(), userID(r), r.PathValue("id"), request.Status, sessionID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, node)
}

func (s *Server) UpdateGoalProgress(w http.ResponseWriter, r *http.Request) {
	var request UpdateProgressRequest
	if err := decodeBody(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}
	if request.Progress == nil {
		http.Error(w, "progress is required", http.StatusBadRequest)
		return
	}

	node, err := s.graphService.UpdateGoalProgress(r.Context(), userID(r), r.PathValue("id"), *request.Progress, sessionID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, node)
}

func (s *Server) SetNodeEmbedding(w http.ResponseWriter, r *http.Request) {
	var request SetEmbeddingRequest
	if err := decodeBody(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}

	node, err := s.graphService.SetNodeEmbedding(r.Context(), userID(r), r.PathValue("id"), request.Embedding)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, node)
}

func (s *Server) GetNodeEvolution(w http.ResponseWriter, r *http.Request) {
	events, err := s.eventLogService.GetNodeEvolution(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, EventsResponse{Events: events})
}
