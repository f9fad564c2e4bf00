package http

import (
	"net/http"
	"time"

	"coachgraph/src/domain"
)

func (s *Server) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var request RecordEventRequest
	if err := decodeBody(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}

	session := request.SessionID
	if session == nil && sessionID(r) != "" {
		header := sessionID(r)
		session = &header
	}

	eventID, err := s.eventLogService.RecordEvent(r.Context(), userID(r), request.EventType, request.NewState, domain.EventOptions{
		NodeID:        request.NodeID,
		EdgeID:        request.EdgeID,
		SessionID:     session,
		PreviousState: request.PreviousState,
		Metadata:      request.Metadata,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, RecordEventResponse{ID: eventID})
}

// GetTimeline aceita start, end (RFC3339) e limit.
func (s *Server) GetTimeline(w http.ResponseWriter, r *http.Request) {
	start, err := queryTime(r, "start")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	end, err := queryTime(r, "end")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	events, err := s.eventLogService.GetTimeline(r.Context(), userID(r), domain.TimelineFilter{
		StartDate: start,
		EndDate:   end,
		Limit:     limit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, EventsResponse{Events: events})
}

// GetSnapshot reconstructs the graph at ?at=, now when absent.
func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	at, err := queryTime(r, "at")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if at == nil {
		now := time.Now().UTC()
		at = &now
	}

	snapshot, err := s.snapshotService.GetSnapshot(r.Context(), userID(r), *at)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) GetTimelineView(w http.ResponseWriter, r *http.Request) {
	view, err := s.timelineLoader.Load(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}
