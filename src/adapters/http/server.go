package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"coachgraph/src/services/event_log"
	"coachgraph/src/services/graph"
	"coachgraph/src/services/snapshot"
	"coachgraph/src/services/timeline"
)

const (
	userIDHeader    = "X-User-ID"
	sessionIDHeader = "X-Session-ID"
)

// Server representa o servidor HTTP da API
type Server struct {
	logger          *slog.Logger
	server          *http.Server
	mux             *http.ServeMux
	addr            string
	graphService    *graph.GraphService
	eventLogService *event_log.EventLogService
	snapshotService *snapshot.SnapshotService
	timelineLoader  *timeline.Loader
}

// NewServer cria uma nova instância do servidor
func NewServer(
	logger *slog.Logger,
	addr string,
	graphService *graph.GraphService,
	eventLogService *event_log.EventLogService,
	snapshotService *snapshot.SnapshotService,
	timelineLoader *timeline.Loader,
) *Server {
	server := &Server{
		mux:             http.NewServeMux(),
		addr:            addr,
		logger:          logger,
		graphService:    graphService,
		eventLogService: eventLogService,
		snapshotService: snapshotService,
		timelineLoader:  timelineLoader,
	}

	server.server = &http.Server{
		Addr:         addr,
		Handler:      server.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Rotas do grafo
	server.mux.HandleFunc("POST /v1/nodes", server.CreateNode)
	server.mux.HandleFunc("GET /v1/nodes/{id}", server.GetNode)
	server.mux.HandleFunc("PATCH /v1/nodes/{id}", server.UpdateNode)
	server.mux.HandleFunc("DELETE /v1/nodes/{id}", server.DeleteNode)
	server.mux.HandleFunc("PUT /v1/nodes/{id}/status", server.UpdateNodeStatus)
	server.mux.HandleFunc("PUT /v1/nodes/{id}/progress", server.UpdateGoalProgress)
	server.mux.HandleFunc("PUT /v1/nodes/{id}/embedding", server.SetNodeEmbedding)
	server.mux.HandleFunc("GET /v1/nodes/{id}/evolution", server.GetNodeEvolution)

	server.mux.HandleFunc("POST /v1/edges", server.CreateEdge)
	server.mux.HandleFunc("PATCH /v1/edges/{id}", server.UpdateEdge)
	server.mux.HandleFunc("DELETE /v1/edges/{id}", server.DeleteEdge)

	// Rotas do histórico
	server.mux.HandleFunc("POST /v1/events", server.RecordEvent)
	server.mux.HandleFunc("GET /v1/events", server.GetTimeline)
	server.mux.HandleFunc("GET /v1/snapshot", server.GetSnapshot)
	server.mux.HandleFunc("GET /v1/timeline", server.GetTimelineView)

	return server
}

// Handler exposes the routes, used by tests through httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start inicia o servidor HTTP
func (s *Server) Start() error {
	s.logger.Info("Server started", "addr", s.addr)

	return s.server.ListenAndServe()
}

// Shutdown encerra o servidor HTTP de forma graciosa
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
