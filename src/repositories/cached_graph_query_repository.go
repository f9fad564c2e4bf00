package repositories

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
)

// graphCache is satisfied by redis.RedisClient.
type graphCache interface {
	GetKey(ctx context.Context, key string) (string, bool, error)
	SetKey(ctx context.Context, key string, value string) error
	GetCounter(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// CachedGraphQueryRepository caches the full current-state rows of a user so
// that timeline scrubbing does not hit Postgres on every snapshot.
//
// Keys carry a per-user generation that every mutation bumps; a reader that
// raced with a writer can only populate an already superseded key.
type CachedGraphQueryRepository struct {
	logger               *slog.Logger
	graphQueryRepository domain.GraphReader
	cache                graphCache
}

type CacheableUserGraph struct {
	Nodes []entities.Node `json:"nodes"`
	Edges []entities.Edge `json:"edges"`
}

func NewCachedGraphQueryRepository(
	logger *slog.Logger,
	graphQueryRepository domain.GraphReader,
	cache graphCache,
) *CachedGraphQueryRepository {
	return &CachedGraphQueryRepository{
		logger:               logger,
		graphQueryRepository: graphQueryRepository,
		cache:                cache,
	}
}

func (r *CachedGraphQueryRepository) GetNode(ctx context.Context, nodeID string) (*entities.Node, error) {
	return r.graphQueryRepository.GetNode(ctx, nodeID)
}

func (r *CachedGraphQueryRepository) GetEdge(ctx context.Context, edgeID string) (*entities.Edge, error) {
	return r.graphQueryRepository.GetEdge(ctx, edgeID)
}

func (r *CachedGraphQueryRepository) ListNodes(ctx context.Context, userID string) ([]entities.Node, error) {
	graph, err := r.loadUserGraph(ctx, userID)
	if err != nil {
		return nil, err
	}
	return graph.Nodes, nil
}

func (r *CachedGraphQueryRepository) ListEdges(ctx context.Context, userID string) ([]entities.Edge, error) {
	graph, err := r.loadUserGraph(ctx, userID)
	if err != nil {
		return nil, err
	}
	return graph.Edges, nil
}

// InvalidateUser bumps the user's generation, orphaning every cached entry.
func (r *CachedGraphQueryRepository) InvalidateUser(ctx context.Context, userID string) error {
	if _, err := r.cache.Incr(ctx, r.generationKey(userID)); err != nil {
		return fmt.Errorf("CachedGraphQueryRepository.InvalidateUser - failed to bump generation: %w", err)
	}
	return nil
}

func (r *CachedGraphQueryRepository) loadUserGraph(ctx context.Context, userID string) (*CacheableUserGraph, error) {
	generation, err := r.cache.GetCounter(ctx, r.generationKey(userID))
	if err != nil {
		// Sem geração não há chave segura: vai direto ao PostgreSQL.
		r.logger.Warn("Cache generation unavailable", "user_id", userID, "error", err)
		return r.queryUserGraph(ctx, userID)
	}

	cacheKey := r.generateCacheKey(userID, generation)

	cachedData, found, err := r.getFromCache(ctx, cacheKey)
	if found && err == nil {
		r.logger.Debug("Cache HIT", "key", cacheKey)
		return cachedData, nil
	}
	if err != nil {
		// Log erro de cache mas continua com PostgreSQL
		r.logger.Warn("Cache error", "key", cacheKey, "error", err)
	}

	r.logger.Debug("Cache MISS", "key", cacheKey)

	graph, err := r.queryUserGraph(ctx, userID)
	if err != nil {
		return nil, err
	}

	go func() {
		ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		r.setInCache(ctxWithTimeout, cacheKey, graph)
	}()

	return graph, nil
}

func (r *CachedGraphQueryRepository) queryUserGraph(ctx context.Context, userID string) (*CacheableUserGraph, error) {
	nodes, err := r.graphQueryRepository.ListNodes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("CachedGraphQueryRepository.queryUserGraph - nodes: %w", err)
	}

	edges, err := r.graphQueryRepository.ListEdges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("CachedGraphQueryRepository.queryUserGraph - edges: %w", err)
	}

	return &CacheableUserGraph{Nodes: nodes, Edges: edges}, nil
}

func (r *CachedGraphQueryRepository) generationKey(userID string) string {
	return fmt.Sprintf("graph:user:%x:generation", md5.Sum([]byte(userID)))
}

func (r *CachedGraphQueryRepository) generateCacheKey(userID string, generation int64) string {
	hash := md5.Sum([]byte(userID))
	return fmt.Sprintf("graph:user:%x:rows:%d", hash, generation)
}

func (r *CachedGraphQueryRepository) getFromCache(ctx context.Context, cacheKey string) (*CacheableUserGraph, bool, error) {
	cachedJSON, found, err := r.cache.GetKey(ctx, cacheKey)
	if !found || err != nil {
		return nil, found, err
	}

	var result CacheableUserGraph
	if err := json.Unmarshal([]byte(cachedJSON), &result); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	return &result, true, nil
}

func (r *CachedGraphQueryRepository) setInCache(ctx context.Context, cacheKey string, graph *CacheableUserGraph) {
	dataJSON, err := json.Marshal(graph)
	if err != nil {
		r.logger.Error("Failed to marshal cache data", "key", cacheKey, "error", err)
		return
	}

	if err := r.cache.SetKey(ctx, cacheKey, string(dataJSON)); err != nil {
		r.logger.Error("Failed to set cache", "key", cacheKey, "error", err)
		return
	}

	r.logger.Debug("Cache SET", "key", cacheKey, "nodes", len(graph.Nodes), "edges", len(graph.Edges))
}
