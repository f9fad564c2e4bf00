//go:build datagen_postgres
// +build datagen_postgres

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"coachgraph/src/domain/entities"
	"coachgraph/src/helper/env"
	"coachgraph/src/infra/postgres"

	"github.com/go-faker/faker/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserBundle is the full history of one demo user, rows already in their
// final state and the events that led there.
type UserBundle struct {
	UserID string
	Nodes  []entities.Node
	Edges  []entities.Edge
	Events []entities.Event
}

// Vocabulário para dados mais realistas
var (
	goalLabels = []string{
		"Run a 5K", "Read 12 books this year", "Get promoted to senior", "Sleep 8 hours",
		"Learn Spanish", "Save for a trip", "Meditate daily", "Ship the side project",
	}
	skillLabels = []string{
		"Time management", "Public speaking", "Negotiation", "Pacing", "Delegation", "Active listening",
	}
	emotionLabels  = []string{"Anxious", "Motivated", "Frustrated", "Proud", "Overwhelmed", "Calm"}
	insightSources = []string{"conversation", "reflection", "journal"}

	edgeTypeByTarget = map[entities.NodeType]entities.EdgeType{
		entities.NodeTypeSkill:          entities.EdgeTypeHasSkill,
		entities.NodeTypeEmotion:        entities.EdgeTypeFeels,
		entities.NodeTypeAccomplishment: entities.EdgeTypeAchieves,
		entities.NodeTypeInsight:        entities.EdgeTypeDerivedFrom,
	}
)

func newSQLClient() (*pgxpool.Pool, error) {
	dbHost := env.MustGetString("DB_WRITE_HOST")
	dbPort := env.GetString("DB_WRITE_PORT", "5432")
	dbname := env.MustGetString("DB_NAME")
	dbUser := env.MustGetString("DB_USER")
	dbPassword := env.MustGetString("DB_PASSWORD")
	maxConnections := 50
	return postgres.NewPostgresClient(dbHost, dbPort, dbname, dbUser, dbPassword, maxConnections)
}

func main() {
	numUsers := flag.Int("users", 100, "Número de usuários a serem criados. Use -1 para infinito.")
	bulkSize := flag.Int("bulk-size", 50, "Usuários por transação")
	sessions := flag.Int("sessions", 8, "Sessões de coaching por usuário")
	weeks := flag.Int("weeks", 12, "Semanas de histórico por usuário")
	numConsumers := flag.Int("consumers", 4, "Consumers em paralelo")
	migrate := flag.Bool("migrate", true, "Aplica o schema antes de gerar")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := newSQLClient()
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	if *migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatalf("Failed to migrate: %v", err)
		}
	}

	dataChan := make(chan UserBundle, (*bulkSize)*(*numConsumers)*2)

	var wg sync.WaitGroup
	var totalProcessed, totalErrors int64
	startTime := time.Now()

	// Métricas a cada 2 segundos
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				processed := atomic.LoadInt64(&totalProcessed)
				elapsed := time.Since(startTime)
				fmt.Printf("📊 Users: %d | Errors: %d | Rate: %.1f/s | Elapsed: %v\n",
					processed, atomic.LoadInt64(&totalErrors), float64(processed)/elapsed.Seconds(), elapsed.Round(time.Second))
			}
		}
	}()

	for i := 0; i < *numConsumers; i++ {
		wg.Add(1)
		go consumer(ctx, &wg, db, dataChan, *bulkSize, i+1, &totalProcessed, &totalErrors)
	}

	wg.Add(1)
	go producer(ctx, &wg, dataChan, *numUsers, *sessions, *weeks)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n🛑 Shutdown signal received, stopping...")
		cancel()
	}()

	wg.Wait()

	elapsed := time.Since(startTime)
	fmt.Printf("\n🏁 Seeding finished!\n")
	fmt.Printf("📊 Total users: %d\n", atomic.LoadInt64(&totalProcessed))
	fmt.Printf("❌ Total errors: %d\n", atomic.LoadInt64(&totalErrors))
	fmt.Printf("⏱️  Total time: %v\n", elapsed.Round(time.Second))
}

func producer(ctx context.Context, wg *sync.WaitGroup, dataChan chan<- UserBundle, numUsers, sessions, weeks int) {
	defer wg.Done()
	defer close(dataChan)

	isInfinite := numUsers == -1
	for count := 0; isInfinite || count < numUsers; count++ {
		bundle := generateUserHistory(sessions, weeks)
		select {
		case dataChan <- bundle:
			if (count+1)%100 == 0 {
				fmt.Printf("Generated %d users\n", count+1)
			}
		case <-ctx.Done():
			fmt.Println("Producer stopping.")
			return
		}
	}
}

func consumer(ctx context.Context, wg *sync.WaitGroup, db *pgxpool.Pool, dataChan <-chan UserBundle, bulkSize, consumerID int, totalProcessed, totalErrors *int64) {
	defer wg.Done()
	log.Printf("🚀 Consumer %d started", consumerID)

	bundles := make([]UserBundle, 0, bulkSize)
	flush := func(reason string) {
		if len(bundles) == 0 {
			return
		}
		if err := bulkInsert(ctx, db, bundles); err != nil {
			log.Printf("❌ Consumer %d: ERROR on %s flush: %v", consumerID, reason, err)
			atomic.AddInt64(totalErrors, 1)
		} else {
			atomic.AddInt64(totalProcessed, int64(len(bundles)))
		}
		bundles = make([]UserBundle, 0, bulkSize)
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case b, ok := <-dataChan:
			if !ok {
				flush("final")
				log.Printf("✅ Consumer %d stopping.", consumerID)
				return
			}
			bundles = append(bundles, b)
			if len(bundles) >= bulkSize {
				flush("bulk")
			}
		case <-ticker.C:
			flush("ticker")
		case <-ctx.Done():
			log.Printf("🛑 Consumer %d received stop signal.", consumerID)
			return
		}
	}
}

// bulkInsert copies nodes, then edges, then events, in one transaction so the
// foreign keys of graph_events always resolve.
func bulkInsert(ctx context.Context, db *pgxpool.Pool, bundles []UserBundle) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var nodeRows, edgeRows, eventRows [][]any
	for _, b := range bundles {
		for _, n := range b.Nodes {
			nodeRows = append(nodeRows, []any{
				n.ID, n.UserID, string(n.NodeType), n.Label, postgres.NewNullString(n.Description), string(n.Status),
				n.Properties, n.CreatedAt, n.UpdatedAt, n.FirstMentionedAt, n.LastDiscussedAt, postgres.NewNullTime(n.DeletedAt),
			})
		}
		for _, e := range b.Edges {
			edgeRows = append(edgeRows, []any{
				e.ID, e.UserID, string(e.EdgeType), e.SourceNodeID, e.TargetNodeID, e.Weight, e.Properties,
				e.CreatedAt, e.UpdatedAt, e.DiscoveredAt, e.LastReinforcedAt, postgres.NewNullTime(e.ValidTo),
			})
		}
		for _, ev := range b.Events {
			eventRows = append(eventRows, []any{
				ev.ID, ev.UserID, string(ev.EventType), ev.NodeID, ev.EdgeID, ev.SessionID,
				nullableState(ev.PreviousState), string(ev.NewState), ev.Metadata, ev.CreatedAt,
			})
		}
	}

	copies := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"graph_nodes", []string{"id", "user_id", "node_type", "label", "description", "status", "properties",
			"created_at", "updated_at", "first_mentioned_at", "last_discussed_at", "deleted_at"}, nodeRows},
		{"graph_edges", []string{"id", "user_id", "edge_type", "source_node_id", "target_node_id", "weight", "properties",
			"created_at", "updated_at", "discovered_at", "last_reinforced_at", "valid_to"}, edgeRows},
		{"graph_events", []string{"id", "user_id", "event_type", "node_id", "edge_id", "session_id",
			"previous_state", "new_state", "metadata", "created_at"}, eventRows},
	}

	for _, c := range copies {
		if len(c.rows) == 0 {
			continue
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{c.table}, c.columns, pgx.CopyFromRows(c.rows)); err != nil {
			return fmt.Errorf("failed to copy %s: %w", c.table, err)
		}
	}

	return tx.Commit(ctx)
}

func nullableState(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// generateUserHistory simula semanas de sessões: each session mentions new
// nodes, links them to a goal and sometimes curates, updates or drops them.
func generateUserHistory(sessions, weeks int) UserBundle {
	userID := "user-" + faker.UUIDHyphenated()
	start := time.Now().UTC().Add(-time.Duration(weeks) * 7 * 24 * time.Hour).Truncate(time.Microsecond)
	step := time.Duration(weeks) * 7 * 24 * time.Hour / time.Duration(max(sessions, 1))

	h := &history{bundle: UserBundle{UserID: userID}, nodes: make(map[string]*entities.Node)}

	var goals []string
	for s := 0; s < sessions; s++ {
		at := start.Add(time.Duration(s)*step + time.Duration(rand.Intn(3600))*time.Second)
		session := h.createNode(userID, entities.NodeTypeSession, fmt.Sprintf("Session %d", s+1), entities.Properties{
			"summary":          faker.Sentence(),
			"duration_seconds": 600 + rand.Intn(2400),
			"conversation_id":  faker.UUIDHyphenated(),
		}, "", at)
		sessionID := session.ID
		h.event(userID, entities.EventSessionStarted, nil, nil, &sessionID, nil, nil, entities.Properties{"channel": "voice"}, at)

		tick := func() time.Time {
			at = at.Add(time.Duration(30+rand.Intn(240)) * time.Second)
			return at
		}

		if len(goals) == 0 || rand.Float64() < 0.3 {
			goal := h.createNode(userID, entities.NodeTypeGoal, pick(goalLabels), entities.Properties{
				"priority": pick([]string{"low", "medium", "high"}),
				"progress": 0.0,
			}, sessionID, tick())
			goals = append(goals, goal.ID)
		}
		goalID := goals[rand.Intn(len(goals))]

		for _, target := range []struct {
			nodeType entities.NodeType
			label    string
			props    entities.Properties
		}{
			{entities.NodeTypeSkill, pick(skillLabels), entities.Properties{"level": pick([]string{"beginner", "intermediate", "advanced"})}},
			{entities.NodeTypeEmotion, pick(emotionLabels), entities.Properties{"valence": rand.Float64()*2 - 1, "intensity": rand.Float64()}},
			{entities.NodeTypeInsight, faker.Sentence(), entities.Properties{"source": pick(insightSources)}},
		} {
			if rand.Float64() < 0.4 {
				continue
			}
			node := h.createNode(userID, target.nodeType, target.label, target.props, sessionID, tick())
			h.createEdge(userID, edgeTypeByTarget[target.nodeType], goalID, node.ID, sessionID, tick())
		}

		if rand.Float64() < 0.5 {
			h.updateProgress(goalID, float64(min(100, (s+1)*100/max(sessions, 1))), sessionID, tick())
		}
		if rand.Float64() < 0.4 {
			h.curateRandom(sessionID, tick())
		}
		if s == sessions-1 && rand.Float64() < 0.5 {
			accomplishment := h.createNode(userID, entities.NodeTypeAccomplishment, "Finished: "+h.nodes[goalID].Label,
				entities.Properties{"achieved_at": at.Format(time.RFC3339)}, sessionID, tick())
			h.createEdge(userID, entities.EdgeTypeAchieves, goalID, accomplishment.ID, sessionID, tick())
		}
		if rand.Float64() < 0.1 {
			h.deleteRandomEmotion(sessionID, tick())
		}

		h.event(userID, entities.EventSessionEnded, nil, nil, &sessionID, nil, nil, entities.Properties{"channel": "voice"}, tick())
	}

	for _, id := range h.order {
		h.bundle.Nodes = append(h.bundle.Nodes, *h.nodes[id])
	}
	return h.bundle
}

type history struct {
	bundle UserBundle
	nodes  map[string]*entities.Node
	order  []string
}

func (h *history) event(userID string, eventType entities.EventType, nodeID, edgeID, sessionID *string, previous, state []byte, metadata entities.Properties, at time.Time) {
	if state == nil {
		state = []byte(`{}`)
	}
	if metadata == nil {
		metadata = entities.Properties{}
	}
	h.bundle.Events = append(h.bundle.Events, entities.Event{
		ID:            faker.UUIDHyphenated(),
		UserID:        userID,
		EventType:     eventType,
		NodeID:        nodeID,
		EdgeID:        edgeID,
		SessionID:     sessionID,
		PreviousState: previous,
		NewState:      state,
		Metadata:      metadata,
		CreatedAt:     at,
	})
}

func (h *history) createNode(userID string, nodeType entities.NodeType, label string, props entities.Properties, sessionID string, at time.Time) *entities.Node {
	node := &entities.Node{
		ID:               faker.UUIDHyphenated(),
		UserID:           userID,
		NodeType:         nodeType,
		Label:            label,
		Status:           entities.NodeStatusDraftVerbal,
		Properties:       props,
		CreatedAt:        at,
		UpdatedAt:        at,
		FirstMentionedAt: at,
		LastDiscussedAt:  at,
	}
	h.nodes[node.ID] = node
	h.order = append(h.order, node.ID)

	nodeID := node.ID
	h.event(userID, entities.EventNodeCreated, &nodeID, nil, optional(sessionID), nil, node.State(),
		entities.Properties{"node_type": string(nodeType)}, at)
	return node
}

func (h *history) createEdge(userID string, edgeType entities.EdgeType, sourceID, targetID, sessionID string, at time.Time) {
	edge := entities.Edge{
		ID:               faker.UUIDHyphenated(),
		UserID:           userID,
		EdgeType:         edgeType,
		SourceNodeID:     sourceID,
		TargetNodeID:     targetID,
		Weight:           0.5 + rand.Float64(),
		Properties:       entities.Properties{},
		CreatedAt:        at,
		UpdatedAt:        at,
		DiscoveredAt:     at,
		LastReinforcedAt: at,
	}
	h.bundle.Edges = append(h.bundle.Edges, edge)

	edgeID := edge.ID
	h.event(userID, entities.EventEdgeCreated, nil, &edgeID, optional(sessionID), nil, edge.State(), entities.Properties{
		"edge_type":      string(edgeType),
		"source_node_id": sourceID,
		"target_node_id": targetID,
	}, at)
}

func (h *history) updateProgress(goalID string, progress float64, sessionID string, at time.Time) {
	node := h.nodes[goalID]
	previous := node.State()
	old := node.Properties["progress"]

	node.Properties = node.Properties.Merge(entities.Properties{"progress": progress})
	node.UpdatedAt = at
	node.LastDiscussedAt = at

	h.event(node.UserID, entities.EventProgressChanged, &node.ID, nil, optional(sessionID), previous, node.State(),
		entities.Properties{"old_progress": old, "new_progress": progress}, at)
}

func (h *history) curateRandom(sessionID string, at time.Time) {
	for _, id := range h.order {
		node := h.nodes[id]
		if node.Status != entities.NodeStatusDraftVerbal || node.NodeType == entities.NodeTypeSession || node.DeletedAt != nil {
			continue
		}
		previous := node.State()
		node.Status = entities.NodeStatusCurated
		node.UpdatedAt = at

		h.event(node.UserID, entities.EventStatusChanged, &node.ID, nil, optional(sessionID), previous, node.State(),
			entities.Properties{"old_status": string(entities.NodeStatusDraftVerbal), "new_status": string(entities.NodeStatusCurated)}, at)
		return
	}
}

func (h *history) deleteRandomEmotion(sessionID string, at time.Time) {
	for _, id := range h.order {
		node := h.nodes[id]
		if node.NodeType != entities.NodeTypeEmotion || node.DeletedAt != nil {
			continue
		}
		previous := node.State()
		deletedAt := at
		node.DeletedAt = &deletedAt
		node.UpdatedAt = at

		h.event(node.UserID, entities.EventNodeDeleted, &node.ID, nil, optional(sessionID), previous, node.State(), nil, at)
		return
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func pick(options []string) string {
	return options[rand.Intn(len(options))]
}
