package event_log

import (
	"log/slog"
	"time"

	"coachgraph/src/domain"
	"coachgraph/src/helper/clock"
)

type EventLogService struct {
	logger      *slog.Logger
	graphReader domain.GraphReader
	graphWriter domain.GraphWriter
	eventReader domain.EventReader
	publisher   domain.EventPublisher
	clock       clock.Clock
}

func NewEventLogService(
	logger *slog.Logger,
	graphReader domain.GraphReader,
	graphWriter domain.GraphWriter,
	eventReader domain.EventReader,
	publisher domain.EventPublisher,
	clk clock.Clock,
) *EventLogService {
	return &EventLogService{
		logger:      logger,
		graphReader: graphReader,
		graphWriter: graphWriter,
		eventReader: eventReader,
		publisher:   publisher,
		clock:       clk,
	}
}

func (s *EventLogService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}
