package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/nvetoshkin/questline/internal/quest"
)

// StateExporter yields the current per-player instance snapshot.
// Implemented by the quest engine.
type StateExporter interface {
	ExportState(playerID string) quest.PlayerSnapshot
}

// PersistenceSubscriber saves a player's quest state whenever one of their
// instances changes. It runs on its own dispatcher queue, so saves never
// block the engine; a failed save is logged and the next lifecycle event
// for the player retries implicitly (saves are full replace).
type PersistenceSubscriber struct {
	repo     *InstanceRepository
	exporter StateExporter
	timeout  time.Duration
}

// NewPersistenceSubscriber creates a subscriber writing through repo.
func NewPersistenceSubscriber(repo *InstanceRepository, exporter StateExporter) *PersistenceSubscriber {
	return &PersistenceSubscriber{
		repo:     repo,
		exporter: exporter,
		timeout:  5 * time.Second,
	}
}

// HandleLifecycle persists the player's state on instance-changing events.
// Availability announcements carry no state change and are skipped.
func (s *PersistenceSubscriber) HandleLifecycle(ev quest.LifecycleEvent) {
	if ev.Kind == quest.LifecycleAvailable {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	snap := s.exporter.ExportState(ev.PlayerID)
	if err := s.repo.SavePlayerState(ctx, snap); err != nil {
		slog.Error("persisting player quest state",
			"playerID", ev.PlayerID,
			"event", ev.Kind.String(),
			"error", err)
	}
}
