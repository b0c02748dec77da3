// Package events carries state-change notifications out of the game core.
// Events are published only after the unit of work that produced them has
// committed; delivery failures are logged and never undo the change.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeEncounter         Type = "movement.encounter"
	TypeTunnelDegradation Type = "tunnel.degradation"
	TypeTunnelCollapse    Type = "tunnel.collapse"
	TypeTunnelHazard      Type = "tunnel.hazard"
	TypeCombatRound       Type = "combat.round"
	TypeCombatEnded       Type = "combat.ended"
	TypeDroneCombat       Type = "drone.combat"
)

type Event struct {
	Type       Type       `json:"type"`
	PlayerID   *uuid.UUID `json:"playerId,omitempty"`
	SectorID   *int       `json:"sectorId,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
	Payload    any        `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Emit publishes each event in order, logging failures.
func Emit(ctx context.Context, pub Publisher, logger *slog.Logger, evs ...Event) {
	for _, ev := range evs {
		if err := pub.Publish(ctx, ev); err != nil {
			logger.Warn("Failed to publish event", "event_type", ev.Type, "error", err)
		}
	}
}

// LogPublisher writes events to the structured log. Used when redis is disabled.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "events")}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.logger.Info("Event", "event_type", ev.Type, "player_id", ev.PlayerID, "sector_id", ev.SectorID, "payload", ev.Payload)
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events with the given type.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
