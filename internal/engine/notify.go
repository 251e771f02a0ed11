package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/coldtrace/coldtrace/internal/compliance"
)

// Notifier receives compliance-breach events. The engine calls it after the
// breach has been durably persisted, once per submit call that ends with a
// non-compliant batch (freshly flagged or already terminal).
type Notifier interface {
	NotifyBreach(ctx context.Context, ev compliance.BreachEvent)
}

// SlogNotifier logs breach events at Warn level. This is the default.
type SlogNotifier struct{}

// NotifyBreach implements Notifier.
func (SlogNotifier) NotifyBreach(_ context.Context, ev compliance.BreachEvent) {
	slog.Warn("compliance breach",
		"event_id", ev.EventID,
		"batch_id", ev.BatchID,
		"reason", ev.Reason,
		"seq", ev.Seq,
	)
}

// CollectNotifier records breach events in memory for assertions in tests.
type CollectNotifier struct {
	mu     sync.Mutex
	events []compliance.BreachEvent
}

// NotifyBreach implements Notifier.
func (n *CollectNotifier) NotifyBreach(_ context.Context, ev compliance.BreachEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

// Events returns a copy of the collected events.
func (n *CollectNotifier) Events() []compliance.BreachEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]compliance.BreachEvent, len(n.events))
	copy(out, n.events)
	return out
}

// EventIDGenerator generates unique breach-event ids.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type EventIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 event ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, making ids
// sortable by creation time, which is helpful when eyeballing breach logs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined event ids for testing.
// This enables deterministic golden trace comparison.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics if all ids have been consumed. This is a fail-fast approach to
// catch test misconfiguration (more breaches occurred than expected).
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all event ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
