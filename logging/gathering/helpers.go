package gathering

import (
	"context"

	"harvest-and-haul/server/logging"
)

const (
	// EventStateChanged is emitted on every harvest state-machine transition.
	EventStateChanged logging.EventType = "gathering.state_changed"
	// EventTargetSelected is emitted when the scanner commits to a node.
	EventTargetSelected logging.EventType = "gathering.target_selected"
	// EventTargetBlacklisted is emitted when a node is excluded from reselection.
	EventTargetBlacklisted logging.EventType = "gathering.target_blacklisted"
	// EventPaused is emitted when combat signals suspend harvesting.
	EventPaused logging.EventType = "gathering.paused"
	// EventHint carries rate-limited, user-facing status text.
	EventHint logging.EventType = "gathering.hint"
	// EventDropCollected is emitted per ground-item pickup.
	EventDropCollected logging.EventType = "gathering.drop_collected"
	// EventSessionReset is emitted when the controller runs its full reset funnel.
	EventSessionReset logging.EventType = "gathering.session_reset"
)

// StateChangedPayload records one FSM transition.
type StateChangedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TargetSelectedPayload describes the chosen node.
type TargetSelectedPayload struct {
	NodeID    string  `json:"nodeId"`
	Resource  string  `json:"resource"`
	Score     float64 `json:"score,omitempty"`
	Reachable bool    `json:"reachable"`
}

// TargetBlacklistedPayload describes a blacklist insertion.
type TargetBlacklistedPayload struct {
	NodeID string `json:"nodeId"`
	Reason string `json:"reason"`
}

// PausedPayload describes why harvesting was suspended.
type PausedPayload struct {
	Reason string `json:"reason"`
}

// HintPayload carries cosmetic status text.
type HintPayload struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// DropCollectedPayload describes a pickup.
type DropCollectedPayload struct {
	ItemType string `json:"itemType"`
	Quantity int    `json:"quantity"`
}

// SessionResetPayload describes a funnel reset.
type SessionResetPayload struct {
	Cause string `json:"cause"`
}

// StateChanged publishes a transition event.
func StateChanged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, traceID string, payload StateChangedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventStateChanged,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryGameplay,
		Payload:  payload,
		TraceID:  traceID,
	})
}

// TargetSelected publishes a target-commit event.
func TargetSelected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, traceID string, payload TargetSelectedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventTargetSelected,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: payload.NodeID, Kind: logging.EntityKindNode}},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
		TraceID:  traceID,
	})
}

// TargetBlacklisted publishes a blacklist-insertion event.
func TargetBlacklisted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, traceID string, payload TargetBlacklistedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventTargetBlacklisted,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: payload.NodeID, Kind: logging.EntityKindNode}},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryGameplay,
		Payload:  payload,
		TraceID:  traceID,
	})
}

// Paused publishes a combat-pause event.
func Paused(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, traceID string, payload PausedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventPaused,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
		TraceID:  traceID,
	})
}

// Hint publishes rate-limited status text.
func Hint(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, traceID string, payload HintPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventHint,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
		TraceID:  traceID,
	})
}

// DropCollected publishes a pickup event.
func DropCollected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, traceID string, payload DropCollectedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventDropCollected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
		TraceID:  traceID,
	})
}

// SessionReset publishes a funnel-reset event.
func SessionReset(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, traceID string, payload SessionResetPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventSessionReset,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
		TraceID:  traceID,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, event)
}
