package harvest

import (
	"context"

	"harvest-and-haul/server/logging"
	"harvest-and-haul/server/logging/gathering"
)

const (
	hintNoTool         = "no_tool"
	hintNothingInRange = "nothing_in_range"
	hintToolTooWeak    = "tool_too_weak"
	hintInventoryFull  = "inventory_full"
	hintToolWorn       = "tool_worn"
)

var hintMessages = map[string]string{
	hintNoTool:         "No usable tool for this resource.",
	hintNothingInRange: "Nothing to gather nearby.",
	hintToolTooWeak:    "A better tool is needed for some nodes here.",
	hintInventoryFull:  "Inventory is full.",
	hintToolWorn:       "Tool is nearly worn out.",
}

// hintGate rate-limits user-facing status hints per key. A hint repeats only
// after its cooldown elapses or after the condition clears and recurs.
type hintGate struct {
	cfg      *Config
	pub      logging.Publisher
	actor    logging.EntityRef
	cooldown map[string]float64
}

func newHintGate(cfg *Config, pub logging.Publisher, actor logging.EntityRef) *hintGate {
	return &hintGate{
		cfg:      cfg,
		pub:      pub,
		actor:    actor,
		cooldown: make(map[string]float64),
	}
}

func (h *hintGate) advance(dt float64) {
	for key, remaining := range h.cooldown {
		remaining -= dt
		if remaining <= 0 {
			delete(h.cooldown, key)
		} else {
			h.cooldown[key] = remaining
		}
	}
}

// emit publishes the hint unless its key is on cooldown.
func (h *hintGate) emit(tick uint64, traceID, key string) {
	if _, held := h.cooldown[key]; held {
		return
	}
	h.cooldown[key] = h.cfg.HintCooldownSeconds
	gathering.Hint(context.Background(), h.pub, tick, h.actor, traceID, gathering.HintPayload{
		Key:     key,
		Message: hintMessages[key],
	})
}

// clear resets the cooldown for a key whose condition resolved, so the hint
// fires again promptly if the condition returns.
func (h *hintGate) clear(key string) {
	delete(h.cooldown, key)
}
