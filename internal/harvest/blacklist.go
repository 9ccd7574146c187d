package harvest

import (
	"sort"

	state "harvest-and-haul/server/internal/state"
)

// Reason records why a node was blacklisted. Entries with different reasons
// share the same TTL but are distinguishable in events and tests.
type Reason uint8

const (
	ReasonUnreachable Reason = iota
	ReasonOscillation
	ReasonPathFailed
	ReasonToolTier
)

func (r Reason) String() string {
	switch r {
	case ReasonUnreachable:
		return "unreachable"
	case ReasonOscillation:
		return "oscillation"
	case ReasonPathFailed:
		return "path_failed"
	case ReasonToolTier:
		return "tool_tier"
	default:
		return "unknown"
	}
}

type blacklistEntry struct {
	reason    Reason
	expiresAt float64
}

// Blacklist temporarily excludes nodes from target selection. Time advances
// only through Advance, in simulation seconds; a paused world never expires
// entries.
type Blacklist struct {
	entries map[state.NodeID]blacklistEntry
	now     float64
	ttl     float64
}

func NewBlacklist(ttlSeconds float64) *Blacklist {
	return &Blacklist{
		entries: make(map[state.NodeID]blacklistEntry),
		ttl:     ttlSeconds,
	}
}

// Advance moves simulation time forward and expires stale entries.
func (b *Blacklist) Advance(dt float64) {
	if dt <= 0 {
		return
	}
	b.now += dt
	for id, entry := range b.entries {
		if entry.expiresAt <= b.now {
			delete(b.entries, id)
		}
	}
}

// Add blacklists the node for the configured TTL. Re-adding refreshes the
// expiry and overwrites the reason.
func (b *Blacklist) Add(id state.NodeID, reason Reason) {
	if id == "" {
		return
	}
	b.entries[id] = blacklistEntry{reason: reason, expiresAt: b.now + b.ttl}
}

// Contains reports whether the node is currently excluded.
func (b *Blacklist) Contains(id state.NodeID) bool {
	_, ok := b.entries[id]
	return ok
}

// ReasonFor returns the recorded reason for a blacklisted node.
func (b *Blacklist) ReasonFor(id state.NodeID) (Reason, bool) {
	entry, ok := b.entries[id]
	return entry.reason, ok
}

// ClearReason drops every entry added for the given reason. Used when the
// condition that produced the entries is known to have changed, e.g. a tool
// upgrade invalidates tier blocks.
func (b *Blacklist) ClearReason(reason Reason) {
	for id, entry := range b.entries {
		if entry.reason == reason {
			delete(b.entries, id)
		}
	}
}

// Clear drops every entry.
func (b *Blacklist) Clear() {
	for id := range b.entries {
		delete(b.entries, id)
	}
}

func (b *Blacklist) Len() int {
	return len(b.entries)
}

// Snapshot returns the blacklisted node IDs in sorted order for diagnostics.
func (b *Blacklist) Snapshot() []state.NodeID {
	ids := make([]state.NodeID, 0, len(b.entries))
	for id := range b.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
