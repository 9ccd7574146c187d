package state

import worldpkg "harvest-and-haul/server/internal/world"

// GroundItem is a material stack lying in the world, typically scattered when
// a resource node is destroyed. Pickup eligibility is granted asynchronously
// by the owning world (physics settle, spawn grace), so collectors request it
// and retry.
type GroundItem struct {
	ID                   string        `json:"id"`
	Stack                ItemStack     `json:"stack"`
	Pos                  worldpkg.Vec3 `json:"pos"`
	OwnerID              string        `json:"owner_id,omitempty"`
	PickupEligible       bool          `json:"pickup_eligible"`
	EligibilityRequested bool          `json:"-"`
}

// RequestPickupEligibility asks the owning world to make the drop pickable.
// Safe to call repeatedly.
func (g *GroundItem) RequestPickupEligibility() {
	if g == nil {
		return
	}
	g.EligibilityRequested = true
}

// ClaimableBy reports whether the agent may pick this drop up: either the
// drop is unowned or it belongs to that agent.
func (g *GroundItem) ClaimableBy(agentID string) bool {
	if g == nil {
		return false
	}
	return g.OwnerID == "" || g.OwnerID == agentID
}
