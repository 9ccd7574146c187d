package harvest

import (
	"sort"

	state "harvest-and-haul/server/internal/state"
	worldpkg "harvest-and-haul/server/internal/world"
)

// DropResult is one collection tick's outcome.
type DropResult struct {
	// Continue is false once the collection pass is over, for any reason.
	Continue bool
	// InventoryFull reports that the pass ended because every remaining
	// claimable drop no longer fits.
	InventoryFull bool
	// Collected is the number of stacks picked up this tick.
	Collected int
}

// DropCollector sweeps scattered materials around a destroyed node. A pass
// is bounded three ways: a wall-free time cap in simulation seconds, a limit
// on consecutive empty scans, and the capacity of the inventory.
type DropCollector struct {
	cfg      *Config
	drops    DropSource
	inv      InventoryAccess
	agent    AgentLink
	actuator Actuator
	nav      worldpkg.NavOracle

	// onCollect, when set, observes every picked-up stack.
	onCollect func(state.ItemStack)

	active            bool
	center            worldpkg.Vec3
	elapsed           float64
	pickupTimer       float64
	emptyScans        int
	blockedByCapacity bool
	buf               []string
}

func NewDropCollector(cfg *Config, drops DropSource, inv InventoryAccess, agent AgentLink, actuator Actuator, nav worldpkg.NavOracle) *DropCollector {
	return &DropCollector{
		cfg:      cfg,
		drops:    drops,
		inv:      inv,
		agent:    agent,
		actuator: actuator,
		nav:      nav,
		buf:      make([]string, 0, cfg.ScanBufferCap),
	}
}

// SetOnCollect installs an observer for picked-up stacks.
func (c *DropCollector) SetOnCollect(fn func(state.ItemStack)) {
	c.onCollect = fn
}

// Active reports whether a collection pass is running.
func (c *DropCollector) Active() bool {
	return c.active
}

// BlockedByCapacity reports whether the last pass left drops behind for
// lack of inventory room.
func (c *DropCollector) BlockedByCapacity() bool {
	return c.blockedByCapacity
}

// HasDropsNear reports whether any claimable drop lies within scan range of
// the given point.
func (c *DropCollector) HasDropsNear(center worldpkg.Vec3) bool {
	ids := c.drops.DropsInRange(center, c.cfg.DropScanRange, c.buf)
	for _, id := range ids {
		drop, ok := c.drops.Drop(id)
		if !ok {
			continue
		}
		if drop.ClaimableBy(c.agent.ID()) {
			return true
		}
	}
	return false
}

// Begin starts a collection pass centered on the given point, usually the
// last known position of a destroyed node.
func (c *DropCollector) Begin(center worldpkg.Vec3) {
	c.active = true
	c.center = center
	c.elapsed = 0
	c.pickupTimer = 0
	c.emptyScans = 0
	c.blockedByCapacity = false
}

// Stop abandons the pass without touching the actuator; the caller owns
// movement cleanup.
func (c *DropCollector) Stop() {
	c.active = false
}

// Update advances the pass by dt seconds. Drop references are re-fetched
// every tick; other systems may consume or despawn drops between calls.
func (c *DropCollector) Update(dt float64) DropResult {
	if !c.active {
		return DropResult{}
	}
	c.elapsed += dt
	if c.pickupTimer > 0 {
		c.pickupTimer -= dt
	}
	if c.elapsed > c.cfg.DropCollectMaxSeconds {
		c.active = false
		return DropResult{}
	}

	ids := c.drops.DropsInRange(c.center, c.cfg.DropScanRange, c.buf)
	sort.Strings(ids)

	pos := c.agent.Position()
	pending := 0
	fitsNone := true
	var nearest *state.GroundItem
	nearestDist := 0.0
	for _, id := range ids {
		drop, ok := c.drops.Drop(id)
		if !ok {
			continue
		}
		if pos.HorizontalDistance(drop.Pos) > c.cfg.DropMaxRange {
			continue
		}
		pending++
		if !drop.ClaimableBy(c.agent.ID()) {
			continue
		}
		if !drop.PickupEligible {
			drop.RequestPickupEligibility()
			continue
		}
		if !c.inv.CanAdd(drop.Stack) {
			c.blockedByCapacity = true
			continue
		}
		fitsNone = false
		dist := pos.HorizontalDistance(drop.Pos)
		if nearest == nil || dist < nearestDist {
			nearest, nearestDist = drop, dist
		}
	}

	if pending == 0 {
		c.emptyScans++
		if c.emptyScans >= c.cfg.DropEmptyScanLimit {
			c.active = false
			return DropResult{}
		}
		return DropResult{Continue: true}
	}
	c.emptyScans = 0

	if c.blockedByCapacity && fitsNone {
		c.active = false
		return DropResult{InventoryFull: true}
	}
	if nearest == nil {
		// Everything pending is waiting on eligibility; hold position.
		return DropResult{Continue: true}
	}

	if nearestDist > c.cfg.DropPickupRadius {
		c.actuator.SetFollowTarget(nearest.Pos)
		return DropResult{Continue: true}
	}
	if c.nav != nil && c.nav.LineOfSightBlocked(pos, nearest.Pos, c.agent.ID()) {
		c.actuator.SetFollowTarget(nearest.Pos)
		return DropResult{Continue: true}
	}
	if c.pickupTimer > 0 {
		return DropResult{Continue: true}
	}

	stack, ok := c.drops.RemoveDrop(nearest.ID)
	if !ok {
		return DropResult{Continue: true}
	}
	if !c.inv.Add(stack) {
		// Capacity changed between the check and the pickup.
		c.blockedByCapacity = true
		return DropResult{Continue: true}
	}
	c.pickupTimer = c.cfg.DropPickupInterval
	if c.onCollect != nil {
		c.onCollect(stack)
	}
	return DropResult{Continue: true, Collected: 1}
}
