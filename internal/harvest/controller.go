package harvest

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"

	state "harvest-and-haul/server/internal/state"
	worldpkg "harvest-and-haul/server/internal/world"
	"harvest-and-haul/server/logging"
	"harvest-and-haul/server/logging/gathering"
)

// State is the controller's current activity.
type State uint8

const (
	StateIdle State = iota
	StateMoving
	StateAttacking
	StateCollecting
)

func (s State) String() string {
	switch s {
	case StateMoving:
		return "moving"
	case StateAttacking:
		return "attacking"
	case StateCollecting:
		return "collecting"
	default:
		return "idle"
	}
}

// Deps wires the controller to the owning world. Config, Agent, Inventory,
// Nodes, Drops, Actuator, and Mode are required; the rest degrade to
// no-ops when nil.
type Deps struct {
	Config    *Config
	Agent     AgentLink
	Inventory InventoryAccess
	Nodes     NodeSource
	Drops     DropSource
	Nav       worldpkg.NavOracle
	Actuator  Actuator
	Mode      ModeSource
	Combat    CombatSignals
	Stamina   ResourceGate
	Publisher logging.Publisher
}

type pausedTarget struct {
	node  state.NodeID
	rtype state.ResourceType
	valid bool
}

// Controller runs one agent's autonomous harvesting as a four-state machine
// advanced strictly by Update. All timing is in simulation seconds; a paused
// world freezes every timer. The controller never blocks and never touches
// the agent outside its own tick.
type Controller struct {
	deps Deps
	cfg  *Config

	state   State
	tick    uint64
	traceID string
	actor   logging.EntityRef

	blacklist *Blacklist
	scanner   *Scanner
	tools     *ToolManager
	drops     *DropCollector
	hints     *hintGate

	lastMode Mode

	target       state.NodeID
	targetType   state.ResourceType
	lastKnown    worldpkg.Vec3
	hasLastKnown bool
	ip           worldpkg.InteractionPoint
	ipValid      bool

	lockRemaining float64
	idleTimer     float64
	recalcTimer   float64
	attackTimer   float64
	losFailures   int

	paused        pausedTarget
	inventoryFull bool
}

// New validates deps and builds a controller in the idle state.
func New(deps Deps) (*Controller, error) {
	if deps.Config == nil {
		return nil, errors.New("harvest: nil config")
	}
	if err := deps.Config.Validate(); err != nil {
		return nil, err
	}
	if deps.Agent == nil || deps.Inventory == nil || deps.Nodes == nil ||
		deps.Drops == nil || deps.Actuator == nil || deps.Mode == nil {
		return nil, errors.New("harvest: missing required dependency")
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	c := &Controller{
		deps:      deps,
		cfg:       deps.Config,
		traceID:   uuid.NewString(),
		actor:     logging.EntityRef{ID: deps.Agent.ID(), Kind: logging.EntityKindAgent},
		blacklist: NewBlacklist(deps.Config.BlacklistTTL),
		scanner:   NewScanner(deps.Config, deps.Nodes, deps.Nav),
		tools:     NewToolManager(deps.Config, deps.Agent, deps.Inventory),
	}
	c.drops = NewDropCollector(deps.Config, deps.Drops, deps.Inventory, deps.Agent, deps.Actuator, deps.Nav)
	c.drops.SetOnCollect(func(stack state.ItemStack) {
		gathering.DropCollected(context.Background(), c.deps.Publisher, c.tick, c.actor, c.traceID,
			gathering.DropCollectedPayload{ItemType: string(stack.Type), Quantity: stack.Quantity})
	})
	c.hints = newHintGate(deps.Config, deps.Publisher, c.actor)
	return c, nil
}

// State returns the current FSM state.
func (c *Controller) State() State { return c.state }

// IsActivelyHarvesting reports whether the controller is moving toward or
// swinging at a node.
func (c *Controller) IsActivelyHarvesting() bool {
	return c.state == StateMoving || c.state == StateAttacking
}

// IsCollectingDrops reports whether a drop-collection pass is running.
func (c *Controller) IsCollectingDrops() bool { return c.state == StateCollecting }

// InventoryFull reports whether harvesting is stalled on inventory space.
func (c *Controller) InventoryFull() bool { return c.inventoryFull }

// TraceID returns the current session identifier carried on every event.
func (c *Controller) TraceID() string { return c.traceID }

// BlacklistSize reports the number of currently excluded nodes.
func (c *Controller) BlacklistSize() int { return c.blacklist.Len() }

// Update advances the controller by dt simulation seconds.
func (c *Controller) Update(dt float64) {
	if dt <= 0 {
		return
	}
	c.tick++
	c.blacklist.Advance(dt)
	c.hints.advance(dt)
	c.lockRemaining -= dt
	c.idleTimer -= dt
	c.recalcTimer -= dt
	c.attackTimer -= dt

	if c.deps.Agent.Dead() {
		if c.lastMode != ModeNone && c.state != StateIdle {
			c.resetSession("dead")
		}
		return
	}
	if c.deps.Agent.InteractionLocked() {
		return
	}

	if mode := c.deps.Mode.RequestedMode(); mode != c.lastMode {
		c.applyModeChanged(mode)
	}
	if c.lastMode == ModeNone {
		return
	}

	if c.deps.Combat != nil {
		if c.deps.Combat.Retreating() {
			c.pauseForCombat("retreating")
			return
		}
		if c.deps.Combat.NearestEnemyDistance() <= c.cfg.EnemyPauseRadius {
			c.pauseForCombat("enemy_near")
			return
		}
	}
	if owner, ok := c.deps.Agent.OwnerPosition(); ok {
		if c.deps.Agent.Position().HorizontalDistance(owner) > c.cfg.MaxLeashDistance {
			if c.state != StateIdle || c.target != "" || c.paused.valid {
				c.resetSession("leash")
			}
			return
		}
	}

	switch c.state {
	case StateIdle:
		c.updateIdle()
	case StateMoving:
		c.updateMoving()
	case StateAttacking:
		c.updateAttacking()
	case StateCollecting:
		c.updateCollecting(dt)
	}
}

// NotifyModeChanged polls the mode source immediately instead of waiting for
// the next Update.
func (c *Controller) NotifyModeChanged() {
	if mode := c.deps.Mode.RequestedMode(); mode != c.lastMode {
		c.applyModeChanged(mode)
	}
}

// Stop halts all harvesting activity and restores the agent's loadout. If a
// mode is still requested, harvesting resumes on a later Update.
func (c *Controller) Stop() {
	c.resetSession("stopped")
}

func (c *Controller) applyModeChanged(mode Mode) {
	c.lastMode = mode
	c.resetSession("mode_changed")
	// Tier blocks were judged against the old mode's tool preference;
	// navigation entries stay until their TTL.
	c.blacklist.ClearReason(ReasonToolTier)
	if mode == ModeNone {
		return
	}
	c.traceID = uuid.NewString()
	c.tools.SetPreferredType(mode.ResourceType())
}

// resetSession is the single funnel through which harvesting fully stops:
// movement halted, target and pause slots cleared, and the combat loadout
// restored. Blacklist entries are left to expire on their own.
func (c *Controller) resetSession(cause string) {
	c.drops.Stop()
	c.deps.Actuator.StopMoving()
	c.clearTarget()
	c.hasLastKnown = false
	c.paused = pausedTarget{}
	c.inventoryFull = false
	c.tools.RestoreCombatLoadout()
	c.setState(StateIdle)
	gathering.SessionReset(context.Background(), c.deps.Publisher, c.tick, c.actor, c.traceID,
		gathering.SessionResetPayload{Cause: cause})
}

// pauseForCombat suspends harvesting without tearing the session down. A
// target mid-approach or mid-swing is remembered for resume; the equipped
// tool stays equipped.
func (c *Controller) pauseForCombat(reason string) {
	if c.state == StateIdle {
		return
	}
	if (c.state == StateMoving || c.state == StateAttacking) && c.target != "" {
		c.paused = pausedTarget{node: c.target, rtype: c.targetType, valid: true}
	}
	c.clearTarget()
	gathering.Paused(context.Background(), c.deps.Publisher, c.tick, c.actor, c.traceID,
		gathering.PausedPayload{Reason: reason})
	c.setState(StateIdle)
}

func (c *Controller) updateIdle() {
	if c.idleTimer > 0 {
		return
	}
	c.idleTimer = c.cfg.IdleScanInterval

	if c.paused.valid {
		node, ok := c.deps.Nodes.Node(c.paused.node)
		rtype := c.paused.rtype
		c.paused = pausedTarget{}
		if ok && node.Active && ToolCanHarvest(c.deps.Agent.EquippedTool(), rtype, node.MinToolTier) {
			c.beginApproach(node)
			return
		}
	}
	if c.hasLastKnown && c.drops.HasDropsNear(c.lastKnown) {
		c.drops.Begin(c.lastKnown)
		c.setState(StateCollecting)
		return
	}
	c.tryAcquireTarget()
}

// tryAcquireTarget scans, equips, and starts the approach. Returns false
// when nothing actionable was found; a failed scan leaves no state behind
// beyond the hint cooldowns.
func (c *Controller) tryAcquireTarget() bool {
	rt := c.lastMode.ResourceType()
	if rt == state.ResourceNone {
		return false
	}
	if !c.deps.Inventory.HasCapacity() {
		c.inventoryFull = true
		c.hints.emit(c.tick, c.traceID, hintInventoryFull)
		return false
	}
	c.inventoryFull = false
	c.hints.clear(hintInventoryFull)

	pos := c.deps.Agent.Position()
	owner, hasOwner := c.deps.Agent.OwnerPosition()
	res := c.scanner.FindBest(pos, owner, hasOwner, rt, c.tools.FindBestTool, c.blacklist.Contains)
	hasAnyTool := c.tools.FindBestTool(rt, 1) != nil
	if hasAnyTool {
		// Tier-skipped nodes stay excluded until the TTL runs out, the tool
		// situation changes, or the mode clears the entries. An agent with no
		// tool at all gets the no-tool hint instead of a blanket blacklist.
		for _, id := range res.TierBlocked {
			c.blacklist.Add(id, ReasonToolTier)
			gathering.TargetBlacklisted(context.Background(), c.deps.Publisher, c.tick, c.actor, c.traceID,
				gathering.TargetBlacklistedPayload{NodeID: string(id), Reason: ReasonToolTier.String()})
		}
	}
	if res.Target == nil {
		switch {
		case !hasAnyTool:
			c.hints.emit(c.tick, c.traceID, hintNoTool)
		case res.ToolTierBlocked:
			c.hints.emit(c.tick, c.traceID, hintToolTooWeak)
		default:
			c.hints.emit(c.tick, c.traceID, hintNothingInRange)
		}
		return false
	}

	if _, ok := c.tools.EquipForHarvest(rt, res.Target.MinToolTier); !ok {
		c.hints.emit(c.tick, c.traceID, hintNoTool)
		return false
	}
	if c.tools.CheckToolWarning() {
		c.hints.emit(c.tick, c.traceID, hintToolWorn)
	}
	gathering.TargetSelected(context.Background(), c.deps.Publisher, c.tick, c.actor, c.traceID,
		gathering.TargetSelectedPayload{
			NodeID:    string(res.Target.ID),
			Resource:  res.Target.Type.String(),
			Score:     res.Score,
			Reachable: res.Reachable,
		})
	c.beginApproach(res.Target)
	return true
}

func (c *Controller) beginApproach(node *state.ResourceNode) {
	c.target = node.ID
	c.targetType = node.Type
	c.lastKnown = node.Pos
	c.hasLastKnown = true
	c.lockRemaining = c.cfg.TargetLockSeconds
	c.losFailures = 0
	c.recalcTimer = 0
	c.ipValid = false
	c.setState(StateMoving)
	// Chained acquisitions stay in the moving state; push the new goal now.
	c.deps.Actuator.SetFollowTarget(node.Pos)
}

func (c *Controller) updateMoving() {
	node, ok := c.deps.Nodes.Node(c.target)
	if !ok || !node.Active {
		c.targetLost()
		return
	}
	if c.recalcTimer <= 0 {
		c.refreshInteractionPoint(node)
	}
	goal := node.Pos
	if c.ipValid {
		goal = c.ip.Stand
	}
	c.deps.Actuator.SetFollowTarget(goal)

	if c.lockRemaining <= 0 {
		switch c.deps.Actuator.Status() {
		case MoveStuckOscillating:
			c.failTarget(ReasonOscillation)
			return
		case MoveStuckNoPath:
			c.failTarget(ReasonPathFailed)
			return
		}
	}

	pos := c.deps.Agent.Position()
	h := pos.HorizontalDistance(node.Pos)
	dz := math.Abs(pos.HeightDelta(node.Pos))
	minDist, maxDist := c.interactBand()
	if h >= minDist && h <= maxDist && dz <= c.cfg.MaxVerticalOffset {
		c.setState(StateAttacking)
	}
}

func (c *Controller) updateAttacking() {
	node, ok := c.deps.Nodes.Node(c.target)
	if !ok || !node.Active {
		c.targetLost()
		return
	}
	// The stand band is refreshed on the same throttle as Moving so a
	// shifted oracle answer is not frozen for the whole attack.
	if c.recalcTimer <= 0 {
		c.refreshInteractionPoint(node)
	}
	pos := c.deps.Agent.Position()
	h := pos.HorizontalDistance(node.Pos)
	dz := math.Abs(pos.HeightDelta(node.Pos))
	minDist, maxDist := c.interactBand()
	if h < minDist-c.cfg.HysteresisMinSlack || h > maxDist+c.cfg.HysteresisMaxSlack || dz > c.cfg.MaxVerticalOffset {
		c.setState(StateMoving)
		return
	}
	if c.attackTimer > 0 {
		return
	}

	if c.deps.Nav != nil && c.deps.Nav.LineOfSightBlocked(pos, node.Pos, c.deps.Agent.ID()) {
		c.losFailures++
		if c.losFailures >= c.cfg.LOSFailureLimit {
			c.failTarget(ReasonUnreachable)
			return
		}
		c.attackTimer = c.cfg.AttackRetryCooldown
		return
	}
	c.losFailures = 0

	tool := c.deps.Agent.EquippedTool()
	if !ToolCanHarvest(tool, node.Type, node.MinToolTier) {
		equipped, ok := c.tools.EquipForHarvest(node.Type, node.MinToolTier)
		if !ok {
			c.hints.emit(c.tick, c.traceID, hintNoTool)
			c.abortToIdle()
			return
		}
		tool = equipped
	}
	if !c.deps.Inventory.HasCapacity() {
		c.inventoryFull = true
		c.hints.emit(c.tick, c.traceID, hintInventoryFull)
		c.abortToIdle()
		return
	}
	if c.deps.Stamina != nil && !c.deps.Stamina.TryConsume(c.cfg.StaminaPerSwing) {
		c.attackTimer = c.cfg.AttackRetryCooldown
		return
	}

	c.deps.Agent.Face(node.Pos)
	if !c.deps.Agent.Interact(node, tool) {
		c.attackTimer = c.cfg.AttackRetryCooldown
		return
	}
	tool.Durability -= c.cfg.ToolWearPerUse
	if tool.Durability < 0 {
		tool.Durability = 0
	}
	if c.tools.CheckToolWarning() {
		c.hints.emit(c.tick, c.traceID, hintToolWorn)
	}
	c.attackTimer = c.cfg.AttackCooldown
	if !node.Active {
		c.targetLost()
	}
}

func (c *Controller) updateCollecting(dt float64) {
	res := c.drops.Update(dt)
	if res.Continue {
		return
	}
	if res.InventoryFull {
		c.inventoryFull = true
		c.hints.emit(c.tick, c.traceID, hintInventoryFull)
		c.tools.RestoreCombatLoadout()
		c.setState(StateIdle)
		return
	}
	c.hasLastKnown = false
	if !c.tryAcquireTarget() {
		c.setState(StateIdle)
	}
}

// failTarget blacklists the current target and immediately tries the next
// candidate, so one bad node costs a single tick.
func (c *Controller) failTarget(reason Reason) {
	id := c.target
	c.blacklist.Add(id, reason)
	gathering.TargetBlacklisted(context.Background(), c.deps.Publisher, c.tick, c.actor, c.traceID,
		gathering.TargetBlacklistedPayload{NodeID: string(id), Reason: reason.String()})
	c.clearTarget()
	c.deps.Actuator.StopMoving()
	if !c.tryAcquireTarget() {
		c.setState(StateIdle)
	}
}

// targetLost handles a target that vanished or was destroyed. Drops near its
// last position pull the controller into collection, otherwise it goes idle
// and rescans on the next tick.
func (c *Controller) targetLost() {
	c.clearTarget()
	c.deps.Actuator.StopMoving()
	if c.hasLastKnown && c.drops.HasDropsNear(c.lastKnown) {
		c.drops.Begin(c.lastKnown)
		c.setState(StateCollecting)
		return
	}
	c.setState(StateIdle)
}

// abortToIdle ends the session's active work and hands the loadout back.
func (c *Controller) abortToIdle() {
	c.clearTarget()
	c.deps.Actuator.StopMoving()
	c.tools.RestoreCombatLoadout()
	c.setState(StateIdle)
}

// refreshInteractionPoint re-asks the oracle for the stand position and
// acceptable band, and re-arms the shared recalc throttle.
func (c *Controller) refreshInteractionPoint(node *state.ResourceNode) {
	c.recalcTimer = c.cfg.InteractionRecalcInterval
	c.lastKnown = node.Pos
	c.ipValid = false
	if c.deps.Nav != nil {
		c.ip, c.ipValid = c.deps.Nav.ComputeInteractionPoint(node.Pos)
	}
}

func (c *Controller) clearTarget() {
	c.target = ""
	c.targetType = state.ResourceNone
	c.ipValid = false
	c.lockRemaining = 0
}

func (c *Controller) interactBand() (float64, float64) {
	if c.ipValid {
		return c.ip.MinDist, c.ip.MaxDist
	}
	return 0, worldpkg.DefaultInteractMaxDist
}

func (c *Controller) setState(next State) {
	if next == c.state {
		return
	}
	prev := c.state
	switch prev {
	case StateMoving:
		c.deps.Actuator.StopMoving()
	case StateCollecting:
		c.drops.Stop()
		c.deps.Actuator.StopMoving()
	}
	c.state = next
	switch next {
	case StateIdle:
		c.idleTimer = 0
	case StateMoving:
		c.recalcTimer = 0
	case StateAttacking:
		c.attackTimer = 0
		c.losFailures = 0
	}
	gathering.StateChanged(context.Background(), c.deps.Publisher, c.tick, c.actor, c.traceID,
		gathering.StateChangedPayload{From: prev.String(), To: next.String()})
}
