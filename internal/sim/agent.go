package sim

import (
	"harvest-and-haul/server/internal/harvest"
	state "harvest-and-haul/server/internal/state"
	worldpkg "harvest-and-haul/server/internal/world"
)

const (
	defaultMoveSpeed  = 4.0
	defaultMaxStamina = 100.0
	defaultStaminaReg = 8.0

	// moveStallLimit is how many consecutive non-improving movement steps
	// count as stuck.
	moveStallLimit = 40
	// moveStallEpsilon is the minimum per-step progress toward the goal.
	moveStallEpsilon = 0.01
)

// Agent is a world actor with locomotion, an inventory, an equipped-tool
// slot, and a stamina pool. It implements the link, actuator, and resource
// surfaces the harvest controller consumes.
type Agent struct {
	id    string
	pos   worldpkg.Vec3
	speed float64

	dead   bool
	locked bool

	owner    worldpkg.Vec3
	hasOwner bool

	Inventory *state.Inventory
	// Controller, when set, is advanced by World.Step after locomotion.
	Controller *harvest.Controller

	equipped   *state.ItemStack
	offHand    *state.ItemStack
	combatMain state.ItemType
	combatOff  state.ItemType
	suppressed bool
	facing     worldpkg.Vec3

	following  bool
	follow     worldpkg.Vec3
	bestDist   float64
	stallTicks int
	moveStatus harvest.MoveStatus
	// forcedStatus, when nonzero, overrides stuck detection.
	forcedStatus harvest.MoveStatus
	forceStatus  bool

	stamina    float64
	maxStamina float64
	regen      float64

	// failInteract makes every swing attempt report failure.
	failInteract bool

	world *World
}

func NewAgent(id string, pos worldpkg.Vec3, inv *state.Inventory) *Agent {
	return &Agent{
		id:         id,
		pos:        pos,
		speed:      defaultMoveSpeed,
		Inventory:  inv,
		stamina:    defaultMaxStamina,
		maxStamina: defaultMaxStamina,
		regen:      defaultStaminaReg,
	}
}

func (a *Agent) ID() string              { return a.id }
func (a *Agent) Position() worldpkg.Vec3 { return a.pos }
func (a *Agent) Dead() bool              { return a.dead }
func (a *Agent) InteractionLocked() bool { return a.locked }

func (a *Agent) SetPosition(pos worldpkg.Vec3) { a.pos = pos }
func (a *Agent) SetDead(dead bool)             { a.dead = dead }
func (a *Agent) SetInteractionLocked(v bool)   { a.locked = v }
func (a *Agent) SetSpeed(speed float64)        { a.speed = speed }
func (a *Agent) SetStamina(v float64)          { a.stamina = v }
func (a *Agent) SetFailInteract(v bool)        { a.failInteract = v }
func (a *Agent) Facing() worldpkg.Vec3         { return a.facing }
func (a *Agent) AutoEquipSuppressed() bool     { return a.suppressed }

// SetOwner attaches the agent to an owner position for leash and proximity
// scoring.
func (a *Agent) SetOwner(pos worldpkg.Vec3) {
	a.owner = pos
	a.hasOwner = true
}

func (a *Agent) ClearOwner() { a.hasOwner = false }

// OwnerPosition implements harvest.AgentLink.
func (a *Agent) OwnerPosition() (worldpkg.Vec3, bool) {
	return a.owner, a.hasOwner
}

// SetCombatLoadout records the item type ResyncLoadout re-equips.
func (a *Agent) SetCombatLoadout(main state.ItemType) {
	a.combatMain = main
}

// SetCombatOffHand records the off-hand item ResyncLoadout restores. The
// slot empties when a two-handed tool is equipped for harvesting.
func (a *Agent) SetCombatOffHand(off state.ItemType) {
	a.combatOff = off
}

// Loadout returns the agent's current equipment by slot, re-validated
// against the inventory.
func (a *Agent) Loadout() state.Equipment {
	eq := state.NewEquipment()
	if tool := a.EquippedTool(); tool != nil {
		eq.Set(state.EquipSlotMainHand, *tool)
	}
	if off := a.EquippedOffHand(); off != nil {
		eq.Set(state.EquipSlotOffHand, *off)
	}
	return eq
}

// EquippedTool returns the main-hand stack, re-validated against the
// inventory so a consumed or dropped stack reads as empty.
func (a *Agent) EquippedTool() *state.ItemStack {
	if a.equipped == nil {
		return nil
	}
	if !a.Inventory.Contains(a.equipped) {
		a.equipped = nil
		return nil
	}
	return a.equipped
}

// Equip places an inventory stack in the main hand.
func (a *Agent) Equip(tool *state.ItemStack) bool {
	if tool == nil || !a.Inventory.Contains(tool) {
		return false
	}
	a.equipped = tool
	return true
}

// EquippedOffHand returns the off-hand stack, re-validated against the
// inventory.
func (a *Agent) EquippedOffHand() *state.ItemStack {
	if a.offHand == nil {
		return nil
	}
	if !a.Inventory.Contains(a.offHand) {
		a.offHand = nil
		return nil
	}
	return a.offHand
}

func (a *Agent) UnequipOffHand() {
	a.offHand = nil
}

// ResyncLoadout re-equips the recorded combat items if they are still
// carried, clearing any slot whose item is gone.
func (a *Agent) ResyncLoadout() {
	a.equipped = a.findByType(a.combatMain)
	a.offHand = a.findByType(a.combatOff)
}

func (a *Agent) findByType(itemType state.ItemType) *state.ItemStack {
	if itemType == "" {
		return nil
	}
	for _, stack := range a.Inventory.Stacks() {
		if stack.Type == itemType {
			return stack
		}
	}
	return nil
}

func (a *Agent) SetAutoEquipSuppressed(suppressed bool) {
	a.suppressed = suppressed
}

func (a *Agent) Face(target worldpkg.Vec3) {
	a.facing = target
}

// Interact swings the tool at the node, applying its harvest damage. The
// world scatters drops when the swing destroys the node.
func (a *Agent) Interact(node *state.ResourceNode, tool *state.ItemStack) bool {
	if a.failInteract || a.locked || node == nil || tool == nil {
		return false
	}
	dmg := tool.HarvestDamage(node.Type)
	if dmg <= 0 {
		return false
	}
	if node.ApplyDamage(dmg) && a.world != nil {
		a.world.onNodeDestroyed(node, a.id)
	}
	return true
}

// SetFollowTarget implements harvest.Actuator.
func (a *Agent) SetFollowTarget(target worldpkg.Vec3) {
	if !a.following || a.follow.Distance(target) > 0.5 {
		a.bestDist = a.pos.Distance(target)
		a.stallTicks = 0
		a.moveStatus = harvest.MoveActive
	}
	a.follow = target
	a.following = true
}

// StopMoving implements harvest.Actuator.
func (a *Agent) StopMoving() {
	a.following = false
	a.stallTicks = 0
	a.moveStatus = harvest.MoveActive
}

// Status implements harvest.Actuator.
func (a *Agent) Status() harvest.MoveStatus {
	if a.forceStatus {
		return a.forcedStatus
	}
	return a.moveStatus
}

// ForceStatus pins the reported move status; used to simulate pathing
// failures the straight-line mover cannot produce on its own.
func (a *Agent) ForceStatus(status harvest.MoveStatus) {
	a.forcedStatus = status
	a.forceStatus = true
}

func (a *Agent) ClearForcedStatus() {
	a.forceStatus = false
}

// TryConsume implements harvest.ResourceGate.
func (a *Agent) TryConsume(amount float64) bool {
	if a.stamina < amount {
		return false
	}
	a.stamina -= amount
	return true
}

func (a *Agent) Stamina() float64 { return a.stamina }

// step advances locomotion and stamina regeneration by dt seconds.
func (a *Agent) step(dt float64) {
	a.stamina += a.regen * dt
	if a.stamina > a.maxStamina {
		a.stamina = a.maxStamina
	}
	if !a.following || a.dead {
		return
	}
	dist := a.pos.Distance(a.follow)
	if dist < 1e-6 {
		return
	}
	stepLen := a.speed * dt
	if stepLen >= dist {
		a.pos = a.follow
	} else {
		f := stepLen / dist
		a.pos.X += (a.follow.X - a.pos.X) * f
		a.pos.Y += (a.follow.Y - a.pos.Y) * f
		a.pos.Z += (a.follow.Z - a.pos.Z) * f
	}
	remaining := a.pos.Distance(a.follow)
	if remaining < a.bestDist-moveStallEpsilon {
		a.bestDist = remaining
		a.stallTicks = 0
		return
	}
	a.stallTicks++
	if a.stallTicks >= moveStallLimit {
		a.moveStatus = harvest.MoveStuckOscillating
	}
}
