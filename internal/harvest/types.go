package harvest

import (
	state "harvest-and-haul/server/internal/state"
	worldpkg "harvest-and-haul/server/internal/world"
)

// Mode is the externally-requested harvesting behavior. The owning UI layer
// writes it; the controller only polls.
type Mode int32

const (
	ModeNone Mode = iota
	ModeGatherWood
	ModeGatherStone
	ModeGatherOre
)

// ResourceType maps a mode to the node type it targets.
func (m Mode) ResourceType() state.ResourceType {
	switch m {
	case ModeGatherWood:
		return state.ResourceWood
	case ModeGatherStone:
		return state.ResourceStone
	case ModeGatherOre:
		return state.ResourceOre
	default:
		return state.ResourceNone
	}
}

func (m Mode) String() string {
	switch m {
	case ModeGatherWood:
		return "gather_wood"
	case ModeGatherStone:
		return "gather_stone"
	case ModeGatherOre:
		return "gather_ore"
	default:
		return "none"
	}
}

// ModeSource exposes the externally-stored requested mode.
type ModeSource interface {
	RequestedMode() Mode
}

// NodeSource answers bounded spatial queries over harvestable nodes. The
// query fills the caller's buffer; cap(buf) is the hard candidate ceiling.
type NodeSource interface {
	NodesInRange(center worldpkg.Vec3, radius float64, buf []state.NodeID) []state.NodeID
	Node(id state.NodeID) (*state.ResourceNode, bool)
}

// DropSource answers bounded spatial queries over ground items.
type DropSource interface {
	DropsInRange(center worldpkg.Vec3, radius float64, buf []string) []string
	Drop(id string) (*state.GroundItem, bool)
	// RemoveDrop takes the drop out of the world and returns its stack.
	RemoveDrop(id string) (state.ItemStack, bool)
}

// InventoryAccess is the slice of the inventory model harvesting needs.
type InventoryAccess interface {
	Stacks() []*state.ItemStack
	CanAdd(stack state.ItemStack) bool
	Add(stack state.ItemStack) bool
	TotalWeight() float64
	HasCapacity() bool
}

// AgentLink is the agent-lifecycle surface consumed by harvesting: equip and
// unequip calls, the equipped-tool slot, and the interaction actuator.
// Everything else about the agent stays external.
type AgentLink interface {
	ID() string
	Position() worldpkg.Vec3
	Dead() bool
	// InteractionLocked reports a mid-swing animation lock; no state logic
	// runs while it holds.
	InteractionLocked() bool
	OwnerPosition() (worldpkg.Vec3, bool)

	// EquippedTool returns a live reference into the inventory, or nil. The
	// reference must be re-fetched before every use; other systems mutate
	// the inventory within the same tick.
	EquippedTool() *state.ItemStack
	Equip(tool *state.ItemStack) bool
	UnequipOffHand()
	// ResyncLoadout asks the external equipment system to restore the
	// agent's non-harvest loadout.
	ResyncLoadout()
	SetAutoEquipSuppressed(suppressed bool)

	Face(target worldpkg.Vec3)
	// Interact performs one harvest swing against the node. False means the
	// swing could not be issued this attempt (animation lock, bad timing);
	// the caller retries on a short cooldown.
	Interact(node *state.ResourceNode, tool *state.ItemStack) bool
}

// MoveStatus is the actuator's report on the current follow order.
type MoveStatus uint8

const (
	MoveActive MoveStatus = iota
	MoveStuckOscillating
	MoveStuckNoPath
)

// Actuator is the locomotion surface: give it a follow target, tell it to
// stop, poll it for stuckness.
type Actuator interface {
	SetFollowTarget(target worldpkg.Vec3)
	StopMoving()
	Status() MoveStatus
}

// ResourceGate consumes a stamina-like resource per swing.
type ResourceGate interface {
	TryConsume(amount float64) bool
}

// CombatSignals are the two read-only values harvesting polls from the
// combat system. Cooperation is strictly poll-based; no callbacks.
type CombatSignals interface {
	Retreating() bool
	// NearestEnemyDistance returns math.MaxFloat64 when no enemy is known.
	NearestEnemyDistance() float64
}

// ToolLookup resolves the best usable tool for a resource type at a minimum
// tier, or nil.
type ToolLookup func(rt state.ResourceType, minTier int) *state.ItemStack

// ToolCanHarvest reports whether the tool can damage the resource type at
// the required tier right now (durability included).
func ToolCanHarvest(tool *state.ItemStack, rt state.ResourceType, minTier int) bool {
	if tool == nil || tool.Durability <= 0 {
		return false
	}
	if tool.Tier < minTier {
		return false
	}
	return tool.HarvestDamage(rt) > 0
}
