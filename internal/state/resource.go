package state

import worldpkg "harvest-and-haul/server/internal/world"

// ResourceType classifies what a harvestable node yields.
type ResourceType uint8

const (
	ResourceNone ResourceType = iota
	ResourceWood
	ResourceStone
	ResourceOre
)

func (t ResourceType) String() string {
	switch t {
	case ResourceWood:
		return "wood"
	case ResourceStone:
		return "stone"
	case ResourceOre:
		return "ore"
	default:
		return "none"
	}
}

// NodeID identifies a harvestable resource node.
type NodeID string

// ResourceNode is a harvestable object in the world. Ownership stays with the
// world; the harvesting subsystem only reads it and applies damage through
// the agent's interaction path.
type ResourceNode struct {
	ID          NodeID
	Type        ResourceType
	Pos         worldpkg.Vec3
	MinToolTier int
	Health      float64
	MaxHealth   float64
	Active      bool
}

// ApplyDamage reduces the node's health and deactivates it when depleted.
// Returns true when this call destroyed the node.
func (n *ResourceNode) ApplyDamage(amount float64) bool {
	if n == nil || !n.Active || amount <= 0 {
		return false
	}
	n.Health -= amount
	if n.Health > 0 {
		return false
	}
	n.Health = 0
	n.Active = false
	return true
}
