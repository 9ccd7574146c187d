package state

import (
	"fmt"
	"sort"
	"strings"
)

// ItemType identifies an item kind.
type ItemType string

// ItemClass groups item kinds by role.
type ItemClass string

const (
	ItemClassWeapon      ItemClass = "weapon"
	ItemClassShield      ItemClass = "shield"
	ItemClassTool        ItemClass = "tool"
	ItemClassRawMaterial ItemClass = "raw_material"
	ItemClassConsumable  ItemClass = "consumable"
	ItemClassLight       ItemClass = "light"
)

// EquipSlot names an equipment position on an actor.
type EquipSlot string

const (
	EquipSlotMainHand EquipSlot = "main_hand"
	EquipSlotOffHand  EquipSlot = "off_hand"
	EquipSlotHead     EquipSlot = "head"
	EquipSlotBody     EquipSlot = "body"
	EquipSlotUtility  EquipSlot = "utility"
)

// ItemDefinition describes the static metadata for an item kind. Definitions
// are deterministic shared data; mutable per-stack values (quantity,
// durability) live on ItemStack.
type ItemDefinition struct {
	ID             ItemType                 `json:"id"`
	Class          ItemClass                `json:"class"`
	Tier           int                      `json:"tier"`
	Stackable      bool                     `json:"stackable"`
	StackSize      int                      `json:"stack_size"`
	WeightPerUnit  float64                  `json:"weight_per_unit"`
	EquipSlot      EquipSlot                `json:"equip_slot,omitempty"`
	TwoHanded      bool                     `json:"two_handed,omitempty"`
	MaxDurability  float64                  `json:"max_durability,omitempty"`
	HarvestDamage  map[ResourceType]float64 `json:"-"`
	FungibilityKey string                   `json:"fungibility_key"`
	Name           string                   `json:"name,omitempty"`
}

// ComposeFungibilityKey builds the canonical stacking key for an item kind.
func ComposeFungibilityKey(id ItemType, tier int, qualityTags ...string) string {
	parts := make([]string, 0, 2+len(qualityTags))
	parts = append(parts, string(id), fmt.Sprintf("t%d", tier))
	tags := append([]string(nil), qualityTags...)
	sort.Strings(tags)
	parts = append(parts, tags...)
	return strings.Join(parts, ":")
}

const (
	ItemTypeCrudeAxe   ItemType = "crude_axe"
	ItemTypeIronAxe    ItemType = "iron_axe"
	ItemTypeStonePick  ItemType = "stone_pick"
	ItemTypeIronPick   ItemType = "iron_pick"
	ItemTypeShortSword ItemType = "short_sword"
	ItemTypeTorch      ItemType = "torch"
	ItemTypeWoodLog    ItemType = "wood_log"
	ItemTypeStoneChunk ItemType = "stone_chunk"
	ItemTypeOreNugget  ItemType = "ore_nugget"
)

var itemDefinitions = func() map[ItemType]ItemDefinition {
	defs := []ItemDefinition{
		{
			ID: ItemTypeCrudeAxe, Class: ItemClassTool, Tier: 1,
			WeightPerUnit: 2.0, EquipSlot: EquipSlotMainHand,
			MaxDurability: 100,
			HarvestDamage: map[ResourceType]float64{ResourceWood: 12},
			Name:          "Crude Axe",
		},
		{
			ID: ItemTypeIronAxe, Class: ItemClassTool, Tier: 2,
			WeightPerUnit: 3.5, EquipSlot: EquipSlotMainHand, TwoHanded: true,
			MaxDurability: 140,
			HarvestDamage: map[ResourceType]float64{ResourceWood: 25},
			Name:          "Iron Axe",
		},
		{
			ID: ItemTypeStonePick, Class: ItemClassTool, Tier: 1,
			WeightPerUnit: 2.5, EquipSlot: EquipSlotMainHand,
			MaxDurability: 100,
			HarvestDamage: map[ResourceType]float64{ResourceStone: 10},
			Name:          "Stone Pick",
		},
		{
			ID: ItemTypeIronPick, Class: ItemClassTool, Tier: 2,
			WeightPerUnit: 3.5, EquipSlot: EquipSlotMainHand, TwoHanded: true,
			MaxDurability: 140,
			HarvestDamage: map[ResourceType]float64{ResourceStone: 22, ResourceOre: 18},
			Name:          "Iron Pick",
		},
		{
			ID: ItemTypeShortSword, Class: ItemClassWeapon, Tier: 1,
			WeightPerUnit: 2.0, EquipSlot: EquipSlotMainHand,
			MaxDurability: 120,
			Name:          "Short Sword",
		},
		{
			ID: ItemTypeTorch, Class: ItemClassLight, Tier: 1,
			WeightPerUnit: 0.5, EquipSlot: EquipSlotOffHand,
			MaxDurability: 60,
			Name:          "Torch",
		},
		{
			ID: ItemTypeWoodLog, Class: ItemClassRawMaterial, Tier: 1,
			Stackable: true, StackSize: 20, WeightPerUnit: 2.0,
			Name: "Wood Log",
		},
		{
			ID: ItemTypeStoneChunk, Class: ItemClassRawMaterial, Tier: 1,
			Stackable: true, StackSize: 20, WeightPerUnit: 3.0,
			Name: "Stone Chunk",
		},
		{
			ID: ItemTypeOreNugget, Class: ItemClassRawMaterial, Tier: 2,
			Stackable: true, StackSize: 10, WeightPerUnit: 4.0,
			Name: "Ore Nugget",
		},
	}
	byType := make(map[ItemType]ItemDefinition, len(defs))
	for _, def := range defs {
		def.FungibilityKey = ComposeFungibilityKey(def.ID, def.Tier)
		byType[def.ID] = def
	}
	return byType
}()

// ItemDefinitionFor resolves the static definition for an item kind.
func ItemDefinitionFor(id ItemType) (ItemDefinition, bool) {
	def, ok := itemDefinitions[id]
	return def, ok
}

// ItemStack is a quantity of one item kind plus its mutable per-stack state.
type ItemStack struct {
	Type           ItemType `json:"type"`
	FungibilityKey string   `json:"fungibility_key"`
	Quantity       int      `json:"quantity"`
	Tier           int      `json:"tier"`
	Quality        int      `json:"quality"`
	Durability     float64  `json:"durability,omitempty"`
	MaxDurability  float64  `json:"max_durability,omitempty"`
}

// NewStack builds a stack of the given kind at full durability.
func NewStack(id ItemType, quantity int) ItemStack {
	def, ok := ItemDefinitionFor(id)
	if !ok {
		return ItemStack{Type: id, Quantity: quantity}
	}
	if quantity <= 0 {
		quantity = 1
	}
	return ItemStack{
		Type:           id,
		FungibilityKey: def.FungibilityKey,
		Quantity:       quantity,
		Tier:           def.Tier,
		Durability:     def.MaxDurability,
		MaxDurability:  def.MaxDurability,
	}
}

// Definition resolves the stack's static metadata.
func (s *ItemStack) Definition() (ItemDefinition, bool) {
	if s == nil {
		return ItemDefinition{}, false
	}
	return ItemDefinitionFor(s.Type)
}

// Weight returns the stack's total carry weight.
func (s *ItemStack) Weight() float64 {
	if s == nil {
		return 0
	}
	def, ok := ItemDefinitionFor(s.Type)
	if !ok {
		return 0
	}
	return def.WeightPerUnit * float64(s.Quantity)
}

// HarvestDamage returns the damage this stack deals to the resource type, or
// zero when it cannot harvest it at all.
func (s *ItemStack) HarvestDamage(rt ResourceType) float64 {
	def, ok := s.Definition()
	if !ok {
		return 0
	}
	return def.HarvestDamage[rt]
}
