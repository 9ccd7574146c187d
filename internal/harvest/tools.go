package harvest

import (
	state "harvest-and-haul/server/internal/state"
)

// ToolManager selects and equips harvesting tools and restores the agent's
// combat loadout when harvesting ends. While it holds the loadout, external
// auto-equip is suppressed so drops picked up mid-harvest cannot swap the
// tool out from under the controller.
type ToolManager struct {
	cfg   *Config
	agent AgentLink
	inv   InventoryAccess

	preferred  state.ResourceType
	suppressed bool
	warned     bool
}

func NewToolManager(cfg *Config, agent AgentLink, inv InventoryAccess) *ToolManager {
	return &ToolManager{cfg: cfg, agent: agent, inv: inv}
}

// SetPreferredType records the resource type the current mode targets.
func (t *ToolManager) SetPreferredType(rt state.ResourceType) {
	t.preferred = rt
}

// AutoEquipSuppressed reports whether the manager currently owns the
// agent's loadout.
func (t *ToolManager) AutoEquipSuppressed() bool {
	return t.suppressed
}

// FindBestTool ranks usable tools by tier, then damage against the resource
// type, then quality. Returns nil when no carried tool can harvest the type
// at the required tier.
func (t *ToolManager) FindBestTool(rt state.ResourceType, minTier int) *state.ItemStack {
	var best *state.ItemStack
	bestRank := -1.0
	for _, stack := range t.inv.Stacks() {
		if !ToolCanHarvest(stack, rt, minTier) {
			continue
		}
		rank := float64(stack.Tier)*1000 + stack.HarvestDamage(rt)*10 + float64(stack.Quality)
		if rank > bestRank {
			best, bestRank = stack, rank
		}
	}
	return best
}

// EquipForHarvest equips the best tool for the node and takes ownership of
// the loadout. Two-handed tools clear the off hand. A tool already in the
// main hand is left alone.
func (t *ToolManager) EquipForHarvest(rt state.ResourceType, minTier int) (*state.ItemStack, bool) {
	tool := t.FindBestTool(rt, minTier)
	if tool == nil {
		return nil, false
	}
	if current := t.agent.EquippedTool(); current == tool {
		t.takeLoadout()
		return tool, true
	}
	if !t.agent.Equip(tool) {
		return nil, false
	}
	if def, ok := tool.Definition(); ok && def.TwoHanded {
		t.agent.UnequipOffHand()
	}
	t.takeLoadout()
	t.warned = false
	return tool, true
}

func (t *ToolManager) takeLoadout() {
	if t.suppressed {
		return
	}
	t.agent.SetAutoEquipSuppressed(true)
	t.suppressed = true
}

// RestoreCombatLoadout hands the loadout back to the external equipment
// system. Idempotent.
func (t *ToolManager) RestoreCombatLoadout() {
	if !t.suppressed {
		return
	}
	t.agent.ResyncLoadout()
	t.agent.SetAutoEquipSuppressed(false)
	t.suppressed = false
	t.warned = false
}

// CheckToolWarning reports true once per equip when the equipped tool's
// durability falls below the warning fraction.
func (t *ToolManager) CheckToolWarning() bool {
	if t.warned {
		return false
	}
	tool := t.agent.EquippedTool()
	if tool == nil || tool.MaxDurability <= 0 {
		return false
	}
	if tool.Durability/tool.MaxDurability >= t.cfg.ToolWarnFraction {
		return false
	}
	t.warned = true
	return true
}
