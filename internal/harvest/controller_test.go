package harvest

import (
	"testing"

	state "harvest-and-haul/server/internal/state"
	worldpkg "harvest-and-haul/server/internal/world"
	"harvest-and-haul/server/logging/gathering"
)

func TestControllerAcquiresNearestTarget(t *testing.T) {
	r := newRig(t, testConfig())
	r.nodes.add(state.ResourceNode{ID: "far", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 15}, MinToolTier: 1, Health: 1000})
	r.nodes.add(state.ResourceNode{ID: "near", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 5}, MinToolTier: 1, Health: 1000})

	r.mode.mode = ModeGatherWood
	r.ctrl.Update(0.05)

	if got := r.ctrl.State(); got != StateMoving {
		t.Fatalf("state = %v, want moving", got)
	}
	selected := r.events.byType(gathering.EventTargetSelected)
	if len(selected) != 1 {
		t.Fatalf("target_selected events = %d, want 1", len(selected))
	}
	payload := selected[0].Payload.(gathering.TargetSelectedPayload)
	if payload.NodeID != "near" {
		t.Fatalf("selected %q, want near", payload.NodeID)
	}
	if tool := r.agent.EquippedTool(); tool == nil || tool.Type != state.ItemTypeCrudeAxe {
		t.Fatalf("equipped = %+v, want crude axe", tool)
	}
	if !r.agent.suppressed {
		t.Fatalf("auto-equip not suppressed during harvest")
	}
}

func TestControllerArrivalBandInclusiveMax(t *testing.T) {
	cases := []struct {
		name string
		pos  worldpkg.Vec3
		want State
	}{
		{"exactly max distance", worldpkg.Vec3{X: 2.5}, StateAttacking},
		{"just outside max", worldpkg.Vec3{X: 2.51}, StateMoving},
		{"vertical offset too large", worldpkg.Vec3{X: 2.0, Z: 2.01}, StateMoving},
		{"vertical offset at limit", worldpkg.Vec3{X: 2.0, Z: 2.0}, StateAttacking},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRig(t, testConfig())
			r.nodes.add(state.ResourceNode{ID: "n", Type: state.ResourceWood, MinToolTier: 1, Health: 1000})
			r.agent.pos = tc.pos
			r.mode.mode = ModeGatherWood

			r.ctrl.Update(0.05) // acquire
			r.ctrl.Update(0.05) // moving tick evaluates arrival
			if got := r.ctrl.State(); got != tc.want {
				t.Fatalf("state = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestControllerHysteresisExit(t *testing.T) {
	r := newRig(t, testConfig())
	r.nodes.add(state.ResourceNode{ID: "n", Type: state.ResourceWood, MinToolTier: 1, Health: 1e9})
	r.agent.pos = worldpkg.Vec3{X: 2.0}
	r.mode.mode = ModeGatherWood
	r.ctrl.Update(0.05)
	r.ctrl.Update(0.05)
	if r.ctrl.State() != StateAttacking {
		t.Fatalf("setup: not attacking")
	}

	// Drift within the slack band keeps attacking.
	r.agent.pos = worldpkg.Vec3{X: 3.05}
	r.ctrl.Update(0.05)
	if got := r.ctrl.State(); got != StateAttacking {
		t.Fatalf("state after small drift = %v, want attacking", got)
	}

	// Crossing max + slack re-approaches.
	r.agent.pos = worldpkg.Vec3{X: 3.2}
	r.ctrl.Update(0.05)
	if got := r.ctrl.State(); got != StateMoving {
		t.Fatalf("state after large drift = %v, want moving", got)
	}
}

func TestControllerLOSFailuresBlacklistTarget(t *testing.T) {
	r := newRig(t, testConfig())
	r.nodes.add(state.ResourceNode{ID: "hidden", Type: state.ResourceWood, MinToolTier: 1, Health: 1000})
	r.agent.pos = worldpkg.Vec3{X: 2.0}
	r.nav.losBlocked = true
	r.mode.mode = ModeGatherWood
	r.ctrl.Update(0.05)
	r.ctrl.Update(0.05)
	if r.ctrl.State() != StateAttacking {
		t.Fatalf("setup: not attacking")
	}

	r.stepUntil(t, 40, 0.05, func() bool {
		return r.ctrl.State() == StateIdle
	}, "blacklisted after repeated blocked swings")

	if r.agent.swings != 0 {
		t.Fatalf("swings = %d, want 0 while blocked", r.agent.swings)
	}
	reason, ok := r.ctrl.blacklist.ReasonFor("hidden")
	if !ok || reason != ReasonUnreachable {
		t.Fatalf("blacklist reason = %v/%v, want unreachable", reason, ok)
	}
	blacklisted := r.events.byType(gathering.EventTargetBlacklisted)
	if len(blacklisted) != 1 {
		t.Fatalf("blacklist events = %d, want 1", len(blacklisted))
	}
}

func TestControllerStuckBlacklistsAndChains(t *testing.T) {
	cfg := testConfig()
	cfg.TargetLockSeconds = 0
	r := newRig(t, cfg)
	r.nodes.add(state.ResourceNode{ID: "a", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 6}, MinToolTier: 1, Health: 1000})
	r.nodes.add(state.ResourceNode{ID: "b", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 12}, MinToolTier: 1, Health: 1000})
	r.actuator.status = MoveStuckNoPath
	r.mode.mode = ModeGatherWood

	r.ctrl.Update(0.05) // acquire a
	r.ctrl.Update(0.05) // stuck on a, chain to b
	if !r.ctrl.blacklist.Contains("a") {
		t.Fatalf("a not blacklisted")
	}
	if got := r.ctrl.State(); got != StateMoving {
		t.Fatalf("state = %v, want moving toward next candidate", got)
	}

	r.ctrl.Update(0.05) // stuck on b, nothing left
	if !r.ctrl.blacklist.Contains("b") {
		t.Fatalf("b not blacklisted")
	}
	if got := r.ctrl.State(); got != StateIdle {
		t.Fatalf("state = %v, want idle with all candidates excluded", got)
	}
	for _, event := range r.events.byType(gathering.EventTargetBlacklisted) {
		payload := event.Payload.(gathering.TargetBlacklistedPayload)
		if payload.Reason != "path_failed" {
			t.Fatalf("blacklist reason = %q, want path_failed", payload.Reason)
		}
	}
}

func TestControllerTargetLockSuppressesStuck(t *testing.T) {
	r := newRig(t, testConfig())
	r.nodes.add(state.ResourceNode{ID: "a", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 20}, MinToolTier: 1, Health: 1000})
	r.actuator.status = MoveStuckOscillating
	r.mode.mode = ModeGatherWood

	// Lock lasts 3s; 20 ticks at 50ms stay well inside it.
	for i := 0; i < 20; i++ {
		r.ctrl.Update(0.05)
	}
	if r.ctrl.blacklist.Len() != 0 {
		t.Fatalf("blacklisted during target lock")
	}
	if got := r.ctrl.State(); got != StateMoving {
		t.Fatalf("state = %v, want moving", got)
	}
}

func TestControllerEnemyPausePreservesTarget(t *testing.T) {
	r := newRig(t, testConfig())
	r.nodes.add(state.ResourceNode{ID: "n", Type: state.ResourceWood, MinToolTier: 1, Health: 1e9})
	r.agent.pos = worldpkg.Vec3{X: 2.0}
	r.mode.mode = ModeGatherWood
	r.ctrl.Update(0.05)
	r.ctrl.Update(0.05)
	if r.ctrl.State() != StateAttacking {
		t.Fatalf("setup: not attacking")
	}
	resyncsBefore := r.agent.resyncs
	selectedBefore := len(r.events.byType(gathering.EventTargetSelected))

	r.combat.enemyDist = 10
	r.ctrl.Update(0.05)
	if got := r.ctrl.State(); got != StateIdle {
		t.Fatalf("state under threat = %v, want idle", got)
	}
	if len(r.events.byType(gathering.EventPaused)) != 1 {
		t.Fatalf("missing paused event")
	}
	if tool := r.agent.EquippedTool(); tool == nil || tool.Type != state.ItemTypeCrudeAxe {
		t.Fatalf("tool swapped away during pause: %+v", tool)
	}
	if r.agent.resyncs != resyncsBefore {
		t.Fatalf("loadout restored during pause")
	}

	r.combat.enemyDist = 1e18
	r.ctrl.Update(0.05)
	if got := r.ctrl.State(); got != StateMoving {
		t.Fatalf("state after threat cleared = %v, want moving", got)
	}
	if got := len(r.events.byType(gathering.EventTargetSelected)); got != selectedBefore {
		t.Fatalf("resume rescanned: target_selected %d -> %d", selectedBefore, got)
	}
}

func TestControllerRetreatPauses(t *testing.T) {
	r := newRig(t, testConfig())
	r.nodes.add(state.ResourceNode{ID: "n", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 8}, MinToolTier: 1, Health: 1000})
	r.mode.mode = ModeGatherWood
	r.ctrl.Update(0.05)
	if r.ctrl.State() != StateMoving {
		t.Fatalf("setup: not moving")
	}

	r.combat.retreating = true
	r.ctrl.Update(0.05)
	if got := r.ctrl.State(); got != StateIdle {
		t.Fatalf("state while retreating = %v, want idle", got)
	}
	if r.actuator.following {
		t.Fatalf("still following a target while retreating")
	}
}

func TestControllerLeashResetsSession(t *testing.T) {
	r := newRig(t, testConfig())
	r.nodes.add(state.ResourceNode{ID: "n", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 8}, MinToolTier: 1, Health: 1000})
	r.agent.owner = worldpkg.Vec3{}
	r.agent.hasOwner = true
	r.mode.mode = ModeGatherWood
	r.ctrl.Update(0.05)
	if r.ctrl.State() != StateMoving {
		t.Fatalf("setup: not moving")
	}
	resyncsBefore := r.agent.resyncs

	r.agent.pos = worldpkg.Vec3{X: 50}
	r.ctrl.Update(0.05)
	if got := r.ctrl.State(); got != StateIdle {
		t.Fatalf("state beyond leash = %v, want idle", got)
	}
	if r.agent.resyncs != resyncsBefore+1 {
		t.Fatalf("loadout not restored on leash reset")
	}
	found := false
	for _, event := range r.events.byType(gathering.EventSessionReset) {
		if event.Payload.(gathering.SessionResetPayload).Cause == "leash" {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing leash session_reset event")
	}

	// While out of range nothing scans.
	queries := r.nodes.queries
	r.ctrl.Update(0.05)
	if r.nodes.queries != queries {
		t.Fatalf("scanned while beyond leash")
	}
}

func TestControllerModeChangeResetsOnce(t *testing.T) {
	r := newRig(t, testConfig())
	r.nodes.add(state.ResourceNode{ID: "tree", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 6}, MinToolTier: 1, Health: 1000})
	r.nodes.add(state.ResourceNode{ID: "rock", Type: state.ResourceStone, Pos: worldpkg.Vec3{X: 7}, MinToolTier: 1, Health: 1000})
	r.mode.mode = ModeGatherWood
	r.ctrl.Update(0.05)
	firstTrace := r.ctrl.TraceID()

	r.mode.mode = ModeGatherStone
	r.ctrl.Update(0.05)

	resets := 0
	for _, event := range r.events.byType(gathering.EventSessionReset) {
		if event.Payload.(gathering.SessionResetPayload).Cause == "mode_changed" {
			resets++
		}
	}
	if resets != 2 { // one per SetMode transition
		t.Fatalf("mode_changed resets = %d, want 2", resets)
	}
	if r.ctrl.TraceID() == firstTrace {
		t.Fatalf("trace ID not rotated on mode change")
	}

	// The stone session must have re-targeted with the pick.
	if got := r.ctrl.State(); got != StateMoving {
		t.Fatalf("state = %v, want moving", got)
	}
	if tool := r.agent.EquippedTool(); tool == nil || tool.Type != state.ItemTypeIronPick {
		t.Fatalf("equipped = %+v, want iron pick", tool)
	}

	// Same mode re-requested changes nothing.
	r.ctrl.Update(0.05)
	finalResets := 0
	for _, event := range r.events.byType(gathering.EventSessionReset) {
		if event.Payload.(gathering.SessionResetPayload).Cause == "mode_changed" {
			finalResets++
		}
	}
	if finalResets != resets {
		t.Fatalf("extra reset on unchanged mode")
	}
}

func TestControllerInventoryFullAbortsAttack(t *testing.T) {
	r := newRig(t, testConfig())
	r.nodes.add(state.ResourceNode{ID: "n", Type: state.ResourceWood, MinToolTier: 1, Health: 1e9})
	r.agent.pos = worldpkg.Vec3{X: 2.0}
	r.mode.mode = ModeGatherWood
	r.ctrl.Update(0.05)
	r.ctrl.Update(0.05)
	if r.ctrl.State() != StateAttacking {
		t.Fatalf("setup: not attacking")
	}
	resyncsBefore := r.agent.resyncs

	for r.agent.inv.HasCapacity() {
		if !r.agent.inv.Add(state.NewStack(state.ItemTypeTorch, 1)) {
			t.Fatalf("failed to fill inventory")
		}
	}
	r.ctrl.Update(0.05)
	if got := r.ctrl.State(); got != StateIdle {
		t.Fatalf("state with full inventory = %v, want idle", got)
	}
	if !r.ctrl.InventoryFull() {
		t.Fatalf("InventoryFull not reported")
	}
	if r.agent.resyncs != resyncsBefore+1 {
		t.Fatalf("loadout not restored on capacity abort")
	}
	hints := r.events.byType(gathering.EventHint)
	if len(hints) == 0 || hints[len(hints)-1].Payload.(gathering.HintPayload).Key != "inventory_full" {
		t.Fatalf("missing inventory_full hint")
	}
}

func TestControllerDestroyedTargetLeavesAttackingImmediately(t *testing.T) {
	r := newRig(t, testConfig())
	node := r.nodes.add(state.ResourceNode{ID: "n", Type: state.ResourceWood, MinToolTier: 1, Health: 1e9})
	r.agent.pos = worldpkg.Vec3{X: 2.0}
	r.mode.mode = ModeGatherWood
	r.ctrl.Update(0.05)
	r.ctrl.Update(0.05)
	if r.ctrl.State() != StateAttacking {
		t.Fatalf("setup: not attacking")
	}

	node.Active = false
	r.ctrl.Update(0.05)
	if got := r.ctrl.State(); got != StateIdle {
		t.Fatalf("state after external destruction = %v, want idle", got)
	}
}

func TestControllerFullCycleWithDropCollection(t *testing.T) {
	r := newRig(t, testConfig())
	node := r.nodes.add(state.ResourceNode{ID: "tree", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 6}, MinToolTier: 1, Health: 36})
	r.agent.onKill = func(n *state.ResourceNode) {
		for i := 0; i < 3; i++ {
			r.drops.add(state.NewStack(state.ItemTypeWoodLog, 1), worldpkg.Vec3{X: n.Pos.X + float64(i)*0.5}, r.agent.id, false)
		}
	}
	r.mode.mode = ModeGatherWood

	r.stepUntil(t, 200, 0.05, func() bool {
		return !node.Active
	}, "node destroyed")
	if r.ctrl.State() != StateCollecting {
		t.Fatalf("state after destruction = %v, want collecting", r.ctrl.State())
	}

	r.stepUntil(t, 400, 0.05, func() bool {
		return r.ctrl.State() == StateIdle
	}, "collection pass finished")

	logs := 0
	for _, stack := range r.agent.inv.Stacks() {
		if stack.Type == state.ItemTypeWoodLog {
			logs += stack.Quantity
		}
	}
	if logs != 3 {
		t.Fatalf("collected %d logs, want 3", logs)
	}
	if got := len(r.events.byType(gathering.EventDropCollected)); got != 3 {
		t.Fatalf("drop_collected events = %d, want 3", got)
	}
}

func TestControllerIdleScansThrottledAndIdempotent(t *testing.T) {
	r := newRig(t, testConfig())
	r.mode.mode = ModeGatherWood

	for i := 0; i < 10; i++ {
		r.ctrl.Update(0.01)
	}
	// One scan in the first 100ms window; each scan runs close and far pass.
	if got := r.nodes.queries; got != 2 {
		t.Fatalf("range queries = %d, want 2", got)
	}
	if r.ctrl.State() != StateIdle {
		t.Fatalf("state = %v, want idle", r.ctrl.State())
	}
	if r.actuator.following {
		t.Fatalf("empty scan started movement")
	}
}

func TestControllerStaminaGatesSwings(t *testing.T) {
	r := newRig(t, testConfig())
	r.nodes.add(state.ResourceNode{ID: "n", Type: state.ResourceWood, MinToolTier: 1, Health: 1e9})
	r.agent.pos = worldpkg.Vec3{X: 2.0}
	r.gate.pool = 0
	r.mode.mode = ModeGatherWood
	r.ctrl.Update(0.05)
	r.ctrl.Update(0.05)

	for i := 0; i < 10; i++ {
		r.ctrl.Update(0.05)
	}
	if r.agent.swings != 0 {
		t.Fatalf("swung %d times without stamina", r.agent.swings)
	}
	if r.ctrl.State() != StateAttacking {
		t.Fatalf("state = %v, want attacking while waiting on stamina", r.ctrl.State())
	}

	r.gate.pool = 100
	for i := 0; i < 10; i++ {
		r.ctrl.Update(0.05)
	}
	if r.agent.swings == 0 {
		t.Fatalf("no swings after stamina returned")
	}
}

func TestControllerToolWearAndWornHint(t *testing.T) {
	r := newRig(t, testConfig())
	r.nodes.add(state.ResourceNode{ID: "n", Type: state.ResourceWood, MinToolTier: 1, Health: 1e9})
	r.agent.pos = worldpkg.Vec3{X: 2.0}
	r.mode.mode = ModeGatherWood
	r.ctrl.Update(0.05)
	tool := r.agent.EquippedTool()
	if tool == nil {
		t.Fatalf("no tool equipped")
	}
	tool.Durability = 10.4 // just above the 10% warning line

	r.stepUntil(t, 100, 0.05, func() bool {
		return r.agent.swings >= 3
	}, "three swings landed")

	if d := tool.Durability; d < 7.39 || d > 7.41 {
		t.Fatalf("durability = %v, want ~7.4", d)
	}
	worn := 0
	for _, event := range r.events.byType(gathering.EventHint) {
		if event.Payload.(gathering.HintPayload).Key == "tool_worn" {
			worn++
		}
	}
	if worn != 1 {
		t.Fatalf("tool_worn hints = %d, want exactly 1", worn)
	}
}

func TestControllerDeadAgentResets(t *testing.T) {
	r := newRig(t, testConfig())
	r.nodes.add(state.ResourceNode{ID: "n", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 8}, MinToolTier: 1, Health: 1000})
	r.mode.mode = ModeGatherWood
	r.ctrl.Update(0.05)
	if r.ctrl.State() != StateMoving {
		t.Fatalf("setup: not moving")
	}

	r.agent.dead = true
	r.ctrl.Update(0.05)
	if got := r.ctrl.State(); got != StateIdle {
		t.Fatalf("state after death = %v, want idle", got)
	}
	queries := r.nodes.queries
	r.ctrl.Update(0.05)
	if r.nodes.queries != queries {
		t.Fatalf("scanned while dead")
	}
}

func TestControllerInteractionLockSkipsTick(t *testing.T) {
	r := newRig(t, testConfig())
	r.nodes.add(state.ResourceNode{ID: "n", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 8}, MinToolTier: 1, Health: 1000})
	r.agent.locked = true
	r.mode.mode = ModeGatherWood

	r.ctrl.Update(0.05)
	if r.nodes.queries != 0 {
		t.Fatalf("scanned while interaction-locked")
	}
	if r.ctrl.State() != StateIdle {
		t.Fatalf("state = %v, want idle", r.ctrl.State())
	}
}

func TestControllerApproachesUnreachableFallback(t *testing.T) {
	r := newRig(t, testConfig())
	r.nodes.add(state.ResourceNode{ID: "island", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 10}, MinToolTier: 1, Health: 1000})
	r.nav.pathOK = false
	r.mode.mode = ModeGatherWood

	r.ctrl.Update(0.05)
	if got := r.ctrl.State(); got != StateMoving {
		t.Fatalf("state = %v, want moving toward fallback", got)
	}
	selected := r.events.byType(gathering.EventTargetSelected)
	if len(selected) != 1 {
		t.Fatalf("target_selected events = %d, want 1", len(selected))
	}
	if selected[0].Payload.(gathering.TargetSelectedPayload).Reachable {
		t.Fatalf("fallback target marked reachable")
	}
}

func TestControllerStopRestoresLoadout(t *testing.T) {
	r := newRig(t, testConfig())
	r.nodes.add(state.ResourceNode{ID: "n", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 8}, MinToolTier: 1, Health: 1000})
	r.mode.mode = ModeGatherWood
	r.ctrl.Update(0.05)
	if !r.agent.suppressed {
		t.Fatalf("setup: suppression not taken")
	}

	r.mode.mode = ModeNone
	r.ctrl.Update(0.05)
	if r.agent.suppressed {
		t.Fatalf("suppression not released")
	}
	if tool := r.agent.EquippedTool(); tool == nil || tool.Type != state.ItemTypeShortSword {
		t.Fatalf("equipped = %+v, want short sword restored", tool)
	}
	if got := r.ctrl.State(); got != StateIdle {
		t.Fatalf("state = %v, want idle", got)
	}
}

func TestControllerModeChangeScopesBlacklistClear(t *testing.T) {
	cfg := testConfig()
	cfg.TargetLockSeconds = 0
	r := newRig(t, cfg)
	r.nodes.add(state.ResourceNode{ID: "a", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 8}, MinToolTier: 1, Health: 1000})
	r.actuator.status = MoveStuckNoPath
	r.mode.mode = ModeGatherWood

	r.ctrl.Update(0.05) // acquire a
	r.ctrl.Update(0.05) // stuck, blacklist a
	if reason, ok := r.ctrl.blacklist.ReasonFor("a"); !ok || reason != ReasonPathFailed {
		t.Fatalf("setup: reason = %v/%v, want path_failed", reason, ok)
	}

	// Switching modes retargets the agent; the node is still unpathable and
	// must stay excluded until its TTL runs out.
	r.actuator.status = MoveActive
	r.mode.mode = ModeGatherStone
	r.ctrl.Update(0.05)
	if !r.ctrl.blacklist.Contains("a") {
		t.Fatalf("navigation blacklist entry wiped by mode change")
	}
}

func TestControllerTierBlockedNodesExcludedUntilModeChange(t *testing.T) {
	r := newRig(t, testConfig())
	// The rig carries a tier-2 iron pick; a tier-3 vein is out of reach.
	r.nodes.add(state.ResourceNode{ID: "deep-vein", Type: state.ResourceOre, Pos: worldpkg.Vec3{X: 8}, MinToolTier: 3, Health: 1000})
	r.mode.mode = ModeGatherOre

	r.ctrl.Update(0.05)
	if reason, ok := r.ctrl.blacklist.ReasonFor("deep-vein"); !ok || reason != ReasonToolTier {
		t.Fatalf("tier-blocked node not excluded: %v/%v", reason, ok)
	}
	hints := r.events.byType(gathering.EventHint)
	if len(hints) == 0 || hints[len(hints)-1].Payload.(gathering.HintPayload).Key != "tool_too_weak" {
		t.Fatalf("missing tool_too_weak hint")
	}

	// A new mode re-judges tool adequacy; only the tier entries go.
	r.mode.mode = ModeGatherStone
	r.ctrl.Update(0.05)
	if r.ctrl.blacklist.Contains("deep-vein") {
		t.Fatalf("tool tier entry survived mode change")
	}
}

func TestControllerNoToolHintWithoutAnyTool(t *testing.T) {
	r := newRig(t, testConfig())
	// Strip every stone-capable tool so the scan is blocked outright.
	for _, stack := range r.agent.inv.Stacks() {
		if stack.Type == state.ItemTypeIronPick {
			r.agent.inv.Remove(stack)
		}
	}
	r.nodes.add(state.ResourceNode{ID: "rock", Type: state.ResourceStone, Pos: worldpkg.Vec3{X: 8}, MinToolTier: 1, Health: 1000})
	r.mode.mode = ModeGatherStone

	r.ctrl.Update(0.05)
	hints := r.events.byType(gathering.EventHint)
	if len(hints) == 0 || hints[len(hints)-1].Payload.(gathering.HintPayload).Key != "no_tool" {
		t.Fatalf("missing no_tool hint, got %+v", hints)
	}
	// Toolless scans never blanket-blacklist the field.
	if r.ctrl.blacklist.Len() != 0 {
		t.Fatalf("nodes blacklisted with no tool carried")
	}
}

func TestControllerAttackingTracksInteractionBand(t *testing.T) {
	r := newRig(t, testConfig())
	r.nodes.add(state.ResourceNode{ID: "n", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 10}, MinToolTier: 1, Health: 1e9})
	r.mode.mode = ModeGatherWood
	r.ctrl.Update(0.05) // acquire
	r.agent.pos = worldpkg.Vec3{X: 8} // inside the default [0, 2.5] band
	r.ctrl.Update(0.05)
	if r.ctrl.State() != StateAttacking {
		t.Fatalf("setup: not attacking")
	}

	// The oracle tightens the band below the agent's stand distance. Within
	// one recalc interval the controller must notice and close back in.
	r.nav.band[1] = 0.9
	for i := 0; i < 12; i++ {
		r.ctrl.Update(0.05)
	}
	if got := r.ctrl.State(); got != StateMoving {
		t.Fatalf("state = %v, want moving after the band tightened", got)
	}
}
