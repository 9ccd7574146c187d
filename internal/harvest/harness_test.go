package harvest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	state "harvest-and-haul/server/internal/state"
	worldpkg "harvest-and-haul/server/internal/world"
	"harvest-and-haul/server/logging"
)

type fakeNodes struct {
	nodes   map[state.NodeID]*state.ResourceNode
	order   []state.NodeID
	queries int
}

func newFakeNodes() *fakeNodes {
	return &fakeNodes{nodes: make(map[state.NodeID]*state.ResourceNode)}
}

func (f *fakeNodes) add(node state.ResourceNode) *state.ResourceNode {
	if node.MaxHealth <= 0 {
		node.MaxHealth = node.Health
	}
	node.Active = node.Health > 0
	stored := &node
	f.nodes[node.ID] = stored
	f.order = append(f.order, node.ID)
	return stored
}

func (f *fakeNodes) NodesInRange(center worldpkg.Vec3, radius float64, buf []state.NodeID) []state.NodeID {
	f.queries++
	out := buf[:0]
	for _, id := range f.order {
		node := f.nodes[id]
		if center.HorizontalDistance(node.Pos) > radius {
			continue
		}
		if len(out) == cap(out) {
			break
		}
		out = append(out, id)
	}
	return out
}

func (f *fakeNodes) Node(id state.NodeID) (*state.ResourceNode, bool) {
	node, ok := f.nodes[id]
	return node, ok
}

type fakeDrops struct {
	drops  map[string]*state.GroundItem
	order  []string
	nextID int
}

func newFakeDrops() *fakeDrops {
	return &fakeDrops{drops: make(map[string]*state.GroundItem)}
}

func (f *fakeDrops) add(stack state.ItemStack, pos worldpkg.Vec3, ownerID string, eligible bool) *state.GroundItem {
	f.nextID++
	drop := &state.GroundItem{
		ID:             fmt.Sprintf("drop-%d", f.nextID),
		Stack:          stack,
		Pos:            pos,
		OwnerID:        ownerID,
		PickupEligible: eligible,
	}
	f.drops[drop.ID] = drop
	f.order = append(f.order, drop.ID)
	return drop
}

func (f *fakeDrops) grantRequested() {
	for _, drop := range f.drops {
		if drop.EligibilityRequested {
			drop.PickupEligible = true
		}
	}
}

func (f *fakeDrops) DropsInRange(center worldpkg.Vec3, radius float64, buf []string) []string {
	out := buf[:0]
	for _, id := range f.order {
		drop, ok := f.drops[id]
		if !ok {
			continue
		}
		if center.HorizontalDistance(drop.Pos) > radius {
			continue
		}
		if len(out) == cap(out) {
			break
		}
		out = append(out, id)
	}
	return out
}

func (f *fakeDrops) Drop(id string) (*state.GroundItem, bool) {
	drop, ok := f.drops[id]
	return drop, ok
}

func (f *fakeDrops) RemoveDrop(id string) (state.ItemStack, bool) {
	drop, ok := f.drops[id]
	if !ok {
		return state.ItemStack{}, false
	}
	delete(f.drops, id)
	return drop.Stack, true
}

type fakeAgent struct {
	id       string
	pos      worldpkg.Vec3
	dead     bool
	locked   bool
	owner    worldpkg.Vec3
	hasOwner bool

	inv        *state.Inventory
	equipped   *state.ItemStack
	suppressed bool
	resyncs    int
	offHandOff int
	faced      worldpkg.Vec3
	swings     int

	// onKill runs when a swing destroys the node.
	onKill func(node *state.ResourceNode)
	// denySwing makes Interact report failure.
	denySwing bool
}

func (a *fakeAgent) ID() string              { return a.id }
func (a *fakeAgent) Position() worldpkg.Vec3 { return a.pos }
func (a *fakeAgent) Dead() bool              { return a.dead }
func (a *fakeAgent) InteractionLocked() bool { return a.locked }

func (a *fakeAgent) OwnerPosition() (worldpkg.Vec3, bool) {
	return a.owner, a.hasOwner
}

func (a *fakeAgent) EquippedTool() *state.ItemStack {
	if a.equipped != nil && !a.inv.Contains(a.equipped) {
		a.equipped = nil
	}
	return a.equipped
}

func (a *fakeAgent) Equip(tool *state.ItemStack) bool {
	if tool == nil || !a.inv.Contains(tool) {
		return false
	}
	a.equipped = tool
	return true
}

func (a *fakeAgent) UnequipOffHand() { a.offHandOff++ }

func (a *fakeAgent) ResyncLoadout() {
	a.resyncs++
	a.equipped = nil
	for _, stack := range a.inv.Stacks() {
		if stack.Type == state.ItemTypeShortSword {
			a.equipped = stack
			return
		}
	}
}

func (a *fakeAgent) SetAutoEquipSuppressed(v bool) { a.suppressed = v }
func (a *fakeAgent) Face(target worldpkg.Vec3)      { a.faced = target }

func (a *fakeAgent) Interact(node *state.ResourceNode, tool *state.ItemStack) bool {
	if a.denySwing || node == nil || tool == nil {
		return false
	}
	dmg := tool.HarvestDamage(node.Type)
	if dmg <= 0 {
		return false
	}
	a.swings++
	if node.ApplyDamage(dmg) && a.onKill != nil {
		a.onKill(node)
	}
	return true
}

type fakeActuator struct {
	target    worldpkg.Vec3
	following bool
	stops     int
	status    MoveStatus
}

func (a *fakeActuator) SetFollowTarget(target worldpkg.Vec3) {
	a.target = target
	a.following = true
}

func (a *fakeActuator) StopMoving() {
	a.following = false
	a.stops++
}

func (a *fakeActuator) Status() MoveStatus { return a.status }

type fakeNav struct {
	pathOK     bool
	losBlocked bool
	band       [2]float64
}

func newFakeNav() *fakeNav {
	return &fakeNav{pathOK: true, band: [2]float64{0, 2.5}}
}

func (n *fakeNav) HasPath(from, to worldpkg.Vec3, class worldpkg.AgentClass) bool {
	return n.pathOK
}

func (n *fakeNav) LineOfSightBlocked(from, to worldpkg.Vec3, ignore string) bool {
	return n.losBlocked
}

func (n *fakeNav) ComputeInteractionPoint(target worldpkg.Vec3) (worldpkg.InteractionPoint, bool) {
	return worldpkg.InteractionPoint{Stand: target, MinDist: n.band[0], MaxDist: n.band[1]}, true
}

type fakeMode struct{ mode Mode }

func (m *fakeMode) RequestedMode() Mode { return m.mode }

type fakeCombat struct {
	retreating bool
	enemyDist  float64
}

func newFakeCombat() *fakeCombat {
	return &fakeCombat{enemyDist: 1e18}
}

func (c *fakeCombat) Retreating() bool              { return c.retreating }
func (c *fakeCombat) NearestEnemyDistance() float64 { return c.enemyDist }

type fakeGate struct {
	pool     float64
	consumed int
}

func (g *fakeGate) TryConsume(amount float64) bool {
	if g.pool < amount {
		return false
	}
	g.pool -= amount
	g.consumed++
	return true
}

type eventRecorder struct {
	mu     sync.Mutex
	events []logging.Event
}

func (r *eventRecorder) Publish(_ context.Context, event logging.Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *eventRecorder) byType(t logging.EventType) []logging.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []logging.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// rig bundles a controller with controllable fakes.
type rig struct {
	cfg      *Config
	nodes    *fakeNodes
	drops    *fakeDrops
	agent    *fakeAgent
	actuator *fakeActuator
	nav      *fakeNav
	mode     *fakeMode
	combat   *fakeCombat
	gate     *fakeGate
	events   *eventRecorder
	ctrl     *Controller
}

func testConfig() Config {
	cfg := DefaultConfig()
	// Fast timers keep the step counts in tests small.
	cfg.IdleScanInterval = 0.1
	cfg.AttackCooldown = 0.1
	cfg.AttackRetryCooldown = 0.1
	cfg.DropPickupInterval = 0.05
	return cfg
}

func newRig(t *testing.T, cfg Config) *rig {
	t.Helper()
	inv := state.NewInventory(8, 200)
	inv.Add(state.NewStack(state.ItemTypeCrudeAxe, 1))
	inv.Add(state.NewStack(state.ItemTypeIronPick, 1))
	inv.Add(state.NewStack(state.ItemTypeShortSword, 1))

	r := &rig{
		cfg:      &cfg,
		nodes:    newFakeNodes(),
		drops:    newFakeDrops(),
		actuator: &fakeActuator{},
		nav:      newFakeNav(),
		mode:     &fakeMode{},
		combat:   newFakeCombat(),
		gate:     &fakeGate{pool: 1e9},
		events:   &eventRecorder{},
	}
	r.agent = &fakeAgent{id: "agent-1", inv: &inv}
	r.agent.ResyncLoadout()

	ctrl, err := New(Deps{
		Config:    r.cfg,
		Agent:     r.agent,
		Inventory: r.agent.inv,
		Nodes:     r.nodes,
		Drops:     r.drops,
		Nav:       r.nav,
		Actuator:  r.actuator,
		Mode:      r.mode,
		Combat:    r.combat,
		Stamina:   r.gate,
		Publisher: r.events,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.ctrl = ctrl
	return r
}

// step advances the controller n times at dt, teleporting the agent to the
// actuator's follow target a bit at a time to emulate locomotion.
func (r *rig) step(n int, dt float64) {
	for i := 0; i < n; i++ {
		r.drops.grantRequested()
		if r.actuator.following {
			r.moveToward(r.actuator.target, 4.0*dt)
		}
		r.ctrl.Update(dt)
	}
}

func (r *rig) moveToward(target worldpkg.Vec3, maxStep float64) {
	dist := r.agent.pos.Distance(target)
	if dist <= maxStep {
		r.agent.pos = target
		return
	}
	f := maxStep / dist
	r.agent.pos.X += (target.X - r.agent.pos.X) * f
	r.agent.pos.Y += (target.Y - r.agent.pos.Y) * f
	r.agent.pos.Z += (target.Z - r.agent.pos.Z) * f
}

// stepUntil runs updates until pred holds or the cap is hit.
func (r *rig) stepUntil(t *testing.T, limit int, dt float64, pred func() bool, what string) {
	t.Helper()
	for i := 0; i < limit; i++ {
		if pred() {
			return
		}
		r.step(1, dt)
	}
	if !pred() {
		t.Fatalf("condition %q not reached within %d steps", what, limit)
	}
}
