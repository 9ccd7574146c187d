package sim

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"harvest-and-haul/server/internal/harvest"
	state "harvest-and-haul/server/internal/state"
	worldpkg "harvest-and-haul/server/internal/world"
)

// materialFor maps a node type to the stack it scatters when destroyed.
func materialFor(rt state.ResourceType) state.ItemType {
	switch rt {
	case state.ResourceStone:
		return state.ItemTypeStoneChunk
	case state.ResourceOre:
		return state.ItemTypeOreNugget
	default:
		return state.ItemTypeWoodLog
	}
}

// scatterCount is how many drops a destroyed node yields.
const scatterCount = 3

// World owns nodes, ground drops, agents, and the shared combat and mode
// signals. It is the single writer; everything advances through Step.
type World struct {
	nodes     map[state.NodeID]*state.ResourceNode
	nodeIndex *worldpkg.SpatialIndex

	drops      map[string]*state.GroundItem
	dropIndex  *worldpkg.SpatialIndex
	nextDropID int

	agents []*Agent

	mode       atomic.Int32
	retreating atomic.Bool
	enemyDist  atomic.Uint64

	idBuf []string
}

func NewWorld() *World {
	w := &World{
		nodes:     make(map[state.NodeID]*state.ResourceNode),
		nodeIndex: worldpkg.NewSpatialIndex(0),
		drops:     make(map[string]*state.GroundItem),
		dropIndex: worldpkg.NewSpatialIndex(0),
		idBuf:     make([]string, 0, 128),
	}
	w.enemyDist.Store(math.Float64bits(math.MaxFloat64))
	return w
}

// AddNode registers a resource node and returns the stored instance.
func (w *World) AddNode(node state.ResourceNode) *state.ResourceNode {
	if node.MaxHealth <= 0 {
		node.MaxHealth = node.Health
	}
	node.Active = node.Health > 0
	stored := &node
	w.nodes[node.ID] = stored
	w.nodeIndex.Upsert(string(node.ID), node.Pos)
	return stored
}

// NodesInRange implements harvest.NodeSource.
func (w *World) NodesInRange(center worldpkg.Vec3, radius float64, buf []state.NodeID) []state.NodeID {
	w.idBuf = w.nodeIndex.QueryCircle(center, radius, w.idBuf)
	out := buf[:0]
	for _, id := range w.idBuf {
		if len(out) == cap(out) {
			break
		}
		out = append(out, state.NodeID(id))
	}
	return out
}

// Node implements harvest.NodeSource.
func (w *World) Node(id state.NodeID) (*state.ResourceNode, bool) {
	node, ok := w.nodes[id]
	return node, ok
}

// SpawnDrop places a ground item and returns it.
func (w *World) SpawnDrop(stack state.ItemStack, pos worldpkg.Vec3, ownerID string) *state.GroundItem {
	w.nextDropID++
	drop := &state.GroundItem{
		ID:      fmt.Sprintf("drop-%d", w.nextDropID),
		Stack:   stack,
		Pos:     pos,
		OwnerID: ownerID,
	}
	w.drops[drop.ID] = drop
	w.dropIndex.Upsert(drop.ID, pos)
	return drop
}

// DropsInRange implements harvest.DropSource.
func (w *World) DropsInRange(center worldpkg.Vec3, radius float64, buf []string) []string {
	return w.dropIndex.QueryCircle(center, radius, buf)
}

// Drop implements harvest.DropSource.
func (w *World) Drop(id string) (*state.GroundItem, bool) {
	drop, ok := w.drops[id]
	return drop, ok
}

// RemoveDrop implements harvest.DropSource.
func (w *World) RemoveDrop(id string) (state.ItemStack, bool) {
	drop, ok := w.drops[id]
	if !ok {
		return state.ItemStack{}, false
	}
	delete(w.drops, id)
	w.dropIndex.Remove(id)
	return drop.Stack, true
}

// DropCount reports live ground items.
func (w *World) DropCount() int {
	return len(w.drops)
}

// AddAgent registers an agent for stepping.
func (w *World) AddAgent(agent *Agent) {
	agent.world = w
	w.agents = append(w.agents, agent)
}

// SetMode stores the requested harvesting mode; the UI layer's write side.
func (w *World) SetMode(mode harvest.Mode) {
	w.mode.Store(int32(mode))
}

// RequestedMode implements harvest.ModeSource.
func (w *World) RequestedMode() harvest.Mode {
	return harvest.Mode(w.mode.Load())
}

// SetRetreating flips the combat retreat signal.
func (w *World) SetRetreating(v bool) {
	w.retreating.Store(v)
}

// Retreating implements harvest.CombatSignals.
func (w *World) Retreating() bool {
	return w.retreating.Load()
}

// SetEnemyDistance sets the nearest-enemy reading; use ClearEnemy to drop it.
func (w *World) SetEnemyDistance(d float64) {
	w.enemyDist.Store(math.Float64bits(d))
}

// ClearEnemy resets the nearest-enemy reading to "none known".
func (w *World) ClearEnemy() {
	w.enemyDist.Store(math.Float64bits(math.MaxFloat64))
}

// NearestEnemyDistance implements harvest.CombatSignals.
func (w *World) NearestEnemyDistance() float64 {
	return math.Float64frombits(w.enemyDist.Load())
}

// Step advances the world by dt seconds: pickup eligibility grants, agent
// locomotion and stamina, then each agent's controller.
func (w *World) Step(dt float64) {
	w.grantEligibility()
	for _, agent := range w.agents {
		agent.step(dt)
	}
	for _, agent := range w.agents {
		if agent.Controller != nil {
			agent.Controller.Update(dt)
		}
	}
}

// grantEligibility approves requested pickups one step after the request,
// modeling the settle delay of the real item system.
func (w *World) grantEligibility() {
	ids := make([]string, 0, len(w.drops))
	for id := range w.drops {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		drop := w.drops[id]
		if drop.EligibilityRequested && !drop.PickupEligible {
			drop.PickupEligible = true
		}
	}
}

// onNodeDestroyed deactivates the node in the index and scatters its yield
// in a ring around it, owned by the destroying agent.
func (w *World) onNodeDestroyed(node *state.ResourceNode, byAgent string) {
	w.nodeIndex.Remove(string(node.ID))
	mat := materialFor(node.Type)
	for i := 0; i < scatterCount; i++ {
		angle := 2 * math.Pi * float64(i) / scatterCount
		pos := worldpkg.Vec3{
			X: node.Pos.X + math.Cos(angle),
			Y: node.Pos.Y + math.Sin(angle),
			Z: node.Pos.Z,
		}
		w.SpawnDrop(state.NewStack(mat, 1), pos, byAgent)
	}
}
