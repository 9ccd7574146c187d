package app

import (
	"sync"
	"time"

	"harvest-and-haul/server/internal/harvest"
	servernet "harvest-and-haul/server/internal/net"
	"harvest-and-haul/server/internal/sim"
	state "harvest-and-haul/server/internal/state"
	"harvest-and-haul/server/internal/telemetry"
	worldpkg "harvest-and-haul/server/internal/world"
	"harvest-and-haul/server/logging"
)

const (
	// TickRate is the fixed simulation frequency.
	TickRate = 20
	// TickInterval is the wall-clock spacing between steps.
	TickInterval = time.Second / TickRate
	// TickDT is the simulation-seconds step fed to every Update.
	TickDT = 1.0 / float64(TickRate)
)

// Runner owns the demo world, its single companion agent, and the harvest
// controller, and advances them on a fixed tick. The mutex serializes the
// loop against HTTP reads and mode writes.
type Runner struct {
	mu         sync.Mutex
	world      *sim.World
	agent      *sim.Agent
	controller *harvest.Controller
	tick       uint64
	stats      telemetry.StatsSource
	logger     telemetry.Logger
}

func NewRunner(cfg *harvest.Config, pub logging.Publisher, stats telemetry.StatsSource, logger telemetry.Logger) (*Runner, error) {
	world := sim.NewWorld()
	nav := worldpkg.NewGridOracle(200, 200)

	seedNodes(world)

	inv := state.NewInventory(10, 120)
	inv.Add(state.NewStack(state.ItemTypeCrudeAxe, 1))
	inv.Add(state.NewStack(state.ItemTypeIronPick, 1))
	inv.Add(state.NewStack(state.ItemTypeShortSword, 1))
	inv.Add(state.NewStack(state.ItemTypeTorch, 1))

	agent := sim.NewAgent("companion-1", worldpkg.Vec3{X: 100, Y: 100}, &inv)
	agent.SetCombatLoadout(state.ItemTypeShortSword)
	agent.SetCombatOffHand(state.ItemTypeTorch)
	agent.SetOwner(worldpkg.Vec3{X: 100, Y: 100})
	agent.ResyncLoadout()
	world.AddAgent(agent)

	controller, err := harvest.New(harvest.Deps{
		Config:    cfg,
		Agent:     agent,
		Inventory: agent.Inventory,
		Nodes:     world,
		Drops:     world,
		Nav:       nav,
		Actuator:  agent,
		Mode:      world,
		Combat:    world,
		Stamina:   agent,
		Publisher: pub,
	})
	if err != nil {
		return nil, err
	}
	agent.Controller = controller

	return &Runner{
		world:      world,
		agent:      agent,
		controller: controller,
		stats:      stats,
		logger:     logger,
	}, nil
}

// seedNodes scatters a small starter field around the spawn point.
func seedNodes(world *sim.World) {
	nodes := []state.ResourceNode{
		{ID: "tree-1", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 108, Y: 96}, MinToolTier: 1, Health: 40},
		{ID: "tree-2", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 90, Y: 110}, MinToolTier: 1, Health: 40},
		{ID: "tree-3", Type: state.ResourceWood, Pos: worldpkg.Vec3{X: 120, Y: 118}, MinToolTier: 1, Health: 40},
		{ID: "rock-1", Type: state.ResourceStone, Pos: worldpkg.Vec3{X: 84, Y: 92}, MinToolTier: 1, Health: 60},
		{ID: "rock-2", Type: state.ResourceStone, Pos: worldpkg.Vec3{X: 114, Y: 84}, MinToolTier: 1, Health: 60},
		{ID: "vein-1", Type: state.ResourceOre, Pos: worldpkg.Vec3{X: 130, Y: 104}, MinToolTier: 2, Health: 80},
	}
	for _, node := range nodes {
		world.AddNode(node)
	}
}

// Run drives the fixed-step loop until stop closes.
func (r *Runner) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			r.world.Step(TickDT)
			r.tick++
			r.mu.Unlock()
		}
	}
}

// SetMode implements net.Service.
func (r *Runner) SetMode(mode harvest.Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.world.SetMode(mode)
	r.controller.NotifyModeChanged()
	if r.logger != nil {
		r.logger.Printf("harvest mode set to %s", mode)
	}
	return nil
}

// Diagnostics implements net.Service.
func (r *Runner) Diagnostics() servernet.Diagnostics {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := servernet.Diagnostics{
		Tick:            r.tick,
		Mode:            r.world.RequestedMode().String(),
		ControllerState: r.controller.State().String(),
		InventoryWeight: r.agent.Inventory.TotalWeight(),
		GroundDrops:     r.world.DropCount(),
		BlacklistSize:   r.controller.BlacklistSize(),
	}
	loadout := r.agent.Loadout()
	if len(loadout.Slots) > 0 {
		d.Equipment = make(map[string]string, len(loadout.Slots))
		for _, entry := range loadout.Slots {
			d.Equipment[string(entry.Slot)] = string(entry.Item.Type)
		}
	}
	if r.stats != nil {
		stats := r.stats.Stats()
		d.EventsTotal = stats.EventsTotal
		d.EventsDropped = stats.DroppedTotal
	}
	return d
}
