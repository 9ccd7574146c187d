package world

// AgentClass selects the movement profile the pathfinder should assume when
// answering reachability queries.
type AgentClass string

const (
	AgentClassGround AgentClass = "ground"
	AgentClassFlying AgentClass = "flying"
)

// InteractionPoint describes where an agent should stand to work on a target:
// a stand position plus the acceptable [MinDist, MaxDist] band measured
// horizontally to the target itself.
type InteractionPoint struct {
	Stand   Vec3
	MinDist float64
	MaxDist float64
}

// NavOracle is the navigation service consumed by harvesting. Pathfinding is
// opaque here; callers only get reachability, line-of-sight, and stand-point
// answers.
type NavOracle interface {
	// HasPath reports whether an agent of the given class can travel from
	// from to to.
	HasPath(from, to Vec3, class AgentClass) bool

	// LineOfSightBlocked reports whether terrain blocks the straight line
	// between the two points. The object named by ignore is excluded so a
	// target never occludes itself.
	LineOfSightBlocked(from, to Vec3, ignore string) bool

	// ComputeInteractionPoint returns the stand position and distance band
	// for working on the target. ok is false when no stand point exists.
	ComputeInteractionPoint(target Vec3) (point InteractionPoint, ok bool)
}
