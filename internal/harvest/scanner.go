package harvest

import (
	"math"
	"sort"

	state "harvest-and-haul/server/internal/state"
	worldpkg "harvest-and-haul/server/internal/world"
)

// ScanResult is the outcome of one target search.
type ScanResult struct {
	Target *state.ResourceNode
	Score  float64
	// Reachable is false only when every scored candidate failed the path
	// check and the best unreachable one was returned as a fallback.
	Reachable bool
	// ToolTierBlocked reports that at least one in-range node of the
	// requested type was skipped for lack of an adequate tool.
	ToolTierBlocked bool
	// TierBlocked lists the skipped nodes so the caller can exclude them
	// until the tool situation changes. Valid until the next FindBest.
	TierBlocked []state.NodeID
}

// Scanner finds the best harvestable node for a resource type. Scoring
// favors near, level, owner-adjacent, path-reachable nodes; when nothing is
// reachable the best-scoring node is still returned so movement can at least
// close distance toward it.
type Scanner struct {
	cfg   *Config
	nodes NodeSource
	nav   worldpkg.NavOracle
	class worldpkg.AgentClass

	buf     []state.NodeID
	seen    map[state.NodeID]struct{}
	tierBuf []state.NodeID
}

func NewScanner(cfg *Config, nodes NodeSource, nav worldpkg.NavOracle) *Scanner {
	return &Scanner{
		cfg:   cfg,
		nodes: nodes,
		nav:   nav,
		class: worldpkg.AgentClass(cfg.AgentClass),
		buf:   make([]state.NodeID, 0, cfg.ScanBufferCap),
		seen:  make(map[state.NodeID]struct{}, cfg.ScanBufferCap),
	}
}

// FindBest runs the close-range pass and, only when it yields nothing, the
// far-range pass. skip excludes nodes the caller already rejected
// (blacklist, current target). A non-nil result with Reachable=false is the
// unreachable fallback; the caller decides whether to chase it.
func (s *Scanner) FindBest(pos worldpkg.Vec3, owner worldpkg.Vec3, hasOwner bool, rt state.ResourceType, lookup ToolLookup, skip func(state.NodeID) bool) ScanResult {
	for id := range s.seen {
		delete(s.seen, id)
	}
	s.tierBuf = s.tierBuf[:0]
	result := s.scanPass(pos, owner, hasOwner, s.cfg.CloseScanRange, rt, lookup, skip)
	if result.Target != nil {
		return result
	}
	far := s.scanPass(pos, owner, hasOwner, s.cfg.FarScanRange, rt, lookup, skip)
	far.ToolTierBlocked = far.ToolTierBlocked || result.ToolTierBlocked
	return far
}

func (s *Scanner) scanPass(pos worldpkg.Vec3, owner worldpkg.Vec3, hasOwner bool, radius float64, rt state.ResourceType, lookup ToolLookup, skip func(state.NodeID) bool) ScanResult {
	ids := s.nodes.NodesInRange(pos, radius, s.buf)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out ScanResult
	var bestAny *state.ResourceNode
	bestAnyScore := math.Inf(-1)
	var bestReach *state.ResourceNode
	bestReachScore := math.Inf(-1)

	for _, id := range ids {
		if _, dup := s.seen[id]; dup {
			continue
		}
		s.seen[id] = struct{}{}
		if skip != nil && skip(id) {
			continue
		}
		node, ok := s.nodes.Node(id)
		if !ok || !node.Active || node.Type != rt {
			continue
		}
		if lookup(rt, node.MinToolTier) == nil {
			out.ToolTierBlocked = true
			s.tierBuf = append(s.tierBuf, id)
			continue
		}
		score := s.score(pos, owner, hasOwner, radius, node)
		if score > bestAnyScore {
			bestAny, bestAnyScore = node, score
		}
		if s.reachable(pos, node.Pos) {
			if score+s.cfg.ReachableBonus > bestReachScore {
				bestReach, bestReachScore = node, score+s.cfg.ReachableBonus
			}
		}
	}

	out.TierBlocked = s.tierBuf
	if bestReach != nil {
		out.Target = bestReach
		out.Score = bestReachScore
		out.Reachable = true
		return out
	}
	out.Target = bestAny
	out.Score = bestAnyScore
	return out
}

func (s *Scanner) score(pos worldpkg.Vec3, owner worldpkg.Vec3, hasOwner bool, radius float64, node *state.ResourceNode) float64 {
	dist := pos.HorizontalDistance(node.Pos)
	score := 1.0 - dist/radius
	score -= s.cfg.HeightPenalty * math.Abs(pos.HeightDelta(node.Pos))
	if hasOwner {
		ownerDist := owner.HorizontalDistance(node.Pos)
		if ownerDist < s.cfg.ProximityRange {
			score += s.cfg.ProximityBonus * (1.0 - ownerDist/s.cfg.ProximityRange)
		}
	}
	return score
}

func (s *Scanner) reachable(from, to worldpkg.Vec3) bool {
	if s.nav == nil {
		return true
	}
	goal := to
	if ip, ok := s.nav.ComputeInteractionPoint(to); ok {
		goal = ip.Stand
	}
	return s.nav.HasPath(from, goal, s.class)
}
