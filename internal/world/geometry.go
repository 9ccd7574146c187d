package world

import "math"

// Vec3 is a world-space position. Z is the height axis; gameplay distance
// checks are horizontal unless stated otherwise.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HorizontalDistance returns the distance between two points ignoring height.
func (v Vec3) HorizontalDistance(other Vec3) float64 {
	return math.Hypot(other.X-v.X, other.Y-v.Y)
}

// HeightDelta returns the signed height difference from v to other.
func (v Vec3) HeightDelta(other Vec3) float64 {
	return other.Z - v.Z
}

// Distance returns the full 3D distance between two points.
func (v Vec3) Distance(other Vec3) float64 {
	dx := other.X - v.X
	dy := other.Y - v.Y
	dz := other.Z - v.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
