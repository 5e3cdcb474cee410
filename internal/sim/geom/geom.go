package geom

import (
	"fmt"
	"math"
)

// RoomSize is the edge length of a room in tiles.
const RoomSize = 50

// Far is the distance reported between positions in different rooms.
const Far = math.MaxInt32

type Pos struct {
	Room string `json:"room" yaml:"room"`
	X    int    `json:"x" yaml:"x"`
	Y    int    `json:"y" yaml:"y"`
}

func (p Pos) String() string {
	return fmt.Sprintf("[%s %d,%d]", p.Room, p.X, p.Y)
}

func (p Pos) InBounds() bool {
	return p.X >= 0 && p.X < RoomSize && p.Y >= 0 && p.Y < RoomSize
}

// Center is the middle tile of room.
func Center(room string) Pos {
	return Pos{Room: room, X: RoomSize / 2, Y: RoomSize / 2}
}

// Range is the Chebyshev distance between a and b, or Far across rooms.
func Range(a, b Pos) int {
	if a.Room != b.Room {
		return Far
	}
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func InRange(a, b Pos, r int) bool {
	return Range(a, b) <= r
}

// StepToward returns the neighbour of cur that closes the distance to target
// by one tile. Both positions are taken to be in the same room.
func StepToward(cur, target Pos) Pos {
	next := cur
	next.X += sign(target.X - cur.X)
	next.Y += sign(target.Y - cur.Y)
	return next
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
