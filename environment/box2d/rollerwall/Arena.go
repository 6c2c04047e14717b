package rollerwall

import (
	"fmt"

	"github.com/samuelfneumann/rollerwall/utils/floatutils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// Platform geometry. The platform is a square centred at the
	// origin of the arena frame; an agent whose centre leaves it falls.
	PlatformHalfWidth float64 = 5.0
	AgentRadius       float64 = 0.5
	RestHeight        float64 = AgentRadius

	// Goal placement regions
	GoalHeight      float64 = 0.5
	GoalMinX        float64 = -4.0
	GoalMaxX        float64 = 4.0
	TopGoalMinZ     float64 = 1.7
	TopGoalMaxZ     float64 = 4.45
	BottomGoalMinZ  float64 = -4.45
	BottomGoalMaxZ  float64 = -1.7
	GoalRenderWidth float64 = 0.6

	// Identity of the dividing wall and tag of the platform in contact
	// events
	WallName  string = "Wall"
	GroundTag string = "Ground"
)

var (
	// Obstacle is the footprint of the dividing wall in the horizontal
	// plane
	Obstacle = Rect{
		X: r1.Interval{Min: -1.5, Max: 1.5},
		Z: r1.Interval{Min: -1.0, Max: 1.0},
	}

	// SpawnPosition is where the agent is teleported when an episode
	// begins after a fall or a wall collision
	SpawnPosition = r3.Vec{X: 0, Y: 0.5, Z: -4}

	// DefaultGoal1 and DefaultGoal2 are the goal positions used in the
	// first episode, before any resampling has happened
	DefaultGoal1 = r3.Vec{X: -2.5, Y: GoalHeight, Z: -3}
	DefaultGoal2 = r3.Vec{X: 2.5, Y: GoalHeight, Z: 3}
)

// Rect is an axis aligned rectangle in the horizontal (x, z) plane.
// Bounds are inclusive.
type Rect struct {
	X r1.Interval
	Z r1.Interval
}

// Contains returns whether the horizontal projection of p lies within
// the rectangle
func (r Rect) Contains(p r3.Vec) bool {
	return p.X >= r.X.Min && p.X <= r.X.Max && p.Z >= r.Z.Min &&
		p.Z <= r.Z.Max
}

// Closest returns the point of the rectangle, at height p.Y, closest
// to p
func (r Rect) Closest(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: floatutils.ClipInterval(p.X, r.X),
		Y: p.Y,
		Z: floatutils.ClipInterval(p.Z, r.Z),
	}
}

// onPlatform returns whether the horizontal position of p is above
// the platform
func onPlatform(p r3.Vec) bool {
	return p.X >= -PlatformHalfWidth && p.X <= PlatformHalfWidth &&
		p.Z >= -PlatformHalfWidth && p.Z <= PlatformHalfWidth
}

// AgentState is the state of the rolling agent which persists across
// the steps of an episode
type AgentState struct {
	Position        r3.Vec
	Velocity        r3.Vec
	AngularVelocity r3.Vec
	Grounded        bool
	Target1Reached  bool
	Target2Reached  bool
}

func (a AgentState) String() string {
	return fmt.Sprintf("Agent | Position: %v  |  Velocity: %v  |  "+
		"Grounded: %v  |  Reached: (%v, %v)", fmtVec(a.Position),
		fmtVec(a.Velocity), a.Grounded, a.Target1Reached, a.Target2Reached)
}

// GoalState is a goal zone. An inactive goal keeps its position until
// it is moved at the next episode start.
type GoalState struct {
	Position r3.Vec
	Active   bool
}

func fmtVec(v r3.Vec) string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

func vecToR3(v mat.Vector) r3.Vec {
	if v.Len() != 3 {
		panic(fmt.Sprintf("vecToR3: vector should have 3 elements "+
			"\n\twant(3) \n\thave(%v)", v.Len()))
	}
	return r3.Vec{X: v.AtVec(0), Y: v.AtVec(1), Z: v.AtVec(2)}
}
