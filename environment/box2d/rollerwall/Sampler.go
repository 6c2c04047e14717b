package rollerwall

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// SampleAttempts is the default number of draws the Sampler makes
	// before accepting a goal position which overlaps the obstacle
	SampleAttempts int = 100
)

// Quality describes whether a sampled placement honours all placement
// constraints
type Quality int

const (
	// Valid placements satisfy every constraint
	Valid Quality = iota

	// BestEffort placements were accepted after the attempt budget ran
	// out and may violate a constraint
	BestEffort
)

func (q Quality) String() string {
	if q == Valid {
		return "Valid"
	}
	return "BestEffort"
}

// worst returns the lower of two qualities
func worst(q1, q2 Quality) Quality {
	if q1 == BestEffort || q2 == BestEffort {
		return BestEffort
	}
	return Valid
}

// Sampler samples goal positions uniformly from one half of the arena
// while rejecting positions inside an obstacle
type Sampler struct {
	x        distuv.Uniform
	top      distuv.Uniform
	bottom   distuv.Uniform
	obstacle Rect
}

// NewSampler returns a new Sampler which rejects positions inside
// obstacle and draws its randomness from src
func NewSampler(src rand.Source, obstacle Rect) *Sampler {
	return &Sampler{
		x:        distuv.Uniform{Min: GoalMinX, Max: GoalMaxX, Src: src},
		top:      distuv.Uniform{Min: TopGoalMinZ, Max: TopGoalMaxZ, Src: src},
		bottom:   distuv.Uniform{Min: BottomGoalMinZ, Max: BottomGoalMaxZ, Src: src},
		obstacle: obstacle,
	}
}

// Sample draws a goal position in the top (z > 0) or bottom half of
// the arena. Positions inside the obstacle are redrawn, making at most
// attempts draws in total. If every draw lands inside the obstacle,
// the last draw is returned with quality BestEffort. Values of
// attempts below 1 are treated as 1.
func (s *Sampler) Sample(topHalf bool, attempts int) (r3.Vec, Quality) {
	var pos r3.Vec
	for i := 0; i < attempts || i == 0; i++ {
		pos = s.draw(topHalf)
		if !s.obstacle.Contains(pos) {
			return pos, Valid
		}
	}
	return pos, BestEffort
}

// draw makes a single draw without rejection
func (s *Sampler) draw(topHalf bool) r3.Vec {
	x := s.x.Rand()

	var z float64
	if topHalf {
		z = s.top.Rand()
	} else {
		z = s.bottom.Rand()
	}

	return r3.Vec{X: x, Y: GoalHeight, Z: z}
}
