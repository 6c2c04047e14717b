package rollerwall

import (
	"log"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// MinGoalSeparation is the minimum distance between the two goals
	// of any episode after the first
	MinGoalSeparation float64 = 4.0

	// SeparationAttempts is the default number of top-half goals drawn
	// while looking for one far enough from the bottom-half goal
	SeparationAttempts int = 1000
)

// EpisodeContext is carried from one episode to the next. The first
// episode begins with FirstEpisode set; a wall collision sets
// ResetOnNextEpisode, which the next Begin consumes.
type EpisodeContext struct {
	FirstEpisode       bool
	ResetOnNextEpisode bool
}

// NewEpisodeContext returns the context of an environment which has
// never been reset
func NewEpisodeContext() EpisodeContext {
	return EpisodeContext{FirstEpisode: true}
}

// Placement reports how the goals of an episode were placed
type Placement struct {
	Resampled  bool
	Teleported bool

	// Quality is BestEffort if either goal overlaps the obstacle or
	// the goals are closer than the minimum separation
	Quality Quality

	// Attempts is the number of top-half goals drawn
	Attempts   int
	Separation float64
}

// Controller runs the logic which starts each episode: it teleports
// the agent back to the spawn point when needed, clears the per-episode
// flags, and places the goals.
type Controller struct {
	sampler            *Sampler
	sampleAttempts     int
	separationAttempts int
	minSeparation      float64
	logger             *log.Logger
}

// NewController returns a new Controller. The separation loop draws at
// most separationAttempts top-half goals before falling back to the
// widest pair it saw.
func NewController(sampler *Sampler, sampleAttempts, separationAttempts int,
	minSeparation float64, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	if separationAttempts < 1 {
		separationAttempts = 1
	}

	return &Controller{
		sampler:            sampler,
		sampleAttempts:     sampleAttempts,
		separationAttempts: separationAttempts,
		minSeparation:      minSeparation,
		logger:             logger,
	}
}

// Begin starts a new episode and returns the context to carry into the
// episode after it.
//
// The agent is teleported to spawn with zero velocity if it is below
// the platform surface or ctx.ResetOnNextEpisode is set; otherwise it
// keeps its position and momentum. The agent is marked grounded, both
// reached flags are cleared, and both goals are activated. Goals keep
// their current positions in the first episode and are resampled in
// every later one.
func (c *Controller) Begin(ctx EpisodeContext, body Body, spawn r3.Vec,
	agent *AgentState, goals *[2]GoalState) (EpisodeContext, Placement) {
	var placement Placement

	if body.Position().Y < 0 || ctx.ResetOnNextEpisode {
		body.SetVelocity(r3.Vec{}, r3.Vec{})
		body.SetPosition(spawn)
		placement.Teleported = true
	}
	agent.Position = body.Position()
	agent.Velocity = body.Velocity()
	agent.AngularVelocity = body.AngularVelocity()

	agent.Grounded = true
	agent.Target1Reached = false
	agent.Target2Reached = false

	goals[0].Active = true
	goals[1].Active = true

	if ctx.FirstEpisode {
		placement.Quality = Valid
		placement.Separation = r3.Norm(r3.Sub(goals[0].Position,
			goals[1].Position))
	} else {
		c.placeGoals(goals, &placement)
	}

	return EpisodeContext{}, placement
}

// placeGoals resamples both goals so that they are at least
// minSeparation apart
func (c *Controller) placeGoals(goals *[2]GoalState, placement *Placement) {
	placement.Resampled = true

	goal1, q1 := c.sampler.Sample(false, c.sampleAttempts)
	if q1 == BestEffort {
		c.logger.Printf("begin: bottom goal %v overlaps the obstacle "+
			"after %v attempts", fmtVec(goal1), c.sampleAttempts)
	}

	var widest r3.Vec
	widestQuality := BestEffort
	widestDist := -1.0

	for i := 0; i < c.separationAttempts; i++ {
		goal2, q2 := c.sampler.Sample(true, c.sampleAttempts)
		dist := r3.Norm(r3.Sub(goal1, goal2))
		placement.Attempts = i + 1

		if dist >= c.minSeparation {
			widest, widestQuality, widestDist = goal2, q2, dist
			break
		}
		if dist > widestDist {
			widest, widestQuality, widestDist = goal2, q2, dist
		}
	}

	if widestQuality == BestEffort {
		c.logger.Printf("begin: top goal %v overlaps the obstacle "+
			"after %v attempts", fmtVec(widest), c.sampleAttempts)
	}

	quality := worst(q1, widestQuality)
	if widestDist < c.minSeparation {
		c.logger.Printf("begin: no goal pair separated by %v after %v "+
			"attempts, using widest pair (%.3f)", c.minSeparation,
			c.separationAttempts, widestDist)
		quality = BestEffort
	}

	goals[0].Position = goal1
	goals[1].Position = widest
	placement.Quality = quality
	placement.Separation = widestDist
}
