// Package rollerwall provides an implementation of the RollerWall
// environment, in which a rolling agent must touch two goals placed on
// either side of a wall dividing a square platform.
package rollerwall

import (
	"fmt"
	"log"
	"math"

	"github.com/samuelfneumann/rollerwall/environment"
	ts "github.com/samuelfneumann/rollerwall/timestep"
	"github.com/samuelfneumann/rollerwall/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// Indices of features in state observations
const (
	Goal1X int = iota
	Goal1Y
	Goal1Z
	Goal2X
	Goal2Y
	Goal2Z
	AgentX
	AgentY
	AgentZ
	AgentVelocityX
	AgentVelocityZ
	AgentGrounded

	ObservationDims int = iota
)

const (
	// Action
	ActionDims          int     = 3
	MinActionDims       int     = 2
	MinContinuousAction float64 = -1.0
	MaxContinuousAction float64 = 1.0

	// Nominal bounds of observation features
	MaxPosition float64 = 2 * PlatformHalfWidth
	MinPosition float64 = -MaxPosition
	MaxVelocity float64 = 20.0
	MinVelocity float64 = -MaxVelocity
)

// Params holds the physical and placement parameters of a RollerWall
type Params struct {
	ForceMultiplier    float64
	JumpForce          float64
	SampleAttempts     int
	SeparationAttempts int
	MinSeparation      float64
	Substeps           int

	// Logger receives reports of goal placements which violate a
	// placement constraint. If nil, log.Default() is used.
	Logger *log.Logger
}

// DefaultParams returns the default RollerWall parameters
func DefaultParams() Params {
	return Params{
		ForceMultiplier:    ForceMultiplier,
		JumpForce:          JumpForce,
		SampleAttempts:     SampleAttempts,
		SeparationAttempts: SeparationAttempts,
		MinSeparation:      MinGoalSeparation,
		Substeps:           1,
	}
}

// RollerWall implements the RollerWall environment. A rolling agent is
// placed on a square platform which is split in two by a wall. One
// goal is placed on each side of the wall, and the agent must touch
// both goals without hitting the wall or falling off the platform.
//
// State observations are vectors consisting of the following features
// in the following order:
//
//	1-3.   The (x, y, z) position of the first goal, which is always
//	       on the z < 0 side of the wall
//	4-6.   The (x, y, z) position of the second goal, which is always
//	       on the z > 0 side of the wall
//	7-9.   The (x, y, z) position of the agent. The y axis points up
//	       and the agent rests on the platform at y = RestHeight.
//	10-11. The x and z velocity of the agent
//	12.    Whether the agent is on the ground and can jump, in {0, 1}
//
// Actions are 3-dimensional and continuous. The first two coordinates
// give the force to roll the agent with along the x and z axes and are
// bounded in [-1, 1]. The third coordinate requests a jump when it
// exceeds JumpThreshold. Jumps are only possible when the agent is
// grounded. 2-dimensional actions are also accepted and never jump.
// Actions outside of [-1, 1] are clipped.
//
// Episodes begin with the agent where the last episode left it, unless
// it fell off the platform or hit the wall, in which case it is
// returned to SpawnPosition. Goals are resampled at the start of every
// episode except the first, so that the goals are at least
// MinGoalSeparation apart and outside of the wall.
//
// RollerWall implements the environment.Environment interface.
type RollerWall struct {
	*TouchGoals

	body       Body
	controller *Controller
	actuator   Actuator

	ctx       EpisodeContext
	agent     AgentState
	goals     [2]GoalState
	pending   []Contact
	placement Placement

	actionBounds r1.Interval
	discount     float64
	lastStep     ts.TimeStep
}

// New returns a new RollerWall environment simulated with Box2D
func New(task *TouchGoals, discount float64, seed uint64,
	p Params) (*RollerWall, ts.TimeStep, error) {
	spawn := vecToR3(task.Start())
	return NewWithBody(task, NewBody(spawn, p.Substeps), discount, seed, p)
}

// NewWithBody returns a new RollerWall environment whose agent is
// simulated by body
func NewWithBody(task *TouchGoals, body Body, discount float64, seed uint64,
	p Params) (*RollerWall, ts.TimeStep, error) {
	if task == nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: task cannot be nil")
	}
	if body == nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: body cannot be nil")
	}
	if discount < 0 || discount > 1 {
		return nil, ts.TimeStep{}, fmt.Errorf("new: illegal discount "+
			"%v ∉ [0, 1]", discount)
	}

	sampler := NewSampler(rand.NewSource(seed), Obstacle)
	controller := NewController(sampler, p.SampleAttempts,
		p.SeparationAttempts, p.MinSeparation, p.Logger)

	r := &RollerWall{
		TouchGoals: task,
		body:       body,
		controller: controller,
		actuator:   NewActuator(p.ForceMultiplier, p.JumpForce),
		ctx:        NewEpisodeContext(),
		goals: [2]GoalState{
			{Position: DefaultGoal1, Active: true},
			{Position: DefaultGoal2, Active: true},
		},
		actionBounds: r1.Interval{
			Min: MinContinuousAction,
			Max: MaxContinuousAction,
		},
		discount: discount,
	}
	task.register(r)

	step, err := r.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: %v", err)
	}
	return r, step, nil
}

// Reset begins a new episode and returns its first TimeStep. A wall
// contact which has not yet been classified, because the step which
// produced it also ended the episode, returns the agent to the spawn
// point.
func (r *RollerWall) Reset() (ts.TimeStep, error) {
	spawn := r.Start()
	if spawn.Len() != 3 {
		return ts.TimeStep{}, fmt.Errorf("reset: starter should return "+
			"(x, y, z) spawn points \n\twant(3) \n\thave(%v)", spawn.Len())
	}

	// Contacts produced by the last step of the previous episode still
	// request a teleport, but never end the new episode
	Classify(r.pending, &r.ctx, &r.agent)
	r.pending = nil

	r.ctx, r.placement = r.controller.Begin(r.ctx, r.body, vecToR3(spawn),
		&r.agent, &r.goals)
	r.TouchGoals.beginEpisode()

	step := ts.New(ts.First, 0, r.discount, r.observation(), 0)
	r.lastStep = step
	return step, nil
}

// Step takes one environmental step given action a and returns the
// next timestep as a timestep.TimeStep and a bool indicating whether
// or not the episode has ended.
//
// Contact events from the previous step are processed first. If the
// agent hit the wall, the episode ends without the action being
// applied. Otherwise the action is applied, the simulation advances,
// and the TouchGoals Task evaluates the new state.
func (r *RollerWall) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if r.lastStep.Last() {
		return ts.TimeStep{}, true, fmt.Errorf("step: episode has " +
			"ended, call Reset")
	}
	if a.Len() < MinActionDims || a.Len() > ActionDims {
		return ts.TimeStep{}, false, fmt.Errorf("step: illegal action "+
			"length \n\twant(%v or %v) \n\thave(%v)", MinActionDims,
			ActionDims, a.Len())
	}

	// Clip actions
	action := mat.NewVecDense(a.Len(), nil)
	for i := 0; i < a.Len(); i++ {
		action.SetVec(i, floatutils.ClipInterval(a.AtVec(i), r.actionBounds))
	}

	var reward float64
	if hitWall := Classify(r.pending, &r.ctx, &r.agent); hitWall {
		before := r.Return()
		r.HitWall()
		reward = r.Return() - before
		r.pending = nil
	} else {
		r.actuator.Apply(action, &r.agent, r.body)
		r.pending = r.body.Advance()
		r.syncAgent()
		reward = r.GetReward(r.lastStep.Observation, action, r.observation())
	}

	nextStep := ts.New(ts.Mid, reward, r.discount, r.observation(),
		r.lastStep.Number+1)

	// Check if the step is the last in the episode and adjust step type
	// if necessary
	r.End(&nextStep)

	r.lastStep = nextStep
	return nextStep, nextStep.Last(), nil
}

// syncAgent copies the physical state of the body into the agent state
func (r *RollerWall) syncAgent() {
	r.agent.Position = r.body.Position()
	r.agent.Velocity = r.body.Velocity()
	r.agent.AngularVelocity = r.body.AngularVelocity()
}

// observation assembles the state observation of the environment
func (r *RollerWall) observation() *mat.VecDense {
	grounded := 0.0
	if r.agent.Grounded {
		grounded = 1.0
	}

	g1, g2, pos := r.goals[0].Position, r.goals[1].Position, r.agent.Position
	return mat.NewVecDense(ObservationDims, []float64{
		g1.X, g1.Y, g1.Z,
		g2.X, g2.Y, g2.Z,
		pos.X, pos.Y, pos.Z,
		r.agent.Velocity.X, r.agent.Velocity.Z,
		grounded,
	})
}

// CurrentTimeStep returns the last TimeStep that occurred in the
// environment
func (r *RollerWall) CurrentTimeStep() ts.TimeStep {
	return r.lastStep
}

// Agent returns the current state of the agent
func (r *RollerWall) Agent() AgentState {
	return r.agent
}

// Goals returns the current state of both goals
func (r *RollerWall) Goals() [2]GoalState {
	return r.goals
}

// Context returns the context which will be carried into the next
// episode
func (r *RollerWall) Context() EpisodeContext {
	return r.ctx
}

// Placement returns how the goals of the current episode were placed
func (r *RollerWall) Placement() Placement {
	return r.placement
}

// ActionSpec returns the action specification of the environment
func (r *RollerWall) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims, []float64{
		MinContinuousAction,
		MinContinuousAction,
		MinContinuousAction,
	})
	upperBound := mat.NewVecDense(ActionDims, []float64{
		MaxContinuousAction,
		MaxContinuousAction,
		MaxContinuousAction,
	})

	return environment.NewSpec(shape, environment.Action, lowerBound,
		upperBound, environment.Continuous)
}

// ObservationSpec returns the observation specification of the
// environment
func (r *RollerWall) ObservationSpec() environment.Spec {
	shape := mat.NewVecDense(ObservationDims, nil)
	lowerBound := mat.NewVecDense(ObservationDims, []float64{
		GoalMinX, GoalHeight, BottomGoalMinZ,
		GoalMinX, GoalHeight, TopGoalMinZ,
		MinPosition, math.Inf(-1), MinPosition,
		MinVelocity, MinVelocity,
		0,
	})
	upperBound := mat.NewVecDense(ObservationDims, []float64{
		GoalMaxX, GoalHeight, BottomGoalMaxZ,
		GoalMaxX, GoalHeight, TopGoalMaxZ,
		MaxPosition, MaxPosition, MaxPosition,
		MaxVelocity, MaxVelocity,
		1,
	})

	return environment.NewSpec(shape, environment.Observation, lowerBound,
		upperBound, environment.Continuous)
}

// DiscountSpec returns the discounting specification of the environment
func (r *RollerWall) DiscountSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{r.discount})
	upperBound := mat.NewVecDense(1, []float64{r.discount})

	return environment.NewSpec(shape, environment.Discount, lowerBound,
		upperBound, environment.Continuous)
}

// String returns a string representation of the environment
func (r *RollerWall) String() string {
	str := "RollerWall  |  %v  |  Goal 1: %v (%v)  |  Goal 2: %v (%v)"
	return fmt.Sprintf(str, r.agent, fmtVec(r.goals[0].Position),
		r.goals[0].Active, fmtVec(r.goals[1].Position), r.goals[1].Active)
}
