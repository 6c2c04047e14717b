package rollerwall

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/rollerwall/environment"
	ts "github.com/samuelfneumann/rollerwall/timestep"
	"github.com/samuelfneumann/rollerwall/utils/floatutils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// ReachDistance is the default distance within which the agent
	// reaches a goal
	ReachDistance float64 = 1.42

	GoalReward         float64 = 0.25
	CompletionReward   float64 = 0.5
	MaxCompletionBonus float64 = 0.5
	FailureReward      float64 = -1.0
	StepCost           float64 = 0.001

	// Bounds on the reward of a single step. The largest step reward
	// reaches both goals at once on the first step; the smallest falls
	// right after collecting one goal.
	maxReward float64 = 2*GoalReward + CompletionReward +
		MaxCompletionBonus - StepCost
	minReward float64 = FailureReward - GoalReward
)

// Outcome is the state of an episode as seen by the TouchGoals Task
type Outcome int

const (
	Running Outcome = iota
	Success
	Fell
	HitWall
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "Success"
	case Fell:
		return "Fell"
	case HitWall:
		return "HitWall"
	case TimedOut:
		return "TimedOut"
	default:
		return "Running"
	}
}

// TouchGoals implements the Task of touching both goals of the
// RollerWall arena while neither falling off the platform nor hitting
// the wall.
//
// The Task keeps the episode's return, the total reward of the
// episode so far. Reaching a goal for the first time in an episode
// adds GoalReward and deactivates the goal. Reaching both goals adds
// CompletionReward plus a bonus which decays linearly from
// MaxCompletionBonus on the first step to 0 at the step limit, and
// ends the episode. Every step costs StepCost. Falling below the
// platform or hitting the wall replaces the return with FailureReward
// and ends the episode; falling takes precedence over completion when
// both happen on the same step, and the step cost is not charged on
// the step the agent falls.
//
// The reward of a step is the change of the return caused by the
// step, so the rewards of an episode always sum to its return.
//
// The TouchGoals Task must be registered with a RollerWall before
// GetReward can be used.
type TouchGoals struct {
	environment.Starter
	stepLimit *environment.StepLimit
	fallLimit *environment.IntervalLimit
	enders    []environment.Ender

	reachDistance float64

	ret     float64
	outcome Outcome

	env        *RollerWall
	registered bool
}

// NewTouchGoals returns a new TouchGoals Task. The Starter s samples
// the spawn point of the agent, cutoff is the episode step limit (0
// for no limit), and reachDistance is the distance within which a goal
// is reached.
func NewTouchGoals(s environment.Starter, cutoff int,
	reachDistance float64) *TouchGoals {
	fallLimit := environment.NewIntervalLimit(
		[]r1.Interval{{Min: 0, Max: math.Inf(1)}},
		[]int{AgentY},
		ts.Failure,
	).(*environment.IntervalLimit)

	t := &TouchGoals{
		Starter:       s,
		stepLimit:     environment.NewStepLimit(cutoff),
		fallLimit:     fallLimit,
		reachDistance: reachDistance,
	}

	// Enders are checked in order, the step limit last. The fall limit
	// sees the same observation Evaluate marked the agent Fell on.
	t.enders = []environment.Ender{
		environment.NewFunctionEnder(func(*mat.VecDense) bool {
			return t.outcome == Success
		}, ts.TerminalStateReached),
		fallLimit,
		environment.NewFunctionEnder(func(*mat.VecDense) bool {
			return t.outcome == HitWall
		}, ts.Failure),
	}
	return t
}

// NewSpawnStarter returns a Starter which always starts the agent at
// SpawnPosition
func NewSpawnStarter(seed uint64) environment.Starter {
	return environment.NewUniformStarter([]r1.Interval{
		{Min: SpawnPosition.X, Max: SpawnPosition.X},
		{Min: SpawnPosition.Y, Max: SpawnPosition.Y},
		{Min: SpawnPosition.Z, Max: SpawnPosition.Z},
	}, seed)
}

// register registers a RollerWall with the Task
func (t *TouchGoals) register(env *RollerWall) {
	t.env = env
	t.registered = true
}

// beginEpisode resets the per-episode state of the Task
func (t *TouchGoals) beginEpisode() {
	t.ret = 0
	t.outcome = Running
}

// MaxSteps returns the step limit of episodes
func (t *TouchGoals) MaxSteps() int {
	return t.stepLimit.EpisodeSteps()
}

// Return returns the total reward of the current episode
func (t *TouchGoals) Return() float64 {
	return t.ret
}

// Outcome returns the outcome of the current episode
func (t *TouchGoals) Outcome() Outcome {
	return t.outcome
}

// addReward adds r to the return of the episode
func (t *TouchGoals) addReward(r float64) {
	t.ret += r
}

// setReward replaces the return of the episode with r
func (t *TouchGoals) setReward(r float64) {
	t.ret = r
}

// Bonus returns the completion bonus for completing the Task after
// step steps of an episode with a step limit of maxSteps. Episodes
// without a step limit earn no bonus.
func Bonus(step, maxSteps int) float64 {
	if maxSteps <= 0 {
		return 0
	}
	remaining := float64(maxSteps-step) / float64(maxSteps)
	return floatutils.Clamp01(remaining) * MaxCompletionBonus
}

// HitWall ends the episode as a wall collision
func (t *TouchGoals) HitWall() {
	t.setReward(FailureReward)
	t.outcome = HitWall
}

// Evaluate runs one step of the reward and termination state machine
// on the observation obs taken after actuation. The argument step is
// the number of steps taken in the episode before this one. Reached
// flags of agent and the activity of goals are updated, and the
// resulting outcome is returned.
func (t *TouchGoals) Evaluate(obs *mat.VecDense, agent *AgentState,
	goals *[2]GoalState, step int) Outcome {
	if obs.Len() != ObservationDims {
		panic(fmt.Sprintf("evaluate: illegal observation length "+
			"\n\twant(%v) \n\thave(%v)", ObservationDims, obs.Len()))
	}

	position := r3.Vec{
		X: obs.AtVec(AgentX),
		Y: obs.AtVec(AgentY),
		Z: obs.AtVec(AgentZ),
	}
	goal1 := r3.Vec{X: obs.AtVec(Goal1X), Y: obs.AtVec(Goal1Y), Z: obs.AtVec(Goal1Z)}
	goal2 := r3.Vec{X: obs.AtVec(Goal2X), Y: obs.AtVec(Goal2Y), Z: obs.AtVec(Goal2Z)}

	d1 := r3.Norm(r3.Sub(position, goal1))
	d2 := r3.Norm(r3.Sub(position, goal2))

	if !agent.Target1Reached && d1 < t.reachDistance {
		agent.Target1Reached = true
		t.addReward(GoalReward)
		goals[0].Active = false
	}

	if !agent.Target2Reached && d2 < t.reachDistance {
		agent.Target2Reached = true
		t.addReward(GoalReward)
		goals[1].Active = false
	}

	if t.fallLimit.Outside(obs) {
		t.setReward(FailureReward)
		t.outcome = Fell
		return t.outcome
	}

	if agent.Target1Reached && agent.Target2Reached {
		t.addReward(CompletionReward)
		t.addReward(Bonus(step, t.MaxSteps()))
		t.outcome = Success
	}

	t.addReward(-StepCost)
	return t.outcome
}

// GetReward evaluates the step of the registered RollerWall which
// resulted in nextState and returns the reward for that step
func (t *TouchGoals) GetReward(_, _, nextState mat.Vector) float64 {
	if !t.registered {
		panic("getReward: must register with RollerWall environment first")
	}

	obs, ok := nextState.(*mat.VecDense)
	if !ok {
		obs = mat.VecDenseCopyOf(nextState)
	}

	before := t.ret
	t.Evaluate(obs, &t.env.agent, &t.env.goals,
		t.env.CurrentTimeStep().Number)
	return t.ret - before
}

// AtGoal returns whether the agent has reached both goals in the
// current episode. The argument state is unused, since goals which
// have been reached are tracked by the Task.
func (t *TouchGoals) AtGoal(_ mat.Matrix) bool {
	return t.outcome == Success
}

// End determines if a timestep is the last timestep in the episode.
// If so, it changes the TimeStep's StepType to timestep.Last and
// adjusts the TimeStep's EndType to the appropriate ending type. This
// function returns true if the argument TimeStep is the last timestep
// in the episode and false otherwise.
func (t *TouchGoals) End(step *ts.TimeStep) bool {
	for _, ender := range t.enders {
		if ender.End(step) {
			return true
		}
	}

	if ended := t.stepLimit.End(step); ended {
		t.outcome = TimedOut
		return true
	}
	return false
}

// Min returns the minimum attainable reward over all timesteps
func (t *TouchGoals) Min() float64 {
	return minReward
}

// Max returns the maximum attainable reward over all timesteps
func (t *TouchGoals) Max() float64 {
	return maxReward
}

// RewardSpec returns the reward specification of the Task
func (t *TouchGoals) RewardSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{t.Min()})
	upperBound := mat.NewVecDense(1, []float64{t.Max()})

	return environment.NewSpec(shape, environment.Reward, lowerBound,
		upperBound, environment.Continuous)
}
