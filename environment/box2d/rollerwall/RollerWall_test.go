package rollerwall

import (
	"os"
	"path/filepath"
	"testing"

	ts "github.com/samuelfneumann/rollerwall/timestep"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	noop  = mat.NewVecDense(3, []float64{0, 0, 0})
	jump  = mat.NewVecDense(3, []float64{0, 0, 1})
	north = mat.NewVecDense(3, []float64{0, 1, 0})
	south = mat.NewVecDense(3, []float64{0, -1, 0})
)

func TestFirstStep(t *testing.T) {
	env, _, _ := newTestEnv(1000, 1)
	step := env.CurrentTimeStep()

	if !step.First() || step.Number != 0 {
		t.Errorf("first step \n\twant(First, 0) \n\thave(%v, %v)",
			step.StepType, step.Number)
	}
	if step.Observation.Len() != ObservationDims {
		t.Fatalf("observation length \n\twant(%v) \n\thave(%v)",
			ObservationDims, step.Observation.Len())
	}
	if step.Observation.AtVec(AgentGrounded) != 1 {
		t.Errorf("agent should be grounded at the start of an episode")
	}

	obs := step.Observation
	agent := r3.Vec{X: obs.AtVec(AgentX), Y: obs.AtVec(AgentY),
		Z: obs.AtVec(AgentZ)}
	if agent != SpawnPosition {
		t.Errorf("agent position \n\twant(%v) \n\thave(%v)",
			fmtVec(SpawnPosition), fmtVec(agent))
	}

	goals := env.Goals()
	if goals[0].Position != DefaultGoal1 || goals[1].Position != DefaultGoal2 {
		t.Errorf("first episode goals \n\twant(%v, %v) \n\thave(%v, %v)",
			fmtVec(DefaultGoal1), fmtVec(DefaultGoal2),
			fmtVec(goals[0].Position), fmtVec(goals[1].Position))
	}
	if env.Placement().Resampled {
		t.Error("goals of the first episode should not be resampled")
	}
}

func TestRewardsSumToReturn(t *testing.T) {
	env, body, _ := newTestEnv(1000, 1)

	var total float64
	body.moveTo(DefaultGoal1)
	step, done, err := env.Step(noop)
	if err != nil || done {
		t.Fatalf("step 1: done %v, err %v", done, err)
	}
	total += step.Reward
	if want := GoalReward - StepCost; !scalar.EqualWithinAbs(step.Reward,
		want, tol) {
		t.Errorf("reward for first goal \n\twant(%v) \n\thave(%v)", want,
			step.Reward)
	}

	body.moveTo(DefaultGoal2)
	step, done, err = env.Step(noop)
	if err != nil {
		t.Fatal(err)
	}
	if !done || step.EndType() != ts.TerminalStateReached {
		t.Errorf("episode end \n\twant(true, %v) \n\thave(%v, %v)",
			ts.TerminalStateReached, done, step.EndType())
	}
	total += step.Reward

	want := GoalReward + CompletionReward + Bonus(1, 1000) - StepCost
	if !scalar.EqualWithinAbs(step.Reward, want, tol) {
		t.Errorf("reward for completion \n\twant(%v) \n\thave(%v)", want,
			step.Reward)
	}
	if !scalar.EqualWithinAbs(total, env.Return(), tol) {
		t.Errorf("sum of rewards \n\twant(%v) \n\thave(%v)", env.Return(),
			total)
	}
	if !env.AtGoal(step.Observation) {
		t.Error("AtGoal should be true after completing the task")
	}

	goals := env.Goals()
	if goals[0].Active || goals[1].Active {
		t.Error("reached goals should be inactive")
	}
}

func TestWallCollision(t *testing.T) {
	env, body, _ := newTestEnv(1000, 3)

	body.contacts = []Contact{{Other: WallName, Normal: r3.Vec{Z: -1}}}
	step, done, err := env.Step(north)
	if err != nil || done {
		t.Fatalf("step 1: done %v, err %v", done, err)
	}
	if !scalar.EqualWithinAbs(step.Reward, -StepCost, tol) {
		t.Errorf("reward on contact step \n\twant(%v) \n\thave(%v)",
			-StepCost, step.Reward)
	}

	step, done, err = env.Step(north)
	if err != nil {
		t.Fatal(err)
	}
	if !done || step.EndType() != ts.Failure {
		t.Errorf("episode end \n\twant(true, %v) \n\thave(%v, %v)",
			ts.Failure, done, step.EndType())
	}
	if env.Outcome() != HitWall {
		t.Errorf("outcome \n\twant(%v) \n\thave(%v)", HitWall, env.Outcome())
	}
	if want := FailureReward + StepCost; !scalar.EqualWithinAbs(step.Reward,
		want, tol) {
		t.Errorf("reward on collision step \n\twant(%v) \n\thave(%v)", want,
			step.Reward)
	}
	if env.Return() != FailureReward {
		t.Errorf("return \n\twant(%v) \n\thave(%v)", FailureReward,
			env.Return())
	}
	if len(body.forces) != 1 || body.advances != 1 {
		t.Errorf("collision step should not actuate \n\twant(1, 1) "+
			"\n\thave(%v, %v)", len(body.forces), body.advances)
	}
	if !env.Context().ResetOnNextEpisode {
		t.Error("collision should request a reset on the next episode")
	}

	// Wherever the agent ends up, the next episode starts at spawn
	body.position = r3.Vec{X: 3, Y: RestHeight, Z: -2}
	body.velocity = r3.Vec{X: 1, Z: 2}
	body.angular = r3.Vec{Y: 4}

	if _, err := env.Reset(); err != nil {
		t.Fatal(err)
	}
	if body.position != SpawnPosition {
		t.Errorf("position after reset \n\twant(%v) \n\thave(%v)",
			fmtVec(SpawnPosition), fmtVec(body.position))
	}
	if body.velocity != (r3.Vec{}) || body.angular != (r3.Vec{}) {
		t.Errorf("velocity after reset \n\twant(0, 0) \n\thave(%v, %v)",
			fmtVec(body.velocity), fmtVec(body.angular))
	}
	if env.Context() != (EpisodeContext{}) {
		t.Errorf("context after reset \n\twant(%+v) \n\thave(%+v)",
			EpisodeContext{}, env.Context())
	}
	placement := env.Placement()
	if !placement.Teleported || !placement.Resampled {
		t.Errorf("placement \n\twant(teleported, resampled) \n\thave(%+v)",
			placement)
	}
}

func TestFallTeleports(t *testing.T) {
	env, body, _ := newTestEnv(1000, 4)

	body.moveTo(r3.Vec{X: 0, Y: -0.2, Z: -5.5})
	step, done, err := env.Step(south)
	if err != nil {
		t.Fatal(err)
	}
	if !done || step.EndType() != ts.Failure || env.Outcome() != Fell {
		t.Errorf("episode end \n\twant(true, %v, %v) \n\thave(%v, %v, %v)",
			ts.Failure, Fell, done, step.EndType(), env.Outcome())
	}
	if step.Reward != FailureReward {
		t.Errorf("reward \n\twant(%v) \n\thave(%v)", FailureReward,
			step.Reward)
	}

	if _, err := env.Reset(); err != nil {
		t.Fatal(err)
	}
	if body.position != SpawnPosition || !env.Placement().Teleported {
		t.Errorf("agent should be teleported to spawn after falling, "+
			"have(%v)", fmtVec(body.position))
	}
}

func TestResetKeepsAgent(t *testing.T) {
	env, body, _ := newTestEnv(1000, 5)

	moved := r3.Vec{X: 3, Y: RestHeight, Z: 4.5}
	body.moveTo(moved)
	body.velocity = r3.Vec{X: 0.5}
	if _, _, err := env.Step(noop); err != nil {
		t.Fatal(err)
	}

	step, err := env.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if body.position != moved || env.Placement().Teleported {
		t.Errorf("agent position after reset \n\twant(%v) \n\thave(%v)",
			fmtVec(moved), fmtVec(body.position))
	}
	if step.Observation.AtVec(AgentVelocityX) != 0.5 {
		t.Errorf("agent velocity after reset \n\twant(0.5) \n\thave(%v)",
			step.Observation.AtVec(AgentVelocityX))
	}
	if env.Return() != 0 || env.Outcome() != Running {
		t.Errorf("task state after reset \n\twant(0, %v) \n\thave(%v, %v)",
			Running, env.Return(), env.Outcome())
	}
}

func TestResetClassifiesPendingContacts(t *testing.T) {
	env, body, _ := newTestEnv(1, 6)

	// The wall is touched on the step which times the episode out
	pressed := r3.Vec{X: 0, Y: SpawnPosition.Y, Z: Obstacle.Z.Min - 0.2}
	body.moveTo(pressed)
	body.contacts = []Contact{{Other: WallName, Normal: r3.Vec{Z: -1}}}
	step, done, err := env.Step(north)
	if err != nil {
		t.Fatal(err)
	}
	if !done || step.EndType() != ts.Timeout || env.Outcome() != TimedOut {
		t.Fatalf("end \n\twant(true, %v, %v) \n\thave(%v, %v, %v)",
			ts.Timeout, TimedOut, done, step.EndType(), env.Outcome())
	}

	if _, err := env.Reset(); err != nil {
		t.Fatal(err)
	}
	if body.position != SpawnPosition || !env.Placement().Teleported {
		t.Errorf("position after reset \n\twant(%v, teleported) "+
			"\n\thave(%v, %v)", fmtVec(SpawnPosition), fmtVec(body.position),
			env.Placement().Teleported)
	}
	if env.Context().ResetOnNextEpisode {
		t.Error("reset request should be consumed by the new episode")
	}

	// The contact must not end the new episode as a collision
	step, _, err = env.Step(noop)
	if err != nil {
		t.Fatal(err)
	}
	if env.Outcome() == HitWall || step.EndType() == ts.Failure {
		t.Error("contacts of a previous episode ended the new episode")
	}
}

func TestStepErrors(t *testing.T) {
	env, body, _ := newTestEnv(1000, 7)

	for _, n := range []int{1, 4} {
		if _, _, err := env.Step(mat.NewVecDense(n, nil)); err == nil {
			t.Errorf("expected error for action of length %v", n)
		}
	}

	body.moveTo(r3.Vec{Y: -1})
	if _, done, err := env.Step(noop); err != nil || !done {
		t.Fatalf("fall step: done %v, err %v", done, err)
	}
	if _, _, err := env.Step(noop); err == nil {
		t.Error("expected error when stepping after the last step")
	}
}

func TestActionClipping(t *testing.T) {
	env, body, _ := newTestEnv(1000, 8)

	if _, _, err := env.Step(mat.NewVecDense(2, []float64{5, -5})); err != nil {
		t.Fatal(err)
	}

	want := r3.Vec{X: ForceMultiplier, Z: -ForceMultiplier}
	if len(body.forces) != 1 || body.forces[0] != want {
		t.Errorf("clipped force \n\twant([%v]) \n\thave(%v)", fmtVec(want),
			body.forces)
	}
}

func TestJumpGating(t *testing.T) {
	env, body, _ := newTestEnv(1000, 9)

	step, _, err := env.Step(jump)
	if err != nil {
		t.Fatal(err)
	}
	if len(body.impulses) != 1 {
		t.Fatalf("impulses after jump \n\twant(1) \n\thave(%v)",
			len(body.impulses))
	}
	if step.Observation.AtVec(AgentGrounded) != 0 {
		t.Error("agent should not be grounded after jumping")
	}

	// No jumping in mid-air
	body.contacts = []Contact{{Other: GroundTag, Tag: GroundTag,
		Normal: r3.Vec{Y: 1}}}
	if _, _, err := env.Step(jump); err != nil {
		t.Fatal(err)
	}
	if len(body.impulses) != 1 {
		t.Errorf("impulses in mid-air \n\twant(1) \n\thave(%v)",
			len(body.impulses))
	}

	// The landing is classified on the next step, which can jump again
	step, _, err = env.Step(jump)
	if err != nil {
		t.Fatal(err)
	}
	if len(body.impulses) != 2 {
		t.Errorf("impulses after landing \n\twant(2) \n\thave(%v)",
			len(body.impulses))
	}
}

func TestTimeout(t *testing.T) {
	env, _, _ := newTestEnv(5, 10)

	var step ts.TimeStep
	for i := 1; i <= 5; i++ {
		var done bool
		var err error
		step, done, err = env.Step(noop)
		if err != nil {
			t.Fatal(err)
		}
		if done != (i == 5) {
			t.Fatalf("step %v: done \n\twant(%v) \n\thave(%v)", i, i == 5,
				done)
		}
	}

	if step.EndType() != ts.Timeout || env.Outcome() != TimedOut {
		t.Errorf("end \n\twant(%v, %v) \n\thave(%v, %v)", ts.Timeout,
			TimedOut, step.EndType(), env.Outcome())
	}
	if !scalar.EqualWithinAbs(env.Return(), -5*StepCost, tol) {
		t.Errorf("return \n\twant(%v) \n\thave(%v)", -5*StepCost,
			env.Return())
	}
}

func TestResampledGoalsDeterministic(t *testing.T) {
	env1, _, _ := newTestEnv(1000, 11)
	env2, _, _ := newTestEnv(1000, 11)

	for i := 0; i < 20; i++ {
		if _, err := env1.Reset(); err != nil {
			t.Fatal(err)
		}
		if _, err := env2.Reset(); err != nil {
			t.Fatal(err)
		}

		if env1.Goals() != env2.Goals() {
			t.Fatalf("episode %v: goals differ with equal seeds", i)
		}

		goals := env1.Goals()
		dist := r3.Norm(r3.Sub(goals[0].Position, goals[1].Position))
		if dist < MinGoalSeparation {
			t.Errorf("episode %v: goal separation %v < %v", i, dist,
				MinGoalSeparation)
		}
	}
}

func TestNewErrors(t *testing.T) {
	task := NewTouchGoals(NewSpawnStarter(1), 10, ReachDistance)
	body := newFakeBody(SpawnPosition)

	if _, _, err := NewWithBody(nil, body, 0.9, 1, DefaultParams()); err == nil {
		t.Error("expected error for nil task")
	}
	if _, _, err := NewWithBody(task, nil, 0.9, 1, DefaultParams()); err == nil {
		t.Error("expected error for nil body")
	}
	for _, discount := range []float64{-0.1, 1.1} {
		if _, _, err := NewWithBody(task, body, discount, 1,
			DefaultParams()); err == nil {
			t.Errorf("expected error for discount %v", discount)
		}
	}
}

func TestSpecs(t *testing.T) {
	env, _, _ := newTestEnv(1000, 12)

	if have := env.ObservationSpec().Shape.Len(); have != ObservationDims {
		t.Errorf("observation spec \n\twant(%v) \n\thave(%v)",
			ObservationDims, have)
	}
	if have := env.ActionSpec().Shape.Len(); have != ActionDims {
		t.Errorf("action spec \n\twant(%v) \n\thave(%v)", ActionDims, have)
	}
	if have := env.DiscountSpec().LowerBound.AtVec(0); have != 0.99 {
		t.Errorf("discount spec \n\twant(0.99) \n\thave(%v)", have)
	}
}

// runUntilDone steps env with action a until the episode ends
func runUntilDone(t *testing.T, env *RollerWall, a *mat.VecDense,
	maxSteps int) ts.TimeStep {
	t.Helper()

	for i := 0; i < maxSteps; i++ {
		step, done, err := env.Step(a)
		if err != nil {
			t.Fatal(err)
		}
		if done {
			return step
		}
	}
	t.Fatalf("episode did not end within %v steps", maxSteps)
	return ts.TimeStep{}
}

func newPhysicsEnv(t *testing.T, cutoff int) *RollerWall {
	t.Helper()

	logger, _ := newTestLogger()
	params := DefaultParams()
	params.Logger = logger

	task := NewTouchGoals(NewSpawnStarter(1), cutoff, ReachDistance)
	env, _, err := New(task, 0.99, 1, params)
	if err != nil {
		t.Fatal(err)
	}
	return env
}

func TestPhysicsWallCollision(t *testing.T) {
	env := newPhysicsEnv(t, 0)

	step := runUntilDone(t, env, north, 500)
	if env.Outcome() != HitWall || step.EndType() != ts.Failure {
		t.Fatalf("end \n\twant(%v, %v) \n\thave(%v, %v)", HitWall,
			ts.Failure, env.Outcome(), step.EndType())
	}
	if !env.Context().ResetOnNextEpisode {
		t.Error("collision should request a reset on the next episode")
	}

	if _, err := env.Reset(); err != nil {
		t.Fatal(err)
	}
	if pos := env.Agent().Position; pos != SpawnPosition {
		t.Errorf("position after reset \n\twant(%v) \n\thave(%v)",
			fmtVec(SpawnPosition), fmtVec(pos))
	}
}

func TestPhysicsWallContactOnLastStep(t *testing.T) {
	// Find the step on which rolling north first touches the wall
	env := newPhysicsEnv(t, 0)
	step := runUntilDone(t, env, north, 500)
	if env.Outcome() != HitWall {
		t.Fatalf("outcome \n\twant(%v) \n\thave(%v)", HitWall, env.Outcome())
	}
	contactStep := step.Number - 1

	// End every episode on that step
	env = newPhysicsEnv(t, contactStep)
	for episode := 0; episode < 4; episode++ {
		step := runUntilDone(t, env, north, 500)
		if episode == 0 && (env.Outcome() != TimedOut ||
			step.Number != contactStep) {
			t.Fatalf("first episode \n\twant(%v at %v) \n\thave(%v at %v)",
				TimedOut, contactStep, env.Outcome(), step.Number)
		}
		outcome := env.Outcome()

		if _, err := env.Reset(); err != nil {
			t.Fatal(err)
		}
		if outcome == Success {
			continue
		}
		if pos := env.Agent().Position; pos != SpawnPosition ||
			!env.Placement().Teleported {
			t.Errorf("episode %v: position after reset \n\twant(%v) "+
				"\n\thave(%v)", episode, fmtVec(SpawnPosition), fmtVec(pos))
		}
	}
}

func TestPhysicsFall(t *testing.T) {
	env := newPhysicsEnv(t, 0)

	step := runUntilDone(t, env, south, 500)
	if env.Outcome() != Fell || step.EndType() != ts.Failure {
		t.Fatalf("end \n\twant(%v, %v) \n\thave(%v, %v)", Fell,
			ts.Failure, env.Outcome(), step.EndType())
	}
	if env.Return() != FailureReward {
		t.Errorf("return \n\twant(%v) \n\thave(%v)", FailureReward,
			env.Return())
	}

	if _, err := env.Reset(); err != nil {
		t.Fatal(err)
	}
	if pos := env.Agent().Position; pos != SpawnPosition {
		t.Errorf("position after reset \n\twant(%v) \n\thave(%v)",
			fmtVec(SpawnPosition), fmtVec(pos))
	}
}

func TestPhysicsJumpLands(t *testing.T) {
	env := newPhysicsEnv(t, 0)

	step, _, err := env.Step(jump)
	if err != nil {
		t.Fatal(err)
	}
	if step.Observation.AtVec(AgentY) <= RestHeight {
		t.Fatalf("agent did not leave the ground: y = %v",
			step.Observation.AtVec(AgentY))
	}

	for i := 0; i < 200; i++ {
		step, _, err = env.Step(noop)
		if err != nil {
			t.Fatal(err)
		}
		if step.Observation.AtVec(AgentGrounded) == 1 {
			if y := step.Observation.AtVec(AgentY); y != RestHeight {
				t.Errorf("height after landing \n\twant(%v) \n\thave(%v)",
					RestHeight, y)
			}
			return
		}
	}
	t.Error("agent never landed after jumping")
}

func TestRender(t *testing.T) {
	env, _, _ := newTestEnv(1000, 13)
	filename := filepath.Join(t.TempDir(), "arena.png")

	if err := env.Render(filename); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(filename)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("rendered image is empty")
	}

	missing := filepath.Join(t.TempDir(), "missing", "arena.png")
	if err := env.Render(missing); err == nil {
		t.Error("expected error rendering into a missing directory")
	}
}
