// Package environment outlines the interfaces and structs needed to implement
// concrete environments
package environment

import (
	ts "github.com/samuelfneumann/rollerwall/timestep"
	"gonum.org/v1/gonum/mat"
)

// Starter implements a distribution of starting states and samples starting
// states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when an episode should end. If End returns true,
// the argument TimeStep is modified so that its StepType is
// timestep.Last and its EndType describes why the episode ended.
type Ender interface {
	End(*ts.TimeStep) bool
}

// Task implements the reward scheme for taking actions in some
// environment as well as the conditions under which episodes end
type Task interface {
	Starter
	Ender
	GetReward(state, action, nextState mat.Vector) float64
	AtGoal(state mat.Matrix) bool
	RewardSpec() Spec
	Min() float64
	Max() float64
}

// Environment implements a simualted environment, which includes a Task to
// complete
type Environment interface {
	Task
	Reset() (ts.TimeStep, error)
	Step(action *mat.VecDense) (ts.TimeStep, bool, error)
	CurrentTimeStep() ts.TimeStep
	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec
}
