// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either  first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType describes why an episode ended. Only TimeSteps with StepType
// Last carry a meaningful EndType.
type EndType int

const (
	// Unknown is the end type of any TimeStep which is not the last in
	// an episode
	Unknown EndType = iota

	// TerminalStateReached denotes that the task was completed
	TerminalStateReached

	// Failure denotes that a failure condition of the task was met
	Failure

	// Timeout denotes that the episode was cut off by a step limit
	Timeout
)

func (e EndType) String() string {
	switch e {
	case TerminalStateReached:
		return "TerminalStateReached"
	case Failure:
		return "Failure"
	case Timeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType
	Reward      float64
	Discount    float64
	Observation *mat.VecDense
	Number      int
	endType     EndType
}

// New returns a new TimeStep
func New(t StepType, r, d float64, o *mat.VecDense, n int) TimeStep {
	return TimeStep{
		StepType:    t,
		Reward:      r,
		Discount:    d,
		Observation: o,
		Number:      n,
	}
}

// SetEnd sets the ending type of the TimeStep
func (t *TimeStep) SetEnd(e EndType) {
	t.endType = e
}

// EndType returns the ending type of the TimeStep
func (t TimeStep) EndType() EndType {
	return t.endType
}

// First returns whether a TimeStep is the first in an environment
func (t TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t TimeStep) Last() bool {
	return t.StepType == Last
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.3f  |  Discount: %.2f  |  " +
		"Step Number:  %v  |  End: %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number,
		t.endType)
}
