// Package random implements an agent which selects continuous actions
// uniformly at random
package random

import (
	"fmt"

	"github.com/samuelfneumann/rollerwall/environment"
	"github.com/samuelfneumann/rollerwall/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Random implements a uniform random policy over the bounds of an
// environment's action specification. Random does not learn, so its
// Learner methods do nothing.
type Random struct {
	dist       *distmv.Uniform
	actionDims int
	eval       bool
}

// New returns a new Random agent for the environment env
func New(env environment.Environment, seed uint64) (*Random, error) {
	spec := env.ActionSpec()
	if spec.Cardinality != environment.Continuous {
		return nil, fmt.Errorf("new: random agent requires continuous " +
			"actions")
	}

	dist := distmv.NewUniform(spec.Bounds(), rand.NewSource(seed))
	return &Random{dist: dist, actionDims: spec.Shape.Len()}, nil
}

// SelectAction samples an action uniformly at random
func (r *Random) SelectAction(_ timestep.TimeStep) *mat.VecDense {
	return mat.NewVecDense(r.actionDims, r.dist.Rand(nil))
}

// Eval sets the agent to evaluation mode
func (r *Random) Eval() { r.eval = true }

// Train sets the agent to training mode
func (r *Random) Train() { r.eval = false }

// IsEval returns whether the agent is in evaluation mode
func (r *Random) IsEval() bool { return r.eval }

// Step performs no update
func (r *Random) Step() error { return nil }

// Observe ignores the transition
func (r *Random) Observe(mat.Vector, timestep.TimeStep) error { return nil }

// ObserveFirst ignores the first timestep of an episode
func (r *Random) ObserveFirst(timestep.TimeStep) error { return nil }

// EndEpisode does nothing
func (r *Random) EndEpisode() {}
