// Package checkpointer implements Checkpointers, which periodically
// save snapshots of an experiment
package checkpointer

import ts "github.com/samuelfneumann/rollerwall/timestep"

// Saver is an object that can save a snapshot of itself to a file,
// such as a rendering of an environment
type Saver interface {
	Save(filename string) error
}

// SaverFunc adapts a function to the Saver interface. For example,
// the Render method of an environment is a SaverFunc:
//
//	SaverFunc(env.Render)
type SaverFunc func(filename string) error

// Save calls f(filename)
func (f SaverFunc) Save(filename string) error {
	return f(filename)
}

// Checkpointer checkpoints/saves objects based on timestep.TimeSteps
type Checkpointer interface {
	Checkpoint(ts.TimeStep) error
}
