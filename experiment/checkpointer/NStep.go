package checkpointer

import (
	"fmt"

	ts "github.com/samuelfneumann/rollerwall/timestep"
)

// nStep implements checkpointing every N timesteps of an experiment
type nStep struct {
	interval int
	steps    int
	object   Saver // Object to save

	// filename returns the string filename of the file to save the object
	// in.
	//
	// If each snapshot should be saved in a separate file with each file
	// having an incremented number as a suffix (e.g. arena1.png,
	// arena2.png, ..., arenaK.png), then simply use the static function
	// FilenameEnumerator, which will return a function that will
	// enumerate filenames.
	//
	// Otherwise, if each snapshot should be saved in a separate file,
	// but the filename does not matter, use the static function
	// FileTimer to generate the required naming function. For example:
	//
	// n := NewNStep(10, object, FileTimer("arena", ".png"))
	filename func() string
}

// NewNStep returns a checkpointer that checkpoints every n timesteps.
// Timesteps are counted across episodes.
func NewNStep(n int, object Saver, filename func() string) (Checkpointer,
	error) {
	if n < 1 {
		return nil, fmt.Errorf("newNStep: interval must be positive, "+
			"have(%v)", n)
	}

	return &nStep{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint checkpoints the Checkpointer's tracked object by calling
// its Save() method on every n-th call
func (n *nStep) Checkpoint(t ts.TimeStep) error {
	n.steps++
	if n.steps%n.interval == 0 {
		if err := n.object.Save(n.filename()); err != nil {
			return fmt.Errorf("checkpoint: %w", err)
		}
	}
	return nil
}
