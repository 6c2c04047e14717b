package experiment

import (
	"errors"
	"fmt"

	"github.com/samuelfneumann/rollerwall/agent"
	env "github.com/samuelfneumann/rollerwall/environment"
	"github.com/samuelfneumann/rollerwall/experiment/checkpointer"
	"github.com/samuelfneumann/rollerwall/experiment/tracker"
	ts "github.com/samuelfneumann/rollerwall/timestep"
	"github.com/samuelfneumann/rollerwall/utils/progressbar"
)

// Online is an Experiment that runs an agent online only. No offline
// evaluation is performed.
type Online struct {
	env.Environment
	agent.Agent
	maxSteps      uint
	currentSteps  uint
	episodes      int
	started       bool
	trackers      []tracker.Tracker
	checkpointers []checkpointer.Checkpointer
	progBar       *progressbar.ManualProgressBar
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The steps parameter determines how
// many timesteps the experiment is run for, the t parameter is a
// slice of tracker.Tracker which determine what data is saved, and
// the c parameter is a slice of checkpointer.Checkpointer which
// periodically save snapshots of the experiment.
func NewOnline(e env.Environment, a agent.Agent, steps uint,
	t []tracker.Tracker, c []checkpointer.Checkpointer) *Online {
	return &Online{
		Environment:   e,
		Agent:         a,
		maxSteps:      steps,
		trackers:      t,
		checkpointers: c,
	}
}

// SetProgressBar sets a progress bar which is advanced on every
// timestep and shows the return of the last finished episode
func (o *Online) SetProgressBar(p *progressbar.ManualProgressBar) {
	o.progBar = p
}

// Register registers a tracker.Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// AddCheckpointer adds a checkpointer.Checkpointer to the experiment
func (o *Online) AddCheckpointer(c checkpointer.Checkpointer) {
	o.checkpointers = append(o.checkpointers, c)
}

// Steps returns the number of timesteps run so far
func (o *Online) Steps() uint {
	return o.currentSteps
}

// Episodes returns the number of episodes which have finished
func (o *Online) Episodes() int {
	return o.episodes
}

// RunEpisode runs a single episode of the experiment
func (o *Online) RunEpisode() (bool, error) {
	// The first episode starts from the environment's initial state
	step := o.Environment.CurrentTimeStep()
	if o.started || !step.First() {
		var err error
		if step, err = o.Environment.Reset(); err != nil {
			return true, fmt.Errorf("runEpisode: could not reset: %w", err)
		}
	}
	o.started = true

	if err := o.Agent.ObserveFirst(step); err != nil {
		return true, fmt.Errorf("runEpisode: %w", err)
	}
	o.track(step)

	var ret float64
	var err error
	for !step.Last() && o.currentSteps < o.maxSteps {
		o.currentSteps++

		// Select action, step in environment
		action := o.Agent.SelectAction(step)
		step, _, err = o.Environment.Step(action)
		if err != nil {
			return true, fmt.Errorf("runEpisode: %w", err)
		}
		ret += step.Reward

		// Cache the environment step in each Tracker
		o.track(step)

		// Observe the timestep and step the agent
		if err := o.Agent.Observe(action, step); err != nil {
			return true, fmt.Errorf("runEpisode: %w", err)
		}
		if err := o.Agent.Step(); err != nil {
			return true, fmt.Errorf("runEpisode: %w", err)
		}

		if err := o.checkpoint(step); err != nil {
			return true, fmt.Errorf("runEpisode: %w", err)
		}

		if o.progBar != nil {
			o.progBar.Increment()
			if step.Last() {
				o.progBar.SetSuffix(fmt.Sprintf("episode %v: %.3f (%v)",
					o.episodes+1, ret, step.EndType()))
			}
			o.progBar.Display()
		}
	}

	if step.Last() {
		o.episodes++
	}
	o.Agent.EndEpisode()

	// Return whether or not the max timestep limit has been reached
	return o.currentSteps >= o.maxSteps, nil
}

// Run runs the entire experiment for all timesteps
func (o *Online) Run() error {
	for ended := o.currentSteps >= o.maxSteps; !ended; {
		var err error
		if ended, err = o.RunEpisode(); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}

	if o.progBar != nil {
		o.progBar.Close()
	}
	return nil
}

// Save saves the data cached by the Trackers to disk. Every Tracker is
// saved even if saving an earlier one fails.
func (o *Online) Save() error {
	var errs []error
	for _, t := range o.trackers {
		if err := t.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// track tracks the current timestep by caching its data in each Tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tr := range o.trackers {
		tr.Track(t)
	}
}

// checkpoint sends the current timestep to each Checkpointer
func (o *Online) checkpoint(t ts.TimeStep) error {
	for _, c := range o.checkpointers {
		if err := c.Checkpoint(t); err != nil {
			return err
		}
	}
	return nil
}
