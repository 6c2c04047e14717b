// Package experiment implements functionality for running an experiment
package experiment

import (
	"fmt"
	"log"

	"github.com/samuelfneumann/rollerwall/agent"
	"github.com/samuelfneumann/rollerwall/agent/random"
	"github.com/samuelfneumann/rollerwall/environment/box2d/rollerwall"
	"github.com/samuelfneumann/rollerwall/environment/envconfig"
	"github.com/samuelfneumann/rollerwall/experiment/checkpointer"
	"github.com/samuelfneumann/rollerwall/experiment/tracker"
)

// Interface Experiment outlines structs that can run experiments.
// Experiments send each environment TimeStep to Trackers, which cache
// the data they need to be later saved to disk. The Save() function
// will then save all cached data to disk. This is usually performed
// after an experiment has been run. The Run() method will run all
// episodes until the maximum timestep limit is reached. The
// RunEpisode() function will run a single episode.
type Experiment interface {
	Run() error

	// RunEpisode returns whether or not the experiment's step limit
	// was reached
	RunEpisode() (bool, error)

	// Save all tracked data to disk
	Save() error

	// Adds a new tracker.Tracker to the (possibly already running)
	// experiment. Useful if you want to track data only after a
	// specified event.
	Register(t tracker.Tracker)
}

// Type is a type of experiment
type Type string

const (
	OnlineExp Type = "OnlineExperiment"
)

// AgentType is a type of agent that can be configured for an
// experiment
type AgentType string

const (
	Random AgentType = "Random"
)

// Config represents a configuration of an experiment.
type Config struct {
	Type     Type
	Agent    AgentType
	MaxSteps uint
	EnvConf  envconfig.Config
}

// CreateExp creates the experiment described by the Config, along
// with the environment it runs on. Placement concerns of the
// environment are reported to logger.
func (c Config) CreateExp(logger *log.Logger, t []tracker.Tracker,
	check []checkpointer.Checkpointer) (Experiment, *rollerwall.RollerWall,
	error) {
	env, _, err := c.EnvConf.Create(logger)
	if err != nil {
		return nil, nil, fmt.Errorf("createExp: could not create "+
			"environment: %w", err)
	}

	var a agent.Agent
	switch c.Agent {
	case Random:
		a, err = random.New(env, c.EnvConf.Seed)
	default:
		err = fmt.Errorf("no such agent type %v", c.Agent)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("createExp: could not create agent: %w",
			err)
	}

	switch c.Type {
	case OnlineExp:
		return NewOnline(env, a, c.MaxSteps, t, check), env, nil
	}

	return nil, nil, fmt.Errorf("createExp: no such experiment type %v",
		c.Type)
}
