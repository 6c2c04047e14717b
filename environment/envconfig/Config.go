// Package envconfig provides configuration structs for configuring
// the RollerWall environment with default physical parameters and
// task. Environment configurations in this package are YAML
// serializable.
package envconfig

import (
	"fmt"
	"log"
	"os"

	env "github.com/samuelfneumann/rollerwall/environment"
	"github.com/samuelfneumann/rollerwall/environment/box2d/rollerwall"
	ts "github.com/samuelfneumann/rollerwall/timestep"
	"gopkg.in/yaml.v3"
)

// Config implements a specific configuration of the RollerWall
// environment and its TouchGoals task
type Config struct {
	ForceMultiplier    float64 `yaml:"force_multiplier"`
	JumpForce          float64 `yaml:"jump_force"`
	MaxSteps           int     `yaml:"max_steps"`
	Discount           float64 `yaml:"discount"`
	Seed               uint64  `yaml:"seed"`
	Substeps           int     `yaml:"substeps"`
	SampleAttempts     int     `yaml:"sample_attempts"`
	SeparationAttempts int     `yaml:"separation_attempts"`
	MinSeparation      float64 `yaml:"min_separation"`
	ReachDistance      float64 `yaml:"reach_distance"`
}

// Default returns the default environment Config
func Default() Config {
	return Config{
		ForceMultiplier:    rollerwall.ForceMultiplier,
		JumpForce:          rollerwall.JumpForce,
		MaxSteps:           1000,
		Discount:           0.99,
		Seed:               0,
		Substeps:           1,
		SampleAttempts:     rollerwall.SampleAttempts,
		SeparationAttempts: rollerwall.SeparationAttempts,
		MinSeparation:      rollerwall.MinGoalSeparation,
		ReachDistance:      rollerwall.ReachDistance,
	}
}

// Load reads a Config from the YAML file at path. Fields missing from
// the file keep their default values.
func Load(path string) (Config, error) {
	c := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("load: %w", err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("load: %v: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("load: %v: %w", path, err)
	}
	return c, nil
}

// Save writes the Config to path as YAML
func (c Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Validate returns an error if any field of the Config is illegal
func (c Config) Validate() error {
	switch {
	case c.ForceMultiplier < 0:
		return fmt.Errorf("validate: force_multiplier must be "+
			"non-negative, have(%v)", c.ForceMultiplier)
	case c.JumpForce < 0:
		return fmt.Errorf("validate: jump_force must be non-negative, "+
			"have(%v)", c.JumpForce)
	case c.MaxSteps < 0:
		return fmt.Errorf("validate: max_steps must be non-negative, "+
			"have(%v)", c.MaxSteps)
	case c.Discount < 0 || c.Discount > 1:
		return fmt.Errorf("validate: discount must be in [0, 1], "+
			"have(%v)", c.Discount)
	case c.Substeps < 1:
		return fmt.Errorf("validate: substeps must be positive, have(%v)",
			c.Substeps)
	case c.SampleAttempts < 1:
		return fmt.Errorf("validate: sample_attempts must be positive, "+
			"have(%v)", c.SampleAttempts)
	case c.SeparationAttempts < 1:
		return fmt.Errorf("validate: separation_attempts must be "+
			"positive, have(%v)", c.SeparationAttempts)
	case c.MinSeparation < 0:
		return fmt.Errorf("validate: min_separation must be "+
			"non-negative, have(%v)", c.MinSeparation)
	case c.ReachDistance <= 0:
		return fmt.Errorf("validate: reach_distance must be positive, "+
			"have(%v)", c.ReachDistance)
	}
	return nil
}

// Params returns the RollerWall parameters described by the Config.
// Placement concerns are reported to logger.
func (c Config) Params(logger *log.Logger) rollerwall.Params {
	return rollerwall.Params{
		ForceMultiplier:    c.ForceMultiplier,
		JumpForce:          c.JumpForce,
		SampleAttempts:     c.SampleAttempts,
		SeparationAttempts: c.SeparationAttempts,
		MinSeparation:      c.MinSeparation,
		Substeps:           c.Substeps,
		Logger:             logger,
	}
}

// Create returns the Box2D simulated RollerWall environment described
// by the Config as well as the first timestep of the environment
func (c Config) Create(logger *log.Logger) (*rollerwall.RollerWall,
	ts.TimeStep, error) {
	if err := c.Validate(); err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
	}

	task := rollerwall.NewTouchGoals(rollerwall.NewSpawnStarter(c.Seed),
		c.MaxSteps, c.ReachDistance)

	e, step, err := rollerwall.New(task, c.Discount, c.Seed,
		c.Params(logger))
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
	}
	return e, step, nil
}

// CreateEnv is like Create but returns the environment as an
// env.Environment
func (c Config) CreateEnv(logger *log.Logger) (env.Environment,
	ts.TimeStep, error) {
	e, step, err := c.Create(logger)
	if err != nil {
		return nil, ts.TimeStep{}, err
	}
	return e, step, nil
}
