package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/samuelfneumann/rollerwall/agent/manual"
	"github.com/samuelfneumann/rollerwall/environment/box2d/rollerwall"
	"github.com/samuelfneumann/rollerwall/environment/envconfig"
	"github.com/samuelfneumann/rollerwall/experiment"
	"github.com/samuelfneumann/rollerwall/experiment/checkpointer"
	"github.com/samuelfneumann/rollerwall/experiment/trackers"
	"github.com/samuelfneumann/rollerwall/utils/progressbar"
	"github.com/spf13/cobra"
)

// configEnvVar names the environment variable holding the path of the
// default config file
const configEnvVar = "ROLLERWALL_CONFIG"

// loadConfig loads the environment config named by the --config flag
// or ROLLERWALL_CONFIG, falling back to the default config. The
// --seed flag overrides the seed of the config when set.
func loadConfig(cmd *cobra.Command) (envconfig.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return envconfig.Config{}, err
	}
	if path == "" {
		path = os.Getenv(configEnvVar)
	}

	c := envconfig.Default()
	if path != "" {
		if c, err = envconfig.Load(path); err != nil {
			return envconfig.Config{}, err
		}
	}

	if cmd.Flags().Changed("seed") {
		if c.Seed, err = cmd.Flags().GetUint64("seed"); err != nil {
			return envconfig.Config{}, err
		}
	}
	return c, nil
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a uniform random agent online",
		RunE:  runExperiment,
	}
	cmd.Flags().Uint("steps", 10_000, "number of timesteps to run for")
	cmd.Flags().String("returns", "", "file to save episodic returns to")
	cmd.Flags().String("lengths", "", "file to save episode lengths to")
	cmd.Flags().String("log", "", "directory to write the episode log to")
	cmd.Flags().Int("snapshot-every", 0, "render the arena every this "+
		"many timesteps, 0 to disable")
	cmd.Flags().String("snapshot-dir", "snapshots", "directory to render "+
		"snapshots to")
	cmd.Flags().String("snapshot-naming", "count", "name snapshots by "+
		"\"count\" (arena1.png, arena2.png, ...) or by \"time\" saved")
	cmd.Flags().Bool("quiet", false, "do not display a progress bar")
	return cmd
}

// snapshotFilenames returns the naming function for arena snapshots
// saved with the given prefix
func snapshotFilenames(naming, prefix string) (func() string, error) {
	switch naming {
	case "count":
		return checkpointer.FilenameEnumerator(0, prefix, ".png"), nil
	case "time":
		return checkpointer.FileTimer(prefix, ".png"), nil
	default:
		return nil, fmt.Errorf("unknown snapshot naming %q, want count "+
			"or time", naming)
	}
}

func runExperiment(cmd *cobra.Command, args []string) error {
	c, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	flags := cmd.Flags()
	steps, _ := flags.GetUint("steps")
	returnsFile, _ := flags.GetString("returns")
	lengthsFile, _ := flags.GetString("lengths")
	logDir, _ := flags.GetString("log")
	snapshotEvery, _ := flags.GetInt("snapshot-every")
	snapshotDir, _ := flags.GetString("snapshot-dir")
	snapshotNaming, _ := flags.GetString("snapshot-naming")
	quiet, _ := flags.GetBool("quiet")

	conf := experiment.Config{
		Type:     experiment.OnlineExp,
		Agent:    experiment.Random,
		MaxSteps: steps,
		EnvConf:  c,
	}

	exp, env, err := conf.CreateExp(log.Default(), nil, nil)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	online := exp.(*experiment.Online)

	var returns *trackers.Return
	if returnsFile != "" {
		returns = trackers.NewReturn(returnsFile)
		online.Register(returns)
	}
	if lengthsFile != "" {
		online.Register(trackers.NewEpisodeLength(lengthsFile))
	}
	var episodeLog *trackers.EpisodeLog
	if logDir != "" {
		episodeLog = trackers.NewEpisodeLog(env, logDir)
		online.Register(episodeLog)
	}

	if snapshotEvery > 0 {
		if err := os.MkdirAll(snapshotDir, 0o755); err != nil {
			return fmt.Errorf("run: %w", err)
		}
		filename, err := snapshotFilenames(snapshotNaming,
			filepath.Join(snapshotDir, "arena"))
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		snapshots, err := checkpointer.NewNStep(snapshotEvery,
			checkpointer.SaverFunc(env.Render), filename)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		online.AddCheckpointer(snapshots)
	}

	if !quiet {
		online.SetProgressBar(progressbar.NewManualProgressBar(
			cmd.OutOrStdout(), 40, int(steps)))
	}

	if err := online.Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if err := online.Save(); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%v episodes finished in %v steps\n",
		online.Episodes(), online.Steps())
	if returns != nil {
		if r := returns.Returns(); len(r) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "mean return: %.3f\n", mean(r))
		}
	}
	if episodeLog != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "episode log: %v\n", episodeLog.Path())
	}
	return nil
}

// mean returns the mean of values
func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play RollerWall in the terminal",
		Long: "Play RollerWall in the terminal. Arrow keys or WASD roll " +
			"the agent, space jumps and Esc quits.",
		RunE: playGame,
	}
	cmd.Flags().Duration("tick", time.Second/time.Duration(rollerwall.FPS),
		"time between environment steps")
	cmd.Flags().Bool("mute", false, "do not play sounds")
	return cmd
}

func playGame(cmd *cobra.Command, args []string) error {
	c, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	tick, _ := cmd.Flags().GetDuration("tick")
	mute, _ := cmd.Flags().GetBool("mute")

	// Placement reports would draw over the screen
	env, _, err := c.Create(log.New(io.Discard, "", 0))
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}

	var cue *manual.Cue
	if !mute {
		if cue, err = manual.NewCue(); err != nil {
			// Non-fatal, the game can run without sound
			log.Printf("audio initialization failed: %v", err)
		}
		defer cue.Close()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	defer screen.Fini()

	game := manual.NewGame(screen, env, manual.New(), cue)
	if err := game.Run(tick); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the arena to a PNG file",
		RunE:  renderArena,
	}
	cmd.Flags().String("out", "arena.png", "file to render to")
	cmd.Flags().Int("episodes", 0, "number of episodes to begin before "+
		"rendering, each of which places new goals")
	return cmd
}

func renderArena(cmd *cobra.Command, args []string) error {
	c, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	out, _ := cmd.Flags().GetString("out")
	episodes, _ := cmd.Flags().GetInt("episodes")

	env, _, err := c.Create(log.Default())
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	for i := 0; i < episodes; i++ {
		if _, err := env.Reset(); err != nil {
			return fmt.Errorf("render: %w", err)
		}
	}

	if err := env.Render(out); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%v\n", env)
	return nil
}
