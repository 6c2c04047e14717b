// Command rollerwall runs, plays and renders the RollerWall
// environment
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	for _, envFile := range []string{".env", "../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	if err := newRootCmd().Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

// newRootCmd returns the rollerwall command with all its subcommands
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rollerwall",
		Short:         "Run, play and render the RollerWall environment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "environment config "+
		"file (default $"+configEnvVar+")")
	rootCmd.PersistentFlags().Uint64("seed", 0, "seed of the environment "+
		"and agent, overrides the config")

	rootCmd.AddCommand(newRunCmd(), newPlayCmd(), newRenderCmd())
	return rootCmd
}
