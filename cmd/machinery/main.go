// Command machinery drives a fleet of docker-machine-hosted VMs through
// their declared lifecycle: create, init, join, halt, destroy.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/efrecon/machinery/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "machinery",
	Short: "Drive a cluster of docker-machine-hosted VMs through its lifecycle",
	Long: `Machinery reads one YAML cluster specification and drives the
VMs it describes through create, init, Swarm join, and teardown, using
docker-machine, docker, and docker-compose as external tools.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"machinery version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringP("file", "f", "cluster.yml", "Path to the cluster YAML file")
	rootCmd.PersistentFlags().String("driver", "", "Default driver override (falls back to the YAML's own default)")
	rootCmd.PersistentFlags().String("prefix", "", "Discovery cache variable prefix (default MACHINERY)")
	rootCmd.PersistentFlags().StringArray("cache-hint", nil, "Image caching hint PATTERN=BOOL, first match wins (repeatable)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(haltCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(reinitCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(sshCmd)
	rootCmd.AddCommand(psCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(forallCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(swarmCmd)
	rootCmd.AddCommand(stackCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(packCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
