// Command zgres is the per-node failover agent's entry point: the
// "run" subcommand wires the Capability Registry's default providers
// (etcd DCS adapter, PostgreSQL controller, hostname identity, static
// conn-info, oldest-willing-replica ranker) and hands off to
// internal/agent's App, following cmd/lind's root/subcommand shape.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/viki00/zgres/config"
)

const currentDir = "./"

var (
	cfg string
)

var rootCmd = &cobra.Command{
	Use:   "zgres",
	Short: "zgres is a failover agent for a replicated PostgreSQL cluster",
}

func init() {
	rootCmd.AddCommand(newRunCmd(), newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the agent version",
		RunE: func(*cobra.Command, []string) error {
			fmt.Println(config.Version)
			return nil
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
