package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rds",
		Short: "RDS — database engine fleet manager",
		Long:  "RDS manages a host's database engines as one unit: lifecycle actions, interactive connect, and backup/restore with retention.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newLifecycleCmd("start", "Start one engine, or all engines"))
	cmd.AddCommand(newLifecycleCmd("stop", "Stop one engine, or all engines"))
	cmd.AddCommand(newLifecycleCmd("restart", "Restart one engine, or all engines"))
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConnectCmd())
	cmd.AddCommand(newBackupCmd())
	cmd.AddCommand(newRestoreCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newPasswdCmd())
	cmd.AddCommand(newHistoryCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rds %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
