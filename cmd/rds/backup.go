package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBackupCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "backup <engine>",
		Short: "Create a backup of one engine's data directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(configPath)
			if err != nil {
				return err
			}
			rec, err := app.mgr.Backup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", rec.ID)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to RDS config file")
	cmd.AddCommand(newBackupListCmd(&configPath))
	return cmd
}

func newBackupListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list <engine>",
		Short: "List an engine's backups, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			recs, err := app.mgr.List(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, rec := range recs {
				fmt.Fprintf(out, "%s\n", rec.ID)
			}
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "restore <engine> <id>",
		Short: "Restore one engine's data directory from a backup",
		Long:  "Restore extracts the named archive over the engine's data directory. Stop the engine first; restoring over a running engine produces undefined results.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(configPath)
			if err != nil {
				return err
			}
			res, err := app.mgr.Restore(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Warning != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", res.Warning)
			}
			fmt.Fprintf(out, "restored %s from %s\n", args[0], res.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to RDS config file")
	return cmd
}
