package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newLifecycleCmd builds the start/stop/restart commands. With no engine
// argument the action applies to every registered engine, best-effort.
func newLifecycleCmd(action, short string) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   action + " [engine]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(configPath)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return runOne(cmd, app, action, args[0])
			}
			return runAll(cmd, app, action)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to RDS config file")
	return cmd
}

func runOne(cmd *cobra.Command, app *app, action, engine string) error {
	if _, err := app.disp.Dispatch(cmd.Context(), engine, action); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: ok\n", action, engine)
	return nil
}

func runAll(cmd *cobra.Command, app *app, action string) error {
	results := app.disp.DispatchAll(cmd.Context(), action)
	out := cmd.OutOrStdout()

	var failed []string
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r.Engine)
			fmt.Fprintf(out, "%s %s: %v\n", action, r.Engine, r.Err)
			continue
		}
		fmt.Fprintf(out, "%s %s: ok\n", action, r.Engine)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%s failed for %d of %d engines: %s",
			action, len(failed), len(results), strings.Join(failed, ", "))
	}
	return nil
}

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status [engine]",
		Short: "Show engine status, one line per engine",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(configPath)
			if err != nil {
				return err
			}

			engines := app.reg.Names()
			if len(args) == 1 {
				if _, err := app.reg.Get(args[0]); err != nil {
					return err
				}
				engines = args[:1]
			}

			out := cmd.OutOrStdout()
			for _, name := range engines {
				state := app.disp.Status(cmd.Context(), name)
				fmt.Fprintf(out, "%-20s %s\n", name, state)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to RDS config file")
	return cmd
}
