package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history [engine]",
		Short: "Show recent operations from the audit log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(configPath)
			if err != nil {
				return err
			}
			if app.st == nil {
				return fmt.Errorf("history requires server.audit_db to be configured")
			}

			engine := ""
			if len(args) == 1 {
				if _, err := app.reg.Get(args[0]); err != nil {
					return err
				}
				engine = args[0]
			}

			recs, err := app.st.Recent(engine, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range recs {
				fmt.Fprintf(out, "%s  %-16s %-8s %-6s %s\n",
					r.StartedAt.Format(time.RFC3339), r.Engine, r.Action, r.Status, r.Detail)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to RDS config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "max records to show (default 50)")
	return cmd
}
