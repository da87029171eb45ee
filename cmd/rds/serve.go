package main

import (
	"github.com/spf13/cobra"
	"github.com/zulandar/rds/internal/sched"
	"github.com/zulandar/rds/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		withSched  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the control-plane HTTP server",
		Long:  "Serves the dashboard and API. With --sched, backup schedules also fire in-process; without it, scheduling is left to the system supervisor's timers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(configPath)
			if err != nil {
				return err
			}

			password, err := app.cfg.Server.ReadPassword()
			if err != nil {
				return err
			}

			if withSched {
				s, err := sched.New(app.reg, app.mgr, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				s.Start()
				defer s.Stop()
			}

			var history server.History
			if app.st != nil {
				history = app.st
			}
			return server.Start(cmd.Context(), server.Opts{
				Registry:       app.reg,
				Actions:        app.disp,
				Backups:        app.mgr,
				History:        history,
				Host:           app.cfg.Server.Host,
				Port:           app.cfg.Server.Port,
				AuthUser:       app.cfg.Server.AuthUser,
				Password:       password,
				AllowedOrigins: app.cfg.Server.AllowedOrigins,
				Out:            cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to RDS config file")
	cmd.Flags().BoolVar(&withSched, "sched", false, "fire backup schedules in-process")
	return cmd
}
