package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

func newConnectCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "connect <engine>",
		Short: "Open an interactive client session for one engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(configPath)
			if err != nil {
				return err
			}

			argv, env, err := app.disp.Resolve(args[0], "connect")
			if err != nil {
				return err
			}

			client := exec.CommandContext(cmd.Context(), argv[0], argv[1:]...)
			client.Env = append(os.Environ(), env...)
			client.Stdin = os.Stdin
			client.Stdout = os.Stdout
			client.Stderr = os.Stderr
			if err := client.Run(); err != nil {
				return fmt.Errorf("connect %s: %w", args[0], err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to RDS config file")
	return cmd
}
