package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <file>",
		Short: "Write the dashboard password file",
		Long:  "Prompts for a password twice and writes it to the given file with mode 0600. Point the server's password_file (or RDS_DASHBOARD_PASSWORD_FILE) at it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			fmt.Fprint(out, "Password: ")
			first, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(out)
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			if len(first) == 0 {
				return fmt.Errorf("password must not be empty")
			}

			fmt.Fprint(out, "Repeat password: ")
			second, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(out)
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			if string(first) != string(second) {
				return fmt.Errorf("passwords do not match")
			}

			if err := os.WriteFile(args[0], append(first, '\n'), 0o600); err != nil {
				return fmt.Errorf("write %s: %w", args[0], err)
			}
			fmt.Fprintf(out, "Password written to %s\n", args[0])
			return nil
		},
	}
}
