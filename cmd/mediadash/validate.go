package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Lint the configuration and exit non-zero on errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			issues, failed := lint(c.cfg)
			out := cmd.OutOrStdout()
			for _, iss := range issues {
				fmt.Fprintln(out, iss.Error())
			}
			if failed {
				return fmt.Errorf("configuration is invalid")
			}
			fmt.Fprintln(out, "configuration is valid")
			return nil
		},
	}
}
