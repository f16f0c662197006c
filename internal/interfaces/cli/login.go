package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCommand(a *app) *cobra.Command {
	var headless bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Open the browser and log in to the portal only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var override *bool
			if cmd.Flags().Changed("headless") {
				override = &headless
			}
			svc, shutdown, err := a.service(cmd.Context(), override)
			if err != nil {
				return err
			}
			defer a.shutdown(cmd.Context(), shutdown)

			if err := svc.CheckLogin(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&headless, "headless", false, "Run the browser without a window")
	return cmd
}
