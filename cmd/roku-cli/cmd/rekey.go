package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/roku-cli/internal/service/workflow"
)

func newRekeyCommand(a *app) *cobra.Command {
	opts := new(workflow.RekeyOptions)

	cmd := &cobra.Command{
		Use:   "rekey",
		Short: "Key the device to the developer identity of a signing bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Device = a.overrides()

			a.printer.Info("Rekeying device with %s", opts.SigningPath)

			if err := a.service.Rekey(cmd.Context(), opts); err != nil {
				return err
			}

			a.printer.Success("Device rekeyed with %s", opts.SigningPath)

			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.SigningPath, "signing", "s", "", "signing bundle directory (package and credentials.json)")
	_ = cmd.MarkFlagRequired("signing")

	return cmd
}
