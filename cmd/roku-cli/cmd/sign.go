package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/roku-cli/internal/service/workflow"
)

func newSignCommand(a *app) *cobra.Command {
	opts := new(workflow.SignOptions)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Rekey the device and produce a signed package of a channel project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Device = a.overrides()

			a.printer.Info("Rekeying device with %s and signing %s", opts.SigningPath, opts.ProjectPath)

			path, err := a.service.Sign(cmd.Context(), opts)
			if err != nil {
				return err
			}

			a.printer.Success("Signed package written to %s", path)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.ProjectPath, "path", "p", "", "channel project root")
	flags.StringVarP(&opts.SigningPath, "signing", "s", "", "signing bundle directory (package and credentials.json)")
	flags.StringVarP(&opts.OutputPath, "output", "o", "./", "directory for the signed package")
	flags.StringVarP(&opts.PackageName, "name", "n", workflow.DefaultPackageName, "signed package name without extension")

	_ = cmd.MarkFlagRequired("path")
	_ = cmd.MarkFlagRequired("signing")

	return cmd
}
