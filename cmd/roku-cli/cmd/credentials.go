package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/roku-cli/internal/service/workflow"
)

func newCreateSigningCredentialsCommand(a *app) *cobra.Command {
	opts := new(workflow.CreateOptions)

	cmd := &cobra.Command{
		Use:   "create-signing-credentials",
		Short: "Generate a developer key on the device and save it as a signing bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Device = a.overrides()

			a.printer.Info("Generating a new developer key on the device")

			dir, err := a.service.CreateSigningCredentials(cmd.Context(), opts)
			if err != nil {
				return err
			}

			a.printer.Success("Signing credentials written to %s", dir)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.OutputPath, "output", "o", "./", "directory for the signing bundle")
	flags.StringVarP(&opts.PackageName, "name", "n", workflow.DefaultPackageName, "package name without extension")
	flags.StringVar(&opts.SigningProjectPath, "signing-project", "", "channel project to sign instead of the built-in one")

	return cmd
}
