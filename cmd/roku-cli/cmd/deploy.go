package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/roku-cli/internal/service/workflow"
)

func newDeployCommand(a *app) *cobra.Command {
	opts := new(workflow.DeployOptions)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Sideload a channel project to the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Device = a.overrides()

			a.printer.Info("Deploying %s", opts.ProjectPath)

			if err := a.service.Deploy(cmd.Context(), opts); err != nil {
				return err
			}

			a.printer.Success("Channel deployed from %s", opts.ProjectPath)

			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.ProjectPath, "path", "p", "", "channel project root")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}
