package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/oshokin/roku-cli/internal/config"
	"github.com/oshokin/roku-cli/internal/console"
	"github.com/oshokin/roku-cli/internal/logger"
	"github.com/oshokin/roku-cli/internal/remote/installer"
	"github.com/oshokin/roku-cli/internal/remote/shell"
	"github.com/oshokin/roku-cli/internal/repository/bundle"
	"github.com/oshokin/roku-cli/internal/service/keygen"
	"github.com/oshokin/roku-cli/internal/service/workflow"
	"github.com/oshokin/roku-cli/internal/version"
)

// defaultEnvFile is the dotenv file read from the working directory when present.
const defaultEnvFile = ".env"

var errUnknownLogLevel = errors.New("unknown log level")

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	device     string
	username   string
	password   string
	configPath string
	envFile    string
	logLevel   string
}

// app carries the state built once flags are parsed.
type app struct {
	flags   rootFlags
	lookup  config.LookupFunc
	printer *console.Printer
	service *workflow.Service
}

// Execute runs the roku-cli CLI and exits with non-zero status on error.
func Execute() {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	err := newRootCommand(os.LookupEnv, os.Stdout).ExecuteContext(ctx)

	stop()

	if err != nil {
		console.New(os.Stderr).Error(err)
		os.Exit(1)
	}
}

// newRootCommand builds the command tree. Device properties missing from the
// flags are read through lookup.
func newRootCommand(lookup config.LookupFunc, stdout io.Writer) *cobra.Command {
	a := &app{lookup: lookup}

	root := &cobra.Command{
		Use:           "roku-cli",
		Short:         "Deploy, sign and rekey Roku channels on a developer-mode device",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.SetOut(stdout)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.flags.device, "device", "d", "", "device address (env "+config.EnvDeviceAddress+")")
	flags.StringVarP(&a.flags.username, "username", "u", "",
		"developer installer user (env "+config.EnvDeviceUsername+", default "+config.DefaultUsername+")")
	flags.StringVarP(&a.flags.password, "password", "w", "", "developer installer password (env "+config.EnvDevicePassword+")")
	flags.StringVarP(&a.flags.configPath, "config", "c", "", "path to settings file (default "+config.DefaultConfigFilename+")")
	flags.StringVar(&a.flags.envFile, "env-file", defaultEnvFile, "dotenv file with device properties")
	flags.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newDeployCommand(a),
		newSignCommand(a),
		newRekeyCommand(a),
		newCreateSigningCredentialsCommand(a),
	)

	version.AttachCobraVersionCommand(root)

	return root
}

// setup loads the environment and settings, then wires the workflow service.
func (a *app) setup(cmd *cobra.Command) error {
	if err := loadEnvFile(a.flags.envFile, cmd.Flags().Changed("env-file")); err != nil {
		return err
	}

	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}

	levelName := cfg.LogLevel
	if a.flags.logLevel != "" {
		levelName = a.flags.logLevel
	}

	level, ok := logger.ParseLogLevel(levelName)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, levelName)
	}

	logger.SetLevel(level)

	shellOptions := []shell.Option{
		shell.WithConnectTimeout(cfg.ConnectTimeout),
		shell.WithExecTimeout(cfg.ExecTimeout),
	}

	a.service = workflow.New(workflow.Dependencies{
		Installer: installer.New(installer.WithTimeout(cfg.HTTPTimeout)),
		KeyGen:    keygen.New(keygen.WithSettleDelay(cfg.SettleDelay), keygen.WithShellOptions(shellOptions...)),
		Store:     bundle.NewStore(),
		Place:     bundle.PlacePackage,
		Lookup:    a.lookup,
	})
	a.printer = console.New(cmd.OutOrStdout())

	return nil
}

// overrides returns the device properties given on the command line.
func (a *app) overrides() config.Overrides {
	return config.Overrides{
		Host:     a.flags.device,
		Username: a.flags.username,
		Password: a.flags.password,
	}
}

// loadEnvFile adds the dotenv file at path to the process environment without
// overriding variables that are already set. A missing file is an error only
// when the path was given explicitly.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	if !explicit && errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("load env file %s: %w", path, err)
}
