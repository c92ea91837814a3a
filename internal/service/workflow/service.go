package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/oshokin/roku-cli/internal/config"
	"github.com/oshokin/roku-cli/internal/domain/signing"
	"github.com/oshokin/roku-cli/internal/logger"
	"github.com/oshokin/roku-cli/internal/resources"
)

const (
	// DefaultPackageName is the package base name used when none is given.
	DefaultPackageName = "app"

	// DefaultOutputPath is the output directory used when none is given.
	DefaultOutputPath = "."

	// stagingPattern names the private directory that receives downloaded packages.
	stagingPattern = "roku-cli-staging-"
)

// errNotDirectory is the PathError cause for a project path that is a file.
var errNotDirectory = errors.New("not a directory")

// Installer is the device's developer installer.
type Installer interface {
	DeleteInstalledChannel(ctx context.Context, endpoint signing.DeviceEndpoint) error
	Deploy(ctx context.Context, endpoint signing.DeviceEndpoint, rootDir string) error
	Rekey(ctx context.Context, endpoint signing.DeviceEndpoint, credential signing.Credential, packagePath string) error
	BuildAndSign(
		ctx context.Context,
		endpoint signing.DeviceEndpoint,
		credential signing.Credential,
		rootDir, stagingDir, appName string,
	) (string, error)
}

// KeyGenerator mints a developer identity on a device.
type KeyGenerator interface {
	Generate(ctx context.Context, host string) (signing.Credential, error)
}

// BundleStore reads and writes signing bundles.
type BundleStore interface {
	Load(dir string) (signing.Bundle, error)
	Save(dir, baseName string, credential signing.Credential, packageSource string) (string, error)
}

// PackagePlacer copies a signed package to <dir>/<baseName>.pkg.
type PackagePlacer func(src, dir, baseName string) (string, error)

// Service runs the roku-cli operations.
type Service struct {
	// installer drives the device's developer installer.
	installer Installer
	// keygen mints developer identities.
	keygen KeyGenerator
	// store persists signing bundles.
	store BundleStore
	// place copies signed packages to their output directory.
	place PackagePlacer
	// lookup reads environment defaults for the device endpoint.
	lookup config.LookupFunc
	// extractProject writes the reference signing project under a directory.
	extractProject func(dir string) (string, error)
}

// Dependencies are the collaborators of a Service.
type Dependencies struct {
	Installer Installer
	KeyGen    KeyGenerator
	Store     BundleStore
	Place     PackagePlacer
	// Lookup reads environment defaults; os.LookupEnv in the CLI.
	Lookup config.LookupFunc
}

// New creates a Service.
func New(deps Dependencies) *Service {
	return &Service{
		installer:      deps.Installer,
		keygen:         deps.KeyGen,
		store:          deps.Store,
		place:          deps.Place,
		lookup:         deps.Lookup,
		extractProject: resources.ExtractSigningProject,
	}
}

// resolve builds the endpoint from overrides and the environment.
func (s *Service) resolve(overrides config.Overrides) (signing.DeviceEndpoint, error) {
	return config.ResolveEndpoint(overrides, s.lookup)
}

// removeInstalledChannel clears the dev channel slot. Failure is not fatal:
// the following sideload replaces the channel anyway.
func (s *Service) removeInstalledChannel(ctx context.Context, endpoint signing.DeviceEndpoint) {
	if err := s.installer.DeleteInstalledChannel(ctx, endpoint); err != nil {
		logger.WarnKV(ctx, "Could not remove installed dev channel", "host", endpoint.Host, "error", err)
	}
}

// requireDir returns the absolute form of path, or a PathError when it is not an existing directory.
func requireDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &signing.PathError{Path: path, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", &signing.PathError{Path: abs, Err: err}
	}

	if !info.IsDir() {
		return "", &signing.PathError{Path: abs, Err: errNotDirectory}
	}

	return abs, nil
}

// withStaging runs fn with a private staging directory that is always removed afterwards.
func withStaging[T any](ctx context.Context, fn func(staging string) (T, error)) (T, error) {
	var zero T

	staging, err := os.MkdirTemp("", stagingPattern)
	if err != nil {
		return zero, err
	}

	defer func() {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			logger.WarnKV(ctx, "Could not remove staging directory", "path", staging, "error", rmErr)
		}
	}()

	return fn(staging)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
