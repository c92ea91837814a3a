package workflow

import (
	"context"
	"path/filepath"

	"github.com/oshokin/roku-cli/internal/config"
	"github.com/oshokin/roku-cli/internal/domain/signing"
	"github.com/oshokin/roku-cli/internal/logger"
)

// DeployOptions are the inputs of Deploy.
type DeployOptions struct {
	// ProjectPath is the channel project root.
	ProjectPath string
	// Device holds explicit endpoint values.
	Device config.Overrides
}

// SignOptions are the inputs of Sign.
type SignOptions struct {
	// ProjectPath is the channel project root.
	ProjectPath string
	// SigningPath is the signing bundle directory.
	SigningPath string
	// OutputPath is where the signed package is written.
	OutputPath string
	// PackageName is the package base name without extension.
	PackageName string
	// Device holds explicit endpoint values.
	Device config.Overrides
}

// RekeyOptions are the inputs of Rekey.
type RekeyOptions struct {
	// SigningPath is the signing bundle directory.
	SigningPath string
	// Device holds explicit endpoint values.
	Device config.Overrides
}

// CreateOptions are the inputs of CreateSigningCredentials.
type CreateOptions struct {
	// PackageName is the bundle package base name without extension.
	PackageName string
	// OutputPath is the bundle directory to create.
	OutputPath string
	// SigningProjectPath replaces the embedded reference project when set.
	SigningProjectPath string
	// Device holds explicit endpoint values.
	Device config.Overrides
}

// Deploy sideloads the project at opts.ProjectPath. A compile error fails the deploy.
func (s *Service) Deploy(ctx context.Context, opts *DeployOptions) error {
	ctx = logger.WithName(ctx, "deploy")

	endpoint, err := s.resolve(opts.Device)
	if err != nil {
		return err
	}

	root, err := requireDir(opts.ProjectPath)
	if err != nil {
		return err
	}

	return s.installer.Deploy(ctx, endpoint, root)
}

// Sign rekeys the device to the bundle at opts.SigningPath, builds and signs the
// project and writes <OutputPath>/<PackageName>.pkg. It returns the package path.
// The rekey always precedes packaging: the device signs with the identity it is keyed to.
func (s *Service) Sign(ctx context.Context, opts *SignOptions) (string, error) {
	ctx = logger.WithName(ctx, "sign")

	endpoint, err := s.resolve(opts.Device)
	if err != nil {
		return "", err
	}

	root, err := requireDir(opts.ProjectPath)
	if err != nil {
		return "", err
	}

	bundle, err := s.store.Load(opts.SigningPath)
	if err != nil {
		return "", err
	}

	packagePath, err := filepath.Abs(bundle.PackagePath)
	if err != nil {
		return "", err
	}

	s.removeInstalledChannel(ctx, endpoint)

	if err = s.installer.Rekey(ctx, endpoint, bundle.Credential, packagePath); err != nil {
		return "", err
	}

	name := orDefault(opts.PackageName, DefaultPackageName)

	return withStaging(ctx, func(staging string) (string, error) {
		signed, err := s.installer.BuildAndSign(ctx, endpoint, bundle.Credential, root, staging, name)
		if err != nil {
			return "", err
		}

		output, err := s.place(signed, orDefault(opts.OutputPath, DefaultOutputPath), name)
		if err != nil {
			return "", err
		}

		logger.InfoKV(ctx, "Package signed", "path", output, "dev_id", bundle.Credential.DevID)

		return output, nil
	})
}

// Rekey keys the device to the signing bundle at opts.SigningPath.
func (s *Service) Rekey(ctx context.Context, opts *RekeyOptions) error {
	ctx = logger.WithName(ctx, "rekey")

	endpoint, err := s.resolve(opts.Device)
	if err != nil {
		return err
	}

	bundle, err := s.store.Load(opts.SigningPath)
	if err != nil {
		return err
	}

	packagePath, err := filepath.Abs(bundle.PackagePath)
	if err != nil {
		return err
	}

	return s.installer.Rekey(ctx, endpoint, bundle.Credential, packagePath)
}

// CreateSigningCredentials generates a new developer key on the device, signs the
// reference project with it and saves the resulting bundle to opts.OutputPath.
// It returns the bundle directory.
func (s *Service) CreateSigningCredentials(ctx context.Context, opts *CreateOptions) (string, error) {
	ctx = logger.WithName(ctx, "create-signing-credentials")

	endpoint, err := s.resolve(opts.Device)
	if err != nil {
		return "", err
	}

	projectOverride := ""
	if opts.SigningProjectPath != "" {
		if projectOverride, err = requireDir(opts.SigningProjectPath); err != nil {
			return "", err
		}
	}

	s.removeInstalledChannel(ctx, endpoint)

	credential, err := s.keygen.Generate(ctx, endpoint.Host)
	if err != nil {
		return "", err
	}

	name := orDefault(opts.PackageName, DefaultPackageName)

	return withStaging(ctx, func(staging string) (string, error) {
		project := projectOverride
		if project == "" {
			extracted, err := s.extractProject(staging)
			if err != nil {
				return "", err
			}

			project = extracted
		}

		signed, err := s.installer.BuildAndSign(ctx, endpoint, credential, project, filepath.Join(staging, "out"), name)
		if err != nil {
			return "", err
		}

		return s.saveBundle(ctx, opts.OutputPath, name, credential, signed)
	})
}

func (s *Service) saveBundle(
	ctx context.Context,
	dir, name string,
	credential signing.Credential,
	signed string,
) (string, error) {
	dir = orDefault(dir, DefaultOutputPath)

	saved, err := s.store.Save(dir, name, credential, signed)
	if err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Signing bundle saved", "path", saved, "dev_id", credential.DevID)

	return saved, nil
}
