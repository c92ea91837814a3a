package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/roku-cli/internal/config"
	"github.com/oshokin/roku-cli/internal/domain/signing"
	"github.com/oshokin/roku-cli/internal/repository/bundle"
)

var bundleCredential = signing.Credential{DevID: "dev42", Password: "abc123"}

type fakeInstaller struct {
	mu sync.Mutex

	deleteErr error
	deployErr error
	rekeyErr  error
	buildErr  error

	calls []string

	endpoint        signing.DeviceEndpoint
	deployRoot      string
	rekeyCredential signing.Credential
	rekeyPackage    string
	buildCredential signing.Credential
	buildRoot       string
	buildStaging    string
	buildProjectHas []string
}

func (f *fakeInstaller) record(call string, endpoint signing.DeviceEndpoint) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)
	f.endpoint = endpoint
}

func (f *fakeInstaller) DeleteInstalledChannel(_ context.Context, endpoint signing.DeviceEndpoint) error {
	f.record("delete", endpoint)

	return f.deleteErr
}

func (f *fakeInstaller) Deploy(_ context.Context, endpoint signing.DeviceEndpoint, rootDir string) error {
	f.record("deploy", endpoint)
	f.deployRoot = rootDir

	return f.deployErr
}

func (f *fakeInstaller) Rekey(
	_ context.Context,
	endpoint signing.DeviceEndpoint,
	credential signing.Credential,
	packagePath string,
) error {
	f.record("rekey", endpoint)
	f.rekeyCredential = credential
	f.rekeyPackage = packagePath

	return f.rekeyErr
}

func (f *fakeInstaller) BuildAndSign(
	_ context.Context,
	endpoint signing.DeviceEndpoint,
	credential signing.Credential,
	rootDir, stagingDir, appName string,
) (string, error) {
	f.record("build", endpoint)
	f.buildCredential = credential
	f.buildRoot = rootDir
	f.buildStaging = stagingDir

	entries, _ := os.ReadDir(rootDir)
	for _, entry := range entries {
		f.buildProjectHas = append(f.buildProjectHas, entry.Name())
	}

	if f.buildErr != nil {
		return "", f.buildErr
	}

	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(stagingDir, appName+signing.PackageExtension)

	return path, os.WriteFile(path, []byte("signed "+credential.DevID), 0o600)
}

type fakeKeyGen struct {
	credential signing.Credential
	err        error
	hosts      []string
}

func (f *fakeKeyGen) Generate(_ context.Context, host string) (signing.Credential, error) {
	f.hosts = append(f.hosts, host)

	return f.credential, f.err
}

func lookupFrom(env map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := env[key]

		return value, ok
	}
}

func newService(installer *fakeInstaller, keygen *fakeKeyGen) *Service {
	return New(Dependencies{
		Installer: installer,
		KeyGen:    keygen,
		Store:     bundle.NewStore(),
		Place:     bundle.PlacePackage,
		Lookup:    lookupFrom(nil),
	})
}

func device() config.Overrides {
	return config.Overrides{Host: "192.168.1.20", Password: "secret"}
}

func writeBundle(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.pkg"), []byte("keyed package"), 0o600))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, signing.CredentialsFilename),
		[]byte(`{"devId":"dev42","password":"abc123"}`),
		0o600,
	))

	return dir
}

func requireConfigurationError(t *testing.T, err error) {
	t.Helper()

	var configErr *signing.ConfigurationError
	require.ErrorAs(t, err, &configErr)
	require.EqualError(t, err, "The following device properties should be set: device, password")
}

// TestDeploy_MissingEndpoint fails before any path check or device call.
func TestDeploy_MissingEndpoint(t *testing.T) {
	t.Parallel()

	installer := new(fakeInstaller)
	svc := newService(installer, new(fakeKeyGen))

	err := svc.Deploy(context.Background(), &DeployOptions{ProjectPath: filepath.Join(t.TempDir(), "absent")})
	requireConfigurationError(t, err)
	require.Empty(t, installer.calls)
}

// TestDeploy_MissingProject returns a PathError without contacting the device.
func TestDeploy_MissingProject(t *testing.T) {
	t.Parallel()

	installer := new(fakeInstaller)
	svc := newService(installer, new(fakeKeyGen))
	missing := filepath.Join(t.TempDir(), "absent")

	err := svc.Deploy(context.Background(), &DeployOptions{ProjectPath: missing, Device: device()})

	var pathErr *signing.PathError
	require.ErrorAs(t, err, &pathErr)
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.Equal(t, "rootDir does not exist at "+missing, err.Error())
	require.Empty(t, installer.calls)
}

// TestDeploy_FileIsNotProject rejects a regular file as project root.
func TestDeploy_FileIsNotProject(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "manifest")
	require.NoError(t, os.WriteFile(file, []byte("title=x"), 0o600))

	installer := new(fakeInstaller)
	err := newService(installer, new(fakeKeyGen)).
		Deploy(context.Background(), &DeployOptions{ProjectPath: file, Device: device()})

	var pathErr *signing.PathError
	require.ErrorAs(t, err, &pathErr)
	require.Empty(t, installer.calls)
}

// TestDeploy_Success sideloads the absolute project root with the resolved endpoint.
func TestDeploy_Success(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	installer := new(fakeInstaller)
	svc := newService(installer, new(fakeKeyGen))

	require.NoError(t, svc.Deploy(context.Background(), &DeployOptions{ProjectPath: project, Device: device()}))
	require.Equal(t, []string{"deploy"}, installer.calls)
	require.Equal(t, project, installer.deployRoot)
	require.Equal(t, signing.DeviceEndpoint{
		Host:     "192.168.1.20",
		Username: config.DefaultUsername,
		Password: "secret",
	}, installer.endpoint)
}

// TestDeploy_PropagatesInstallerError returns the installer failure unchanged.
func TestDeploy_PropagatesInstallerError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("compilation failed")
	installer := &fakeInstaller{deployErr: wantErr}

	err := newService(installer, new(fakeKeyGen)).
		Deploy(context.Background(), &DeployOptions{ProjectPath: t.TempDir(), Device: device()})
	require.Equal(t, wantErr, err)
}

// TestSign_MissingEndpoint performs no I/O when the endpoint cannot be resolved.
func TestSign_MissingEndpoint(t *testing.T) {
	t.Parallel()

	installer := new(fakeInstaller)
	output := filepath.Join(t.TempDir(), "out")

	_, err := newService(installer, new(fakeKeyGen)).Sign(context.Background(), &SignOptions{
		ProjectPath: t.TempDir(),
		SigningPath: writeBundle(t),
		OutputPath:  output,
		Device:      config.Overrides{Host: "192.168.1.20"},
	})
	requireConfigurationError(t, err)
	require.Empty(t, installer.calls)
	require.NoDirExists(t, output)
}

// TestSign_MissingProjectSkipsRekey never rekeys when the project root is absent.
func TestSign_MissingProjectSkipsRekey(t *testing.T) {
	t.Parallel()

	installer := new(fakeInstaller)

	_, err := newService(installer, new(fakeKeyGen)).Sign(context.Background(), &SignOptions{
		ProjectPath: filepath.Join(t.TempDir(), "absent"),
		SigningPath: writeBundle(t),
		Device:      device(),
	})

	var pathErr *signing.PathError
	require.ErrorAs(t, err, &pathErr)
	require.Empty(t, installer.calls)
}

// TestSign_InvalidBundle returns the bundle failure before contacting the device.
func TestSign_InvalidBundle(t *testing.T) {
	t.Parallel()

	signingDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(signingDir, "old.pkg"), []byte("pkg"), 0o600))

	installer := new(fakeInstaller)

	_, err := newService(installer, new(fakeKeyGen)).Sign(context.Background(), &SignOptions{
		ProjectPath: t.TempDir(),
		SigningPath: signingDir,
		Device:      device(),
	})

	var bundleErr *signing.BundleError
	require.ErrorAs(t, err, &bundleErr)
	require.ErrorIs(t, err, signing.ErrMissingCredentialsFile)
	require.Empty(t, installer.calls)
}

// TestSign_Success rekeys, packages and places <output>/<name>.pkg.
func TestSign_Success(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	signingDir := writeBundle(t)
	output := filepath.Join(t.TempDir(), "out")
	installer := new(fakeInstaller)

	path, err := newService(installer, new(fakeKeyGen)).Sign(context.Background(), &SignOptions{
		ProjectPath: project,
		SigningPath: signingDir,
		OutputPath:  output,
		PackageName: "mychannel",
		Device:      device(),
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(output, "mychannel.pkg"), path)

	require.Equal(t, []string{"delete", "rekey", "build"}, installer.calls)
	require.Equal(t, bundleCredential, installer.rekeyCredential)
	require.Equal(t, filepath.Join(signingDir, "old.pkg"), installer.rekeyPackage)
	require.Equal(t, bundleCredential, installer.buildCredential)
	require.Equal(t, project, installer.buildRoot)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "signed dev42", string(data))
	require.NoDirExists(t, installer.buildStaging)
}

// TestSign_DeleteFailureIsNotFatal keeps signing when the dev channel cannot be removed.
func TestSign_DeleteFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	installer := &fakeInstaller{deleteErr: errors.New("connection reset")}
	output := t.TempDir()

	path, err := newService(installer, new(fakeKeyGen)).Sign(context.Background(), &SignOptions{
		ProjectPath: t.TempDir(),
		SigningPath: writeBundle(t),
		OutputPath:  output,
		Device:      device(),
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(output, DefaultPackageName+signing.PackageExtension), path)
}

// TestSign_RekeyFailureStops returns the rekey failure unchanged and does not package.
func TestSign_RekeyFailureStops(t *testing.T) {
	t.Parallel()

	wantErr := fmt.Errorf("rekey: %w", errors.New("devId mismatch"))
	installer := &fakeInstaller{rekeyErr: wantErr}
	output := filepath.Join(t.TempDir(), "out")

	_, err := newService(installer, new(fakeKeyGen)).Sign(context.Background(), &SignOptions{
		ProjectPath: t.TempDir(),
		SigningPath: writeBundle(t),
		OutputPath:  output,
		Device:      device(),
	})
	require.Equal(t, wantErr, err)
	require.Equal(t, []string{"delete", "rekey"}, installer.calls)
	require.NoDirExists(t, output)
}

// TestSign_BuildFailureRemovesStaging cleans the staging directory on failure.
func TestSign_BuildFailureRemovesStaging(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("signing failed")
	installer := &fakeInstaller{buildErr: wantErr}

	_, err := newService(installer, new(fakeKeyGen)).Sign(context.Background(), &SignOptions{
		ProjectPath: t.TempDir(),
		SigningPath: writeBundle(t),
		OutputPath:  t.TempDir(),
		Device:      device(),
	})
	require.Equal(t, wantErr, err)
	require.NotEmpty(t, installer.buildStaging)
	require.NoDirExists(t, installer.buildStaging)
}

// TestSign_EnvironmentEndpoint resolves the device from the environment.
func TestSign_EnvironmentEndpoint(t *testing.T) {
	t.Parallel()

	installer := new(fakeInstaller)
	svc := New(Dependencies{
		Installer: installer,
		KeyGen:    new(fakeKeyGen),
		Store:     bundle.NewStore(),
		Place:     bundle.PlacePackage,
		Lookup: lookupFrom(map[string]string{
			config.EnvDeviceAddress:  "10.0.0.5",
			config.EnvDeviceUsername: "admin",
			config.EnvDevicePassword: "envpass",
		}),
	})

	_, err := svc.Sign(context.Background(), &SignOptions{
		ProjectPath: t.TempDir(),
		SigningPath: writeBundle(t),
		OutputPath:  t.TempDir(),
	})
	require.NoError(t, err)
	require.Equal(t, signing.DeviceEndpoint{Host: "10.0.0.5", Username: "admin", Password: "envpass"}, installer.endpoint)
}

// TestRekey_Success keys the device to the bundle package.
func TestRekey_Success(t *testing.T) {
	t.Parallel()

	signingDir := writeBundle(t)
	installer := new(fakeInstaller)

	err := newService(installer, new(fakeKeyGen)).
		Rekey(context.Background(), &RekeyOptions{SigningPath: signingDir, Device: device()})
	require.NoError(t, err)
	require.Equal(t, []string{"rekey"}, installer.calls)
	require.Equal(t, bundleCredential, installer.rekeyCredential)
	require.Equal(t, filepath.Join(signingDir, "old.pkg"), installer.rekeyPackage)
}

// TestRekey_MissingEndpoint fails before reading the bundle.
func TestRekey_MissingEndpoint(t *testing.T) {
	t.Parallel()

	installer := new(fakeInstaller)

	err := newService(installer, new(fakeKeyGen)).
		Rekey(context.Background(), &RekeyOptions{SigningPath: filepath.Join(t.TempDir(), "absent")})
	requireConfigurationError(t, err)
	require.Empty(t, installer.calls)
}

// TestCreateSigningCredentials_Success signs the reference project with the new key and saves the bundle.
func TestCreateSigningCredentials_Success(t *testing.T) {
	t.Parallel()

	newCredential := signing.Credential{DevID: "fresh-id", Password: "fresh-pass"}
	installer := new(fakeInstaller)
	keygen := &fakeKeyGen{credential: newCredential}
	output := filepath.Join(t.TempDir(), "bundle")

	dir, err := newService(installer, keygen).CreateSigningCredentials(context.Background(), &CreateOptions{
		PackageName: "signing",
		OutputPath:  output,
		Device:      device(),
	})
	require.NoError(t, err)
	require.Equal(t, output, dir)

	require.Equal(t, []string{"192.168.1.20"}, keygen.hosts)
	require.Equal(t, []string{"delete", "build"}, installer.calls)
	require.Equal(t, newCredential, installer.buildCredential)
	require.Contains(t, installer.buildProjectHas, "manifest")
	require.NoDirExists(t, installer.buildRoot)

	loaded, err := bundle.NewStore().Load(output)
	require.NoError(t, err)
	require.Equal(t, newCredential, loaded.Credential)
	require.Equal(t, filepath.Join(output, "signing.pkg"), loaded.PackagePath)
}

// TestCreateSigningCredentials_ProjectOverride packages the given project instead of the embedded one.
func TestCreateSigningCredentials_ProjectOverride(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	installer := new(fakeInstaller)
	keygen := &fakeKeyGen{credential: bundleCredential}

	_, err := newService(installer, keygen).CreateSigningCredentials(context.Background(), &CreateOptions{
		OutputPath:         t.TempDir(),
		SigningProjectPath: project,
		Device:             device(),
	})
	require.NoError(t, err)
	require.Equal(t, project, installer.buildRoot)
}

// TestCreateSigningCredentials_KeyGenFailure returns the failure unchanged and writes nothing.
func TestCreateSigningCredentials_KeyGenFailure(t *testing.T) {
	t.Parallel()

	wantErr := &signing.KeyGenerationError{Host: "192.168.1.20", Err: signing.ErrCredentialsNotFound}
	installer := new(fakeInstaller)
	output := filepath.Join(t.TempDir(), "bundle")

	_, err := newService(installer, &fakeKeyGen{err: wantErr}).
		CreateSigningCredentials(context.Background(), &CreateOptions{OutputPath: output, Device: device()})
	require.Equal(t, wantErr, err)
	require.Equal(t, []string{"delete"}, installer.calls)
	require.NoDirExists(t, output)
}

// TestCreateSigningCredentials_MissingEndpoint fails before key generation.
func TestCreateSigningCredentials_MissingEndpoint(t *testing.T) {
	t.Parallel()

	keygen := new(fakeKeyGen)

	_, err := newService(new(fakeInstaller), keygen).
		CreateSigningCredentials(context.Background(), &CreateOptions{Device: config.Overrides{Password: "x"}})
	requireConfigurationError(t, err)
	require.Empty(t, keygen.hosts)
}
