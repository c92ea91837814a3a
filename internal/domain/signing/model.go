package signing

import "path/filepath"

const (
	// PackageExtension is the file extension of signed device packages.
	PackageExtension = ".pkg"

	// CredentialsFilename is the fixed name of the credential metadata file inside a bundle.
	CredentialsFilename = "credentials.json"
)

// DeviceEndpoint identifies a target device and the credentials of its developer installer.
// It is built once per invocation and never persisted.
type DeviceEndpoint struct {
	// Host is the network address of the device.
	Host string
	// Username is the developer installer user name.
	Username string
	// Password is the developer installer password.
	Password string
}

// Credential is the developer identity minted by the device with genkey.
type Credential struct {
	// DevID is the developer id the device is keyed to.
	DevID string `json:"devId"`
	// Password is the signing password paired with DevID.
	Password string `json:"password"`
}

// IsComplete reports whether both credential fields are set.
func (c Credential) IsComplete() bool {
	return c.DevID != "" && c.Password != ""
}

// Bundle is a loaded signing bundle: the reference package and its credential.
type Bundle struct {
	// PackagePath is the path of the signed reference package inside the bundle directory.
	PackagePath string
	// Credential is the parsed content of credentials.json.
	Credential Credential
}

// PackageArtifact locates a signed package produced by a build-and-sign step.
type PackageArtifact struct {
	// Directory is the destination directory.
	Directory string
	// Name is the base name without extension.
	Name string
}

// Path returns the full path of the artifact.
func (a PackageArtifact) Path() string {
	return filepath.Join(a.Directory, a.Name+PackageExtension)
}
