package signing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingPackage is the bundle reason for a directory without a .pkg file.
	ErrMissingPackage = errors.New("missing package")
	// ErrMissingCredentialsFile is the bundle reason for a directory without credentials.json.
	ErrMissingCredentialsFile = errors.New("missing credentials file")
	// ErrMalformedCredentials is the bundle reason for credentials.json of an unexpected shape.
	ErrMalformedCredentials = errors.New("malformed credentials")
	// ErrIncompleteCredentials is the bundle reason for an empty devId or password.
	ErrIncompleteCredentials = errors.New("incomplete credentials")

	// ErrCredentialsNotFound is the key generation cause when the device response
	// lacks the DevID or Password line.
	ErrCredentialsNotFound = errors.New("DevID/password not found in device response")
)

// ConfigurationError is returned when the device endpoint cannot be resolved.
type ConfigurationError struct {
	// Missing lists the properties that were unset after environment fallback.
	Missing []string
}

// Error implements error. The message names the full requirement regardless of
// which of the properties was actually missing.
func (e *ConfigurationError) Error() string {
	return "The following device properties should be set: device, password"
}

// PathError is returned when a required local path does not exist.
type PathError struct {
	// Path is the absolute path that was checked.
	Path string
	// Err is the underlying stat error.
	Err error
}

func (e *PathError) Error() string {
	return "rootDir does not exist at " + e.Path
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// BundleError is returned when a signing bundle is malformed or incomplete.
// Reason is one of the ErrMissingPackage family and can be matched with errors.Is.
type BundleError struct {
	// Path is the bundle directory or file the failure refers to.
	Path string
	// Reason classifies the failure.
	Reason error
	// Err is the underlying I/O or decode error, if any.
	Err error
}

func (e *BundleError) Error() string {
	var b strings.Builder

	b.WriteString("invalid signing bundle: ")
	b.WriteString(e.Reason.Error())
	b.WriteString(" at ")
	b.WriteString(e.Path)

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

func (e *BundleError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}

	return []error{e.Reason, e.Err}
}

// KeyGenerationError is the single error kind surfaced by key generation.
// Transport failures and unparseable responses are both reported through it;
// the underlying failure stays reachable through Unwrap.
type KeyGenerationError struct {
	// Host is the device address the key was requested from.
	Host string
	// Err is the underlying cause.
	Err error
}

func (e *KeyGenerationError) Error() string {
	if errors.Is(e.Err, ErrCredentialsNotFound) {
		return fmt.Sprintf("could not generate key: failed to retrieve DevID/password from Roku device[%s]", e.Host)
	}

	return fmt.Sprintf("could not generate key: failed to connect to Roku device[%s]", e.Host)
}

func (e *KeyGenerationError) Unwrap() error {
	return e.Err
}
