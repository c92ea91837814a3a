package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/roku-cli/internal/domain/signing"
)

// Store reads and writes signing bundles on the local filesystem.
type Store struct{}

// NewStore creates a bundle store.
func NewStore() *Store {
	return new(Store)
}

// Load reads the bundle in dir.
//
// The first .pkg entry in lexical order is taken as the package; a bundle is
// expected to hold exactly one, and extra packages are not reported.
func (s *Store) Load(dir string) (signing.Bundle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return signing.Bundle{}, &signing.BundleError{Path: dir, Reason: signing.ErrMissingPackage, Err: err}
	}

	packageName := ""

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != signing.PackageExtension {
			continue
		}

		packageName = entry.Name()

		break
	}

	if packageName == "" {
		return signing.Bundle{}, &signing.BundleError{Path: dir, Reason: signing.ErrMissingPackage}
	}

	credentialsPath := filepath.Join(dir, signing.CredentialsFilename)

	credential, err := readCredentials(credentialsPath)
	if err != nil {
		return signing.Bundle{}, err
	}

	return signing.Bundle{
		PackagePath: filepath.Join(dir, packageName),
		Credential:  credential,
	}, nil
}

// Save writes credential and a copy of the package at packageSource into dir as
// <baseName>.pkg and credentials.json, replacing existing files. It returns dir.
func (s *Store) Save(dir, baseName string, credential signing.Credential, packageSource string) (string, error) {
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return "", fmt.Errorf("create bundle directory: %w", err)
	}

	if _, err := PlacePackage(packageSource, dir, baseName); err != nil {
		return "", err
	}

	data, err := json.Marshal(credential)
	if err != nil {
		return "", fmt.Errorf("encode credentials: %w", err)
	}

	credentialsPath := filepath.Join(dir, signing.CredentialsFilename)
	if err = os.WriteFile(credentialsPath, data, CredentialsPermissions); err != nil {
		return "", fmt.Errorf("write credentials: %w", err)
	}

	return dir, nil
}

// readCredentials decodes credentials.json, rejecting unknown keys and trailing data.
func readCredentials(path string) (signing.Credential, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return signing.Credential{}, &signing.BundleError{Path: path, Reason: signing.ErrMissingCredentialsFile, Err: err}
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()

	var credential signing.Credential
	if err = decoder.Decode(&credential); err != nil {
		return signing.Credential{}, &signing.BundleError{Path: path, Reason: signing.ErrMalformedCredentials, Err: err}
	}

	if _, err = decoder.Token(); !errors.Is(err, io.EOF) {
		return signing.Credential{}, &signing.BundleError{Path: path, Reason: signing.ErrMalformedCredentials}
	}

	if !credential.IsComplete() {
		return signing.Credential{}, &signing.BundleError{Path: path, Reason: signing.ErrIncompleteCredentials}
	}

	return credential, nil
}
