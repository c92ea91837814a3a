package bundle

import (
	"bytes"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/roku-cli/internal/domain/signing"
)

const (
	// DirPermissions is used for bundle and output directories.
	DirPermissions os.FileMode = 0o755

	// PackagePermissions is used for placed package files.
	PackagePermissions os.FileMode = 0o644

	// CredentialsPermissions restricts credentials.json to the owner.
	CredentialsPermissions os.FileMode = 0o600
)

// PlacePackage copies the package at src to <dir>/<baseName>.pkg, creating dir
// when needed and replacing an existing file. The bytes are applied through a
// temporary file and a rename, and the result is checked against the SHA-256 of src.
func PlacePackage(src, dir, baseName string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(src))
	if err != nil {
		return "", fmt.Errorf("read package: %w", err)
	}

	if err = os.MkdirAll(dir, DirPermissions); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}

	target := signing.PackageArtifact{Directory: dir, Name: baseName}.Path()

	// go-update swaps an existing file, so the target must be there first.
	if _, err = os.Stat(target); errors.Is(err, os.ErrNotExist) {
		if err = os.WriteFile(target, nil, PackagePermissions); err != nil {
			return "", fmt.Errorf("create package %s: %w", target, err)
		}
	} else if err != nil {
		return "", fmt.Errorf("stat package %s: %w", target, err)
	}

	checksum := sha256.Sum256(data)

	err = goupdate.Apply(bytes.NewReader(data), goupdate.Options{
		TargetPath: target,
		TargetMode: PackagePermissions,
		Checksum:   checksum[:],
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return "", fmt.Errorf("place package %s: %w", target, err)
	}

	return target, nil
}
