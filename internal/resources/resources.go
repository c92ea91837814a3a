// Package resources ships the reference channel that is packaged right after a
// new developer key is generated. The signed result becomes the package half of
// a signing bundle.
package resources

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// signingProjectRoot is the embedded directory holding the reference channel.
const signingProjectRoot = "signing-project"

//go:embed signing-project
var signingProject embed.FS

// ExtractSigningProject writes the reference channel under dir and returns its root.
func ExtractSigningProject(dir string) (string, error) {
	root := filepath.Join(dir, signingProjectRoot)

	err := fs.WalkDir(signingProject, signingProjectRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		target := filepath.Join(dir, filepath.FromSlash(path))

		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		data, err := signingProject.ReadFile(path)
		if err != nil {
			return err
		}

		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		return "", fmt.Errorf("extract signing project: %w", err)
	}

	return root, nil
}
