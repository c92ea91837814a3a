package resources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestExtractSigningProject writes a project with a manifest and an entry point.
func TestExtractSigningProject(t *testing.T) {
	t.Parallel()

	root, err := ExtractSigningProject(t.TempDir())
	require.NoError(t, err)

	manifest, err := os.ReadFile(filepath.Join(root, "manifest"))
	require.NoError(t, err)
	require.Contains(t, string(manifest), "title=Signing Project")

	_, err = os.Stat(filepath.Join(root, "source", "main.brs"))
	require.NoError(t, err)
}
