package installer

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ArchiveProject zips the regular files under rootDir with paths relative to it.
// Hidden files and directories are left out.
func ArchiveProject(rootDir string) ([]byte, error) {
	var buf bytes.Buffer

	writer := zip.NewWriter(&buf)

	err := filepath.WalkDir(rootDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path == rootDir {
			return nil
		}

		if strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return err
		}

		return addFile(writer, path, filepath.ToSlash(rel))
	})
	if err != nil {
		return nil, fmt.Errorf("archive project: %w", err)
	}

	if err = writer.Close(); err != nil {
		return nil, fmt.Errorf("archive project: %w", err)
	}

	return buf.Bytes(), nil
}

func addFile(writer *zip.Writer, path, name string) error {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer func() {
		_ = file.Close()
	}()

	part, err := writer.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	})
	if err != nil {
		return err
	}

	_, err = io.Copy(part, file)

	return err
}
