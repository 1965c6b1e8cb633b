package safeio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CleanUserPath cleans a user-provided path and rejects traversal attempts.
// Returns paths with forward slashes for cross-platform consistency.
func CleanUserPath(p string) (string, error) {
	c := filepath.Clean(p)
	if strings.Contains(c, "..") {
		return "", errors.New("path traversal detected")
	}
	return filepath.ToSlash(c), nil
}

// ReadFileContained reads a file only if it is contained within baseDir.
// Returns an error if the file is outside baseDir or cannot be read.
func ReadFileContained(baseDir, filePath string) ([]byte, error) {
	baseDirAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, errors.New("failed to resolve base directory")
	}
	filePathAbs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, errors.New("failed to resolve file path")
	}

	rel, err := filepath.Rel(baseDirAbs, filePathAbs)
	if err != nil {
		return nil, errors.New("failed to compute relative path")
	}

	if strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return nil, errors.New("file path is outside base directory")
	}

	// #nosec G304 -- filePathAbs has been verified to be contained within baseDirAbs
	return os.ReadFile(filePathAbs)
}

// WriteFilePreservePerms writes data to path preserving existing file mode when possible.
// When the file does not exist, it uses a sane default of 0644.
func WriteFilePreservePerms(path string, data []byte) error {
	var mode os.FileMode = 0o644
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode() & 0o777
		if mode == 0 {
			mode = 0o644
		}
	}
	return os.WriteFile(path, data, mode)
}

// CopyFile copies src to dst, overwriting dst, and carries over the source
// permission bits and modification time.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	in, err := os.Open(src) // #nosec G304 -- caller controls src
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm()) // #nosec G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	// OpenFile only applies the mode on create
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// Exists reports whether path exists (any file type).
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
