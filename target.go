// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Target abstracts the destination an archive is extracted to.
type Target interface {
	// CreateFile creates a file at path with src as content and the given
	// mode. If the file exists and overwrite is false, an error is
	// returned. Output beyond maxSize fails; maxSize < 0 disables the
	// limit. Returns the number of bytes written. Implementations remove
	// partially written output on failure.
	CreateFile(path string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error)

	// CreateDir creates the directory at path with the given mode. An
	// existing directory is success, so concurrent entry writes can race
	// on a shared parent.
	CreateDir(path string, mode fs.FileMode) error

	// CreateSymlink creates a symlink newname pointing to oldname.
	CreateSymlink(oldname string, newname string, overwrite bool) error

	// Lstat is os.Lstat; it backs the symlink and zip-slip checks.
	Lstat(path string) (fs.FileInfo, error)

	// Chmod is os.Chmod, used to apply archive permission bits.
	Chmod(name string, mode fs.FileMode) error

	// Chtimes is os.Chtimes, used to apply archive timestamps.
	Chtimes(name string, atime, mtime time.Time) error

	// Remove deletes the named file. It backs the cleanup of partially
	// written output.
	Remove(path string) error
}

// createFile validates name against dst, ensures the parent directory
// exists, and writes src through t. Entry names use forward slashes
// regardless of platform.
func createFile(t Target, dst string, name string, src io.Reader, mode fs.FileMode, maxSize int64, cfg *Config) (int64, error) {
	if len(name) == 0 {
		return 0, fmt.Errorf("cannot create file without name")
	}

	if err := createDir(t, dst, posixDir(name), cfg.CustomCreateDirMode(), cfg); err != nil {
		return 0, fmt.Errorf("cannot create parent directory: %w", err)
	}
	if err := securityCheck(t, dst, name, cfg); err != nil {
		return 0, err
	}

	path := filepath.Join(dst, filepath.Join(strings.Split(name, "/")...))
	return t.CreateFile(path, src, mode, cfg.Overwrite(), maxSize)
}

// createDir validates name against dst and creates the directory,
// including missing parents.
func createDir(t Target, dst string, name string, mode fs.FileMode, cfg *Config) error {
	if len(dst) > 0 {
		if _, err := t.Lstat(dst); os.IsNotExist(err) {
			if !cfg.CreateDestination() {
				return fmt.Errorf("destination does not exist: %s", dst)
			}
			if err := t.CreateDir(dst, cfg.CustomCreateDirMode()); err != nil {
				return fmt.Errorf("failed to create destination directory: %w", err)
			}
			cfg.Logger().Info("created destination directory", "path", dst)
		}
	}

	if name == "." || name == "" {
		return nil
	}
	if err := securityCheck(t, dst, name, cfg); err != nil {
		return err
	}

	path := filepath.Join(dst, filepath.Join(strings.Split(name, "/")...))
	return t.CreateDir(path, mode)
}

// createSymlink validates both the link location and the resolved link
// target against dst before creating the symlink.
func createSymlink(t Target, dst string, name string, linkTarget string, cfg *Config) error {
	if len(name) == 0 {
		return fmt.Errorf("cannot create symlink without name")
	}
	if filepath.IsAbs(linkTarget) {
		return fmt.Errorf("symlink with absolute target: %s", linkTarget)
	}

	if err := createDir(t, dst, posixDir(name), cfg.CustomCreateDirMode(), cfg); err != nil {
		return fmt.Errorf("cannot create parent directory: %w", err)
	}
	if err := securityCheck(t, dst, name, cfg); err != nil {
		return err
	}

	// the resolved target must stay inside dst as well
	resolved := filepath.Join(posixDir(name), linkTarget)
	if err := securityCheck(t, dst, resolved, cfg); err != nil {
		return fmt.Errorf("symlink target: %w", err)
	}

	path := filepath.Join(dst, filepath.Join(strings.Split(name, "/")...))
	return t.CreateSymlink(linkTarget, path, cfg.Overwrite())
}

// securityCheck rejects entry paths that would escape dst: absolute paths,
// paths with parent traversal, and paths that pass through an existing
// symlink (unless symlink traversal is explicitly allowed).
func securityCheck(t Target, dst string, path string, cfg *Config) error {
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return fmt.Errorf("absolute path detected")
	}

	path = filepath.Join(strings.Split(path, "/")...)
	rel, err := filepath.Rel(dst, filepath.Join(dst, path))
	if err != nil {
		return fmt.Errorf("failed to get relative path: %w", err)
	}
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("path traversal detected")
	}

	// walk the path elements to catch extraction through a symlinked dir
	elements := strings.Split(path, string(os.PathSeparator))
	for i := range elements {
		check := filepath.Join(dst, filepath.Join(elements[:i+1]...))
		if check == "" || check == "." {
			continue
		}
		fi, err := t.Lstat(check)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				break
			}
			return fmt.Errorf("invalid path: %w", err)
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			if cfg.InsecureTraverseSymlinks() {
				cfg.Logger().Warn("traverse symlink", "path", check)
				continue
			}
			return fmt.Errorf("symlink in path")
		}
	}

	return nil
}

// posixDir is filepath.Dir for forward slash separated entry names.
func posixDir(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[:i]
	}
	return "."
}
