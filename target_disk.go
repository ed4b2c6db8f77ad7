// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
)

// TargetDisk extracts to the local filesystem.
type TargetDisk struct{}

// NewDisk returns a [Target] that writes to the local filesystem.
func NewDisk() *TargetDisk {
	return &TargetDisk{}
}

// CreateDir creates the directory at path. An already existing directory
// is treated as success, which makes concurrent creation of shared parent
// directories safe.
func (d *TargetDisk) CreateDir(path string, mode fs.FileMode) error {
	if err := os.MkdirAll(path, mode.Perm()); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// CreateFile creates the file at path with src as content. A write
// failure removes the partially written file, so no artifacts are left
// behind.
func (d *TargetDisk) CreateFile(path string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error) {
	if _, err := os.Lstat(path); !os.IsNotExist(err) {
		if err != nil {
			return 0, fmt.Errorf("invalid path: %w", err)
		}
		if !overwrite {
			return 0, fmt.Errorf("file already exists: %s", path)
		}
	}

	dstFile, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(limitWriter(dstFile, maxSize), src)
	if err != nil {
		dstFile.Close()
		os.Remove(path)
		return n, fmt.Errorf("failed to write file: %w", err)
	}
	return n, dstFile.Close()
}

// CreateSymlink creates a symlink newname pointing to oldname.
func (d *TargetDisk) CreateSymlink(oldname string, newname string, overwrite bool) error {
	if _, err := os.Lstat(newname); !os.IsNotExist(err) {
		if !overwrite {
			return fmt.Errorf("file already exists: %s", newname)
		}
		if err := os.Remove(newname); err != nil {
			return fmt.Errorf("failed to overwrite: %w", err)
		}
	}
	if err := os.Symlink(oldname, newname); err != nil {
		return fmt.Errorf("failed to create symlink: %w", err)
	}
	return nil
}

// Lstat returns the FileInfo for the named file without following
// symlinks.
func (d *TargetDisk) Lstat(name string) (fs.FileInfo, error) {
	return os.Lstat(name)
}

// Chmod changes the mode of the named file.
func (d *TargetDisk) Chmod(name string, mode fs.FileMode) error {
	return os.Chmod(name, mode.Perm())
}

// Chtimes changes the access and modification times of the named file.
func (d *TargetDisk) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(name, atime, mtime)
}

// Remove deletes the named file.
func (d *TargetDisk) Remove(name string) error {
	return os.Remove(name)
}
