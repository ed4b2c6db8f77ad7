// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"io"
	"io/fs"
	"time"
)

// archiveWalker iterates the entries of a multi-entry container.
type archiveWalker interface {
	// Format returns the tag of the container being walked.
	Format() Format

	// Next returns the next entry, or io.EOF when the archive is
	// exhausted.
	Next() (archiveEntry, error)

	// Close releases resources held by the walker, such as a temporary
	// spool file.
	Close() error
}

// indexedWalker is implemented by walkers whose entries can be opened
// independently of iteration order. Extraction may fan entry writes out
// over a worker pool for these.
type indexedWalker interface {
	archiveWalker
	Entries() []archiveEntry
}

// archiveEntry is one file, directory or symlink in an archive.
type archiveEntry interface {
	Name() string
	Size() int64
	Mode() fs.FileMode
	ModTime() time.Time
	IsRegular() bool
	IsDir() bool
	IsSymlink() bool
	Linkname() string
	Open() (io.ReadCloser, error)
	Type() fs.FileMode
}
