// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"io"
	"io/fs"
	"log/slog"
)

// ConfigOption adjusts a [Config] in the option pattern style.
type ConfigOption func(*Config)

// Config holds all configuration for one extraction. The defaults are
// secure: bounded input, bounded output, bounded entry count, no
// overwrites, no symlink traversal.
type Config struct {
	// cacheInMemory caches streamed input in memory instead of a
	// temporary file when a codec needs random access (zip, 7z, cabinet).
	cacheInMemory bool

	// createDestination creates the destination directory if it does not
	// exist.
	createDestination bool

	// customCreateDirMode is the mode for directories that are created
	// implicitly, i.e. not described by an archive entry.
	customCreateDirMode fs.FileMode

	// customDecompressFileMode is the mode for single-file decompression
	// output.
	customDecompressFileMode fs.FileMode

	// denySymlinkExtraction skips symlink entries instead of creating
	// them.
	denySymlinkExtraction bool

	// dropFileAttributes skips applying the modes and times an archive
	// entry carries.
	dropFileAttributes bool

	// format forces a specific format instead of sniffing the input.
	format Format

	// insecureTraverseSymlinks permits extraction through symlinked
	// directories.
	insecureTraverseSymlinks bool

	logger logger

	// maxExtractionSize caps the decompressed output, -1 disables.
	maxExtractionSize int64

	// maxFiles caps the number of archive entries, -1 disables.
	maxFiles int64

	// maxInputSize caps the compressed input, -1 disables.
	maxInputSize int64

	// noUntarAfterDecompression disables promoting gzip/xz/... to their
	// tarball composite during sniffing.
	noUntarAfterDecompression bool

	// overwrite replaces existing files in the destination.
	overwrite bool

	// workers bounds parallel entry writes for archives that support
	// random access. 1 keeps extraction fully sequential.
	workers int
}

// NewConfig returns a [Config] with secure defaults, adjusted by opts.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := &Config{
		customCreateDirMode:      0755,
		customDecompressFileMode: 0640,
		logger:                   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxExtractionSize:        1 << 30,
		maxFiles:                 100000,
		maxInputSize:             1 << 30,
		workers:                  1,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *Config) CacheInMemory() bool                  { return c.cacheInMemory }
func (c *Config) CreateDestination() bool              { return c.createDestination }
func (c *Config) CustomCreateDirMode() fs.FileMode     { return c.customCreateDirMode }
func (c *Config) CustomDecompressFileMode() fs.FileMode { return c.customDecompressFileMode }
func (c *Config) DenySymlinkExtraction() bool          { return c.denySymlinkExtraction }
func (c *Config) DropFileAttributes() bool             { return c.dropFileAttributes }
func (c *Config) Format() Format                       { return c.format }
func (c *Config) InsecureTraverseSymlinks() bool       { return c.insecureTraverseSymlinks }
func (c *Config) Logger() logger                       { return c.logger }
func (c *Config) MaxExtractionSize() int64             { return c.maxExtractionSize }
func (c *Config) MaxFiles() int64                      { return c.maxFiles }
func (c *Config) MaxInputSize() int64                  { return c.maxInputSize }
func (c *Config) NoUntarAfterDecompression() bool      { return c.noUntarAfterDecompression }
func (c *Config) Overwrite() bool                      { return c.overwrite }
func (c *Config) Workers() int                         { return c.workers }

// CheckMaxFiles returns [ErrMaxFilesExceeded] if counter exceeds the
// configured maximum.
func (c *Config) CheckMaxFiles(counter int64) error {
	if c.maxFiles == -1 {
		return nil
	}
	if counter > c.maxFiles {
		return ErrMaxFilesExceeded
	}
	return nil
}

// CheckExtractionSize returns [ErrMaxExtractionSizeExceeded] if fileSize
// exceeds the configured maximum.
func (c *Config) CheckExtractionSize(fileSize int64) error {
	if c.maxExtractionSize == -1 {
		return nil
	}
	if fileSize > c.maxExtractionSize {
		return ErrMaxExtractionSizeExceeded
	}
	return nil
}

func WithCacheInMemory(cache bool) ConfigOption {
	return func(c *Config) { c.cacheInMemory = cache }
}

func WithCreateDestination(create bool) ConfigOption {
	return func(c *Config) { c.createDestination = create }
}

func WithCustomCreateDirMode(mode fs.FileMode) ConfigOption {
	return func(c *Config) { c.customCreateDirMode = mode }
}

func WithCustomDecompressFileMode(mode fs.FileMode) ConfigOption {
	return func(c *Config) { c.customDecompressFileMode = mode }
}

func WithDenySymlinkExtraction(deny bool) ConfigOption {
	return func(c *Config) { c.denySymlinkExtraction = deny }
}

func WithDropFileAttributes(drop bool) ConfigOption {
	return func(c *Config) { c.dropFileAttributes = drop }
}

// WithFormat skips sniffing and treats the input as the given format.
func WithFormat(f Format) ConfigOption {
	return func(c *Config) { c.format = f }
}

func WithInsecureTraverseSymlinks(traverse bool) ConfigOption {
	return func(c *Config) { c.insecureTraverseSymlinks = traverse }
}

func WithLogger(l logger) ConfigOption {
	return func(c *Config) { c.logger = l }
}

func WithMaxExtractionSize(max int64) ConfigOption {
	return func(c *Config) { c.maxExtractionSize = max }
}

func WithMaxFiles(max int64) ConfigOption {
	return func(c *Config) { c.maxFiles = max }
}

func WithMaxInputSize(max int64) ConfigOption {
	return func(c *Config) { c.maxInputSize = max }
}

func WithNoUntarAfterDecompression(disable bool) ConfigOption {
	return func(c *Config) { c.noUntarAfterDecompression = disable }
}

func WithOverwrite(enable bool) ConfigOption {
	return func(c *Config) { c.overwrite = enable }
}

// WithWorkers bounds parallel entry writes for random access archives.
func WithWorkers(n int) ConfigOption {
	return func(c *Config) {
		if n < 1 {
			n = 1
		}
		c.workers = n
	}
}
