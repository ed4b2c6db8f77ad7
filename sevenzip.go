// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"context"
	"io"
	"io/fs"
	"time"

	"github.com/bodgit/sevenzip"
)

// magicBytes7Zip are the magic bytes for 7-zip archives.
var magicBytes7Zip = [][]byte{
	{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C},
}

func is7Zip(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytes7Zip)
}

// newSevenZipWalker opens a 7-zip archive. Like zip, the format needs
// random access, so streamed input is spooled first.
func newSevenZipWalker(_ context.Context, src io.Reader, cfg *Config) (archiveWalker, error) {
	sra, cleanup, err := readerToReaderAtSeeker(cfg, src)
	if err != nil {
		return nil, err
	}
	size, err := sizeOf(sra)
	if err != nil {
		cleanup()
		return nil, err
	}
	zr, err := sevenzip.NewReader(sra, size)
	if err != nil {
		cleanup()
		return nil, err
	}
	return &sevenZipWalker{zr: zr, cleanup: cleanup}, nil
}

// sevenZipWalker walks the entries of a 7-zip archive. Entries inside one
// solid block share a decompression stream, so extraction stays
// sequential.
type sevenZipWalker struct {
	zr      *sevenzip.Reader
	fp      int
	cleanup func() error
}

func (s *sevenZipWalker) Format() Format {
	return Format7Zip
}

func (s *sevenZipWalker) Next() (archiveEntry, error) {
	if s.fp >= len(s.zr.File) {
		return nil, io.EOF
	}
	defer func() { s.fp++ }()
	return &sevenZipEntry{zf: s.zr.File[s.fp]}, nil
}

func (s *sevenZipWalker) Close() error {
	return s.cleanup()
}

// sevenZipEntry is one entry in a 7-zip archive.
type sevenZipEntry struct {
	zf *sevenzip.File
}

func (s *sevenZipEntry) Name() string {
	return s.zf.Name
}

func (s *sevenZipEntry) Size() int64 {
	return s.zf.FileInfo().Size()
}

func (s *sevenZipEntry) Mode() fs.FileMode {
	return s.zf.FileInfo().Mode()
}

func (s *sevenZipEntry) ModTime() time.Time {
	return s.zf.Modified
}

func (s *sevenZipEntry) IsRegular() bool {
	return s.zf.FileInfo().Mode().IsRegular()
}

func (s *sevenZipEntry) IsDir() bool {
	return s.zf.FileInfo().Mode().IsDir()
}

// the decoder does not surface symlinks
func (s *sevenZipEntry) IsSymlink() bool  { return false }
func (s *sevenZipEntry) Linkname() string { return "" }

func (s *sevenZipEntry) Open() (io.ReadCloser, error) {
	return s.zf.Open()
}

func (s *sevenZipEntry) Type() fs.FileMode {
	return s.zf.FileInfo().Mode().Type()
}
