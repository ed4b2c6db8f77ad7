// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"os"
	"time"
)

// magicBytesZip contains the magic bytes for a zip local file header.
var magicBytesZip = [][]byte{
	{0x50, 0x4B, 0x03, 0x04},
}

func isZip(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesZip)
}

// newZipWalker opens a zip archive. The zip central directory needs random
// access, so streamed input is spooled first (memory or temp file per the
// config).
func newZipWalker(_ context.Context, src io.Reader, cfg *Config) (archiveWalker, error) {
	sra, cleanup, err := readerToReaderAtSeeker(cfg, src)
	if err != nil {
		return nil, err
	}
	size, err := sizeOf(sra)
	if err != nil {
		cleanup()
		return nil, err
	}
	zr, err := zip.NewReader(sra, size)
	if err != nil {
		cleanup()
		return nil, err
	}
	return &zipWalker{zr: zr, cleanup: cleanup}, nil
}

// zipWalker walks the entries of a zip archive. Entries are independently
// openable, so it also serves as an indexedWalker for parallel extraction.
type zipWalker struct {
	zr      *zip.Reader
	fp      int
	cleanup func() error
}

func (z *zipWalker) Format() Format {
	return FormatZip
}

func (z *zipWalker) Next() (archiveEntry, error) {
	if z.fp >= len(z.zr.File) {
		return nil, io.EOF
	}
	defer func() { z.fp++ }()
	return &zipEntry{zf: z.zr.File[z.fp]}, nil
}

func (z *zipWalker) Entries() []archiveEntry {
	entries := make([]archiveEntry, len(z.zr.File))
	for i, zf := range z.zr.File {
		entries[i] = &zipEntry{zf: zf}
	}
	return entries
}

func (z *zipWalker) Close() error {
	return z.cleanup()
}

// zipEntry is one entry in a zip archive.
type zipEntry struct {
	zf *zip.File
}

func (z *zipEntry) Name() string {
	return z.zf.Name
}

func (z *zipEntry) Size() int64 {
	return int64(z.zf.UncompressedSize64)
}

func (z *zipEntry) Mode() fs.FileMode {
	return z.zf.Mode()
}

func (z *zipEntry) ModTime() time.Time {
	return z.zf.Modified
}

func (z *zipEntry) IsRegular() bool {
	return z.zf.Mode().Type() == 0
}

func (z *zipEntry) IsDir() bool {
	return z.zf.Mode().Type() == os.ModeDir
}

func (z *zipEntry) IsSymlink() bool {
	return z.zf.Mode().Type() == os.ModeSymlink
}

// Linkname reads the entry content; zip stores the link target as the
// file body.
func (z *zipEntry) Linkname() string {
	rc, err := z.zf.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	return string(data)
}

func (z *zipEntry) Open() (io.ReadCloser, error) {
	return z.zf.Open()
}

func (z *zipEntry) Type() fs.FileMode {
	return z.zf.Mode().Type()
}
