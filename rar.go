// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"context"
	"io"
	"io/fs"
	"time"

	"github.com/nwaples/rardecode"
)

// magicBytesRar are the magic bytes for rar v4 and v5 archives.
var magicBytesRar = [][]byte{
	{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00},
	{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01, 0x00},
}

func isRar(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesRar)
}

func newRarWalker(_ context.Context, src io.Reader, _ *Config) (archiveWalker, error) {
	rr, err := rardecode.NewReader(src, "")
	if err != nil {
		return nil, err
	}
	return &rarWalker{rr: rr}, nil
}

// rarWalker walks the entries of a rar archive.
type rarWalker struct {
	rr *rardecode.Reader
}

func (r *rarWalker) Format() Format {
	return FormatRar
}

func (r *rarWalker) Next() (archiveEntry, error) {
	hdr, err := r.rr.Next()
	if err != nil {
		return nil, err
	}
	return &rarEntry{hdr: hdr, r: r.rr}, nil
}

func (r *rarWalker) Close() error {
	return nil
}

// rarEntry is one entry in a rar archive. Its content must be consumed
// before the walker advances.
type rarEntry struct {
	hdr *rardecode.FileHeader
	r   io.Reader
}

func (r *rarEntry) Name() string {
	return r.hdr.Name
}

func (r *rarEntry) Size() int64 {
	if r.hdr.UnKnownSize {
		return 0
	}
	return r.hdr.UnPackedSize
}

func (r *rarEntry) Mode() fs.FileMode {
	return r.hdr.Mode()
}

func (r *rarEntry) ModTime() time.Time {
	return r.hdr.ModificationTime
}

func (r *rarEntry) IsRegular() bool {
	return !r.hdr.IsDir
}

func (r *rarEntry) IsDir() bool {
	return r.hdr.IsDir
}

// rar symlinks are not supported by the decoder, they surface as regular
// files holding the target path
func (r *rarEntry) IsSymlink() bool  { return false }
func (r *rarEntry) Linkname() string { return "" }

func (r *rarEntry) Open() (io.ReadCloser, error) {
	return io.NopCloser(r.r), nil
}

func (r *rarEntry) Type() fs.FileMode {
	return r.hdr.Mode().Type()
}
