// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"archive/tar"
	"context"
	"io"
	"io/fs"
	"time"
)

// offsetTar is where the magic bytes are located in a tar file.
const offsetTar = 257

// magicBytesTar are the magic bytes for the ustar and gnu tar variants.
var magicBytesTar = [][]byte{
	[]byte("ustar\x00tar\x00"),
	[]byte("ustar\x00"),
	[]byte("ustar  \x00"),
}

func isTar(header []byte) bool {
	return matchesMagicBytes(header, offsetTar, magicBytesTar)
}

func newTarWalker(_ context.Context, src io.Reader, _ *Config) (archiveWalker, error) {
	return &tarWalker{tr: tar.NewReader(src)}, nil
}

// tarWalker walks the entries of a tar stream.
type tarWalker struct {
	tr *tar.Reader
}

func (t *tarWalker) Format() Format {
	return FormatTar
}

func (t *tarWalker) Next() (archiveEntry, error) {
	hdr, err := t.tr.Next()
	if err != nil {
		return nil, err
	}
	return &tarEntry{hdr: hdr, tr: t.tr}, nil
}

func (t *tarWalker) Close() error {
	return nil
}

// tarEntry is one entry in a tar archive. Its content must be consumed
// before the walker advances.
type tarEntry struct {
	hdr *tar.Header
	tr  *tar.Reader
}

func (t *tarEntry) Name() string {
	return t.hdr.Name
}

func (t *tarEntry) Size() int64 {
	return t.hdr.Size
}

func (t *tarEntry) Mode() fs.FileMode {
	return t.hdr.FileInfo().Mode()
}

func (t *tarEntry) ModTime() time.Time {
	return t.hdr.ModTime
}

func (t *tarEntry) IsRegular() bool {
	return t.hdr.Typeflag == tar.TypeReg
}

func (t *tarEntry) IsDir() bool {
	return t.hdr.Typeflag == tar.TypeDir
}

func (t *tarEntry) IsSymlink() bool {
	return t.hdr.Typeflag == tar.TypeSymlink
}

func (t *tarEntry) Linkname() string {
	return t.hdr.Linkname
}

func (t *tarEntry) Open() (io.ReadCloser, error) {
	return io.NopCloser(t.tr), nil
}

func (t *tarEntry) Type() fs.FileMode {
	return fs.FileMode(t.hdr.Typeflag)
}
