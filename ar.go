// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"context"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/blakesmith/ar"
)

// magicBytesAr is the global header of a unix ar archive.
var magicBytesAr = [][]byte{
	[]byte("!<arch>\n"),
}

func isAr(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesAr)
}

func newArWalker(_ context.Context, src io.Reader, _ *Config) (archiveWalker, error) {
	return &arWalker{ar: ar.NewReader(src)}, nil
}

// arWalker walks the members of a unix ar archive. ar only holds flat,
// regular files.
type arWalker struct {
	ar *ar.Reader
}

func (a *arWalker) Format() Format {
	return FormatAr
}

func (a *arWalker) Next() (archiveEntry, error) {
	for {
		hdr, err := a.ar.Next()
		if err != nil {
			return nil, err
		}
		name := arMemberName(hdr.Name)
		// skip the GNU symbol and string table pseudo members
		if name == "" || name == "/" || name == "//" {
			continue
		}
		return &arEntry{hdr: hdr, name: name, r: a.ar}, nil
	}
}

func (a *arWalker) Close() error {
	return nil
}

// arMemberName strips the decorations ar variants put on member names:
// GNU appends "/", BSD pads with spaces.
func arMemberName(name string) string {
	name = strings.TrimRight(name, " ")
	if name != "/" && name != "//" {
		name = strings.TrimSuffix(name, "/")
	}
	return name
}

// arEntry is one member of an ar archive. Its content must be consumed
// before the walker advances.
type arEntry struct {
	hdr  *ar.Header
	name string
	r    io.Reader
}

func (a *arEntry) Name() string {
	return a.name
}

func (a *arEntry) Size() int64 {
	return a.hdr.Size
}

func (a *arEntry) Mode() fs.FileMode {
	return fs.FileMode(a.hdr.Mode).Perm()
}

func (a *arEntry) ModTime() time.Time {
	return a.hdr.ModTime
}

func (a *arEntry) IsRegular() bool { return true }
func (a *arEntry) IsDir() bool     { return false }
func (a *arEntry) IsSymlink() bool { return false }
func (a *arEntry) Linkname() string { return "" }

func (a *arEntry) Open() (io.ReadCloser, error) {
	return io.NopCloser(a.r), nil
}

func (a *arEntry) Type() fs.FileMode {
	return 0
}
