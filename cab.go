// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"context"
	"debug/pe"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/hashicorp/unbox/internal/cabfile"
)

// magicBytesCab contains the magic bytes of a Microsoft cabinet.
var magicBytesCab = [][]byte{
	[]byte("MSCF"),
}

// magicBytesPe contains the DOS stub magic every Windows executable
// starts with. It is far too weak on its own; the PE-cabinet signature
// pairs it with an overlay probe.
var magicBytesPe = [][]byte{
	[]byte("MZ"),
}

func isCab(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesCab)
}

// checkPeCab reports whether src is a PE image whose overlay (the bytes
// past the last section) starts with a cabinet. Self-extracting installers
// are laid out this way. Without random access to the source the overlay
// cannot be reached, so plain streams never match.
func checkPeCab(_ []byte, src io.ReaderAt, size int64) bool {
	if src == nil {
		return false
	}
	overlay, err := peOverlayOffset(src, size)
	if err != nil || overlay <= 0 || overlay+4 > size {
		return false
	}
	var sig [4]byte
	if _, err := src.ReadAt(sig[:], overlay); err != nil {
		return false
	}
	return isCab(sig[:])
}

// peOverlayOffset parses the PE section table and returns the offset of
// the first byte past all raw section data.
func peOverlayOffset(src io.ReaderAt, size int64) (int64, error) {
	pf, err := pe.NewFile(io.NewSectionReader(src, 0, size))
	if err != nil {
		return 0, err
	}
	defer pf.Close()

	var end int64
	for _, s := range pf.Sections {
		if e := int64(s.Offset) + int64(s.Size); e > end {
			end = e
		}
	}
	if end == 0 {
		return 0, fmt.Errorf("executable has no section data")
	}
	return end, nil
}

// newCabWalker opens a cabinet archive. Cabinet folders need random
// access, so streamed input is spooled first.
func newCabWalker(_ context.Context, src io.Reader, cfg *Config) (archiveWalker, error) {
	sra, cleanup, err := readerToReaderAtSeeker(cfg, src)
	if err != nil {
		return nil, err
	}
	size, err := sizeOf(sra)
	if err != nil {
		cleanup()
		return nil, err
	}
	cab, err := cabfile.New(sra, size)
	if err != nil {
		cleanup()
		return nil, err
	}
	return &cabWalker{format: FormatCab, files: cab.Files(), cleanup: cleanup}, nil
}

// newPeCabWalker opens the cabinet embedded in the overlay of a Windows
// executable. Everything before the overlay is discarded.
func newPeCabWalker(_ context.Context, src io.Reader, cfg *Config) (archiveWalker, error) {
	sra, cleanup, err := readerToReaderAtSeeker(cfg, src)
	if err != nil {
		return nil, err
	}
	size, err := sizeOf(sra)
	if err != nil {
		cleanup()
		return nil, err
	}
	overlay, err := peOverlayOffset(sra, size)
	if err != nil {
		cleanup()
		return nil, err
	}
	if overlay >= size {
		cleanup()
		return nil, fmt.Errorf("executable carries no overlay data")
	}
	cab, err := cabfile.New(io.NewSectionReader(sra, overlay, size-overlay), size-overlay)
	if err != nil {
		cleanup()
		return nil, err
	}
	return &cabWalker{format: FormatPeCab, files: cab.Files(), cleanup: cleanup}, nil
}

// cabWalker walks the files of a cabinet. Iteration is sequential;
// cabinet folders are solid compression units, so fanning file reads out
// buys nothing.
type cabWalker struct {
	format  Format
	files   []*cabfile.File
	fp      int
	cleanup func() error
}

func (c *cabWalker) Format() Format {
	return c.format
}

func (c *cabWalker) Next() (archiveEntry, error) {
	if c.fp >= len(c.files) {
		return nil, io.EOF
	}
	defer func() { c.fp++ }()
	return &cabEntry{f: c.files[c.fp]}, nil
}

func (c *cabWalker) Close() error {
	return c.cleanup()
}

// cabEntry is one file in a cabinet. Cabinets store regular files only;
// directories exist as path components of the stored names.
type cabEntry struct {
	f *cabfile.File
}

// Name normalizes the DOS path separators cabinets are written with.
func (c *cabEntry) Name() string {
	return strings.ReplaceAll(c.f.Name, `\`, "/")
}

func (c *cabEntry) Size() int64 {
	return c.f.Size
}

func (c *cabEntry) Mode() fs.FileMode {
	return 0644
}

func (c *cabEntry) ModTime() time.Time {
	return c.f.Modified
}

func (c *cabEntry) IsRegular() bool {
	return true
}

func (c *cabEntry) IsDir() bool {
	return false
}

func (c *cabEntry) IsSymlink() bool {
	return false
}

func (c *cabEntry) Linkname() string {
	return ""
}

func (c *cabEntry) Open() (io.ReadCloser, error) {
	return c.f.Open()
}

func (c *cabEntry) Type() fs.FileMode {
	return 0
}
