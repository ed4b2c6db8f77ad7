// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Format identifies one of the supported archive or compression formats.
// The set is closed and compiled in; tags are never assigned dynamically.
type Format int

const (
	// FormatUnknown is the zero value and means the input matched no
	// registered signature.
	FormatUnknown Format = iota

	FormatZip
	FormatAr
	FormatCab
	FormatPeCab
	FormatRar
	Format7Zip
	FormatTar
	FormatTarGzip
	FormatTarXz
	FormatTarBzip2
	FormatTarZstd
	FormatTarLz4
	FormatTarSnappy
	FormatTarZlib
	FormatGzip
	FormatXz
	FormatBzip2
	FormatZstd
	FormatLz4
	FormatSnappy
	FormatZlib
)

// formatInfo carries the presentation data for a format: the description
// shown to users and the conventional file suffix used by the single-file
// output naming policy.
type formatInfo struct {
	description string
	ext         string
}

var formatInfos = map[Format]formatInfo{
	FormatZip:       {"zip archive", "zip"},
	FormatAr:        {"unix ar archive", "a"},
	FormatCab:       {"microsoft cabinet", "cab"},
	FormatPeCab:     {"windows executable with embedded cabinet", "exe"},
	FormatRar:       {"rar archive", "rar"},
	Format7Zip:      {"7-zip archive", "7z"},
	FormatTar:       {"uncompressed tarball", "tar"},
	FormatTarGzip:   {"gzip-compressed tarball", "tar.gz"},
	FormatTarXz:     {"xz-compressed tarball", "tar.xz"},
	FormatTarBzip2:  {"bzip2-compressed tarball", "tar.bz2"},
	FormatTarZstd:   {"zstandard-compressed tarball", "tar.zst"},
	FormatTarLz4:    {"lz4-compressed tarball", "tar.lz4"},
	FormatTarSnappy: {"snappy-compressed tarball", "tar.sz"},
	FormatTarZlib:   {"zlib-compressed tarball", "tar.zz"},
	FormatGzip:      {"gzip-compressed file", "gz"},
	FormatXz:        {"xz-compressed file", "xz"},
	FormatBzip2:     {"bzip2-compressed file", "bz2"},
	FormatZstd:      {"zstandard-compressed file", "zst"},
	FormatLz4:       {"lz4-compressed file", "lz4"},
	FormatSnappy:    {"snappy-compressed file", "sz"},
	FormatZlib:      {"zlib-compressed file", "zz"},
}

// String returns the human readable description of the format.
func (f Format) String() string {
	if info, ok := formatInfos[f]; ok {
		return info.description
	}
	return "unknown"
}

// Ext returns the conventional file suffix of the format, without the
// leading dot.
func (f Format) Ext() string {
	return formatInfos[f].ext
}

// Formats returns all supported format tags in a stable order.
func Formats() []Format {
	fs := make([]Format, 0, len(formatInfos))
	for f := range formatInfos {
		fs = append(fs, f)
	}
	sort.Slice(fs, func(i, j int) bool { return fs[i] < fs[j] })
	return fs
}

// MarshalJSON encodes the format as its conventional suffix, so the tag
// stays readable in serialized reports.
func (f Format) MarshalJSON() ([]byte, error) {
	if _, ok := formatInfos[f]; !ok {
		return json.Marshal("unknown")
	}
	return json.Marshal(f.Ext())
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (f *Format) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "unknown" {
		*f = FormatUnknown
		return nil
	}
	parsed, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFormat maps a conventional suffix (e.g. "zip", "tar.gz") back to
// its format tag.
func ParseFormat(s string) (Format, error) {
	for f, info := range formatInfos {
		if s == info.ext {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("unknown format %q", s)
}

// signature is one entry of the signature table. A signature matches if
// all magic byte patterns are absent or one of them matches at the given
// offset, and the predicate (if any) accepts the input. Predicates receive
// a random access view of the source when one is available, so layered
// signatures (a PE image carrying a cabinet in its overlay) can probe
// beyond the sniffed prefix.
type signature struct {
	format      Format
	offset      int
	patterns    [][]byte
	check       func(header []byte, src io.ReaderAt, size int64) bool
	specificity int

	// tar names the composite tag to promote to when the decompressed
	// prefix of this compression format holds a tar header.
	tar Format
}

// signatures is the static signature table. It is sorted by descending
// specificity in init, so the first match wins and layered detections
// (PE-wrapped cabinet) outrank their simpler sub-signature (bare cabinet).
var signatures = []signature{
	{format: FormatPeCab, patterns: magicBytesPe, check: checkPeCab, specificity: 100},
	{format: FormatCab, patterns: magicBytesCab, specificity: 90},
	{format: FormatTar, offset: offsetTar, patterns: magicBytesTar, specificity: 80},
	{format: Format7Zip, patterns: magicBytes7Zip, specificity: 70},
	{format: FormatRar, patterns: magicBytesRar, specificity: 70},
	{format: FormatXz, patterns: magicBytesXz, specificity: 60, tar: FormatTarXz},
	{format: FormatSnappy, patterns: magicBytesSnappy, specificity: 60, tar: FormatTarSnappy},
	{format: FormatZip, patterns: magicBytesZip, specificity: 50},
	{format: FormatAr, patterns: magicBytesAr, specificity: 50},
	{format: FormatZstd, patterns: magicBytesZstd, specificity: 50, tar: FormatTarZstd},
	{format: FormatLz4, patterns: magicBytesLz4, specificity: 50, tar: FormatTarLz4},
	{format: FormatBzip2, patterns: magicBytesBzip2, specificity: 40, tar: FormatTarBzip2},
	{format: FormatGzip, patterns: magicBytesGzip, specificity: 40, tar: FormatTarGzip},
	{format: FormatZlib, patterns: magicBytesZlib, specificity: 10, tar: FormatTarZlib},
}

// maxHeaderLength is the longest prefix any magic byte signature needs.
// Inputs shorter than this still sniff; missing bytes simply never match.
var maxHeaderLength int

func init() {
	sort.SliceStable(signatures, func(i, j int) bool {
		return signatures[i].specificity > signatures[j].specificity
	})
	for _, sig := range signatures {
		needs := sig.offset
		for _, p := range sig.patterns {
			if sig.offset+len(p) > needs {
				needs = sig.offset + len(p)
			}
		}
		if needs > maxHeaderLength {
			maxHeaderLength = needs
		}
	}
}

// matchesMagicBytes reports whether one of the magic byte patterns matches
// data at the given offset. Data shorter than offset+pattern never matches.
func matchesMagicBytes(data []byte, offset int, patterns [][]byte) bool {
	for _, p := range patterns {
		if offset+len(p) > len(data) {
			continue
		}
		if bytes.Equal(p, data[offset:offset+len(p)]) {
			return true
		}
	}
	return false
}
