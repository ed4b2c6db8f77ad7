// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"bytes"
	"io"
	"os"
)

// sniffLen is how many bytes of the input are inspected for format
// detection. It is generous because detecting a tarball behind block
// compression (bzip2 in particular) needs enough compressed input to
// decode the first 512-byte tar header.
const sniffLen = 128 * 1024

// sniffResult is the outcome of format detection. header is the length of
// the prefix that was buffered during detection; decoders that care about
// lookahead can rely on the stream still starting at byte 0.
type sniffResult struct {
	format Format
	header int
}

// Detect reports the format of r by content. The returned reader replays
// the stream from byte 0, so it can be handed to a decoder afterwards.
// Detection is deterministic and has no side effect beyond a bounded read
// (seekable sources are rewound instead of buffered).
func Detect(r io.Reader) (Format, io.Reader, error) {
	header, stream, err := peekHeader(r)
	if err != nil {
		return FormatUnknown, nil, err
	}
	ra, size := readerAtOf(r)
	res := sniffHeader(header, ra, size, NewConfig())
	return res.format, stream, nil
}

// peekHeader reads up to sniffLen bytes of src without consuming them for
// good: seekable sources are reset to offset 0 and returned as-is, all
// others are wrapped so the buffered prefix is replayed.
func peekHeader(src io.Reader) ([]byte, io.Reader, error) {
	if s, ok := src.(io.ReadSeeker); ok {
		buf := make([]byte, sniffLen)
		n, err := io.ReadFull(s, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return nil, nil, err
		}
		if _, err := s.Seek(0, io.SeekStart); err != nil {
			return nil, nil, err
		}
		return buf[:n], s, nil
	}
	hr, err := newHeaderReader(src, sniffLen)
	if err != nil {
		return nil, nil, err
	}
	return hr.Header(), hr, nil
}

// readerAtOf derives a random access view of src when the source supports
// one. Layered signatures (PE overlay probing) need it; pure streams
// return nil and those signatures simply never match.
func readerAtOf(src io.Reader) (io.ReaderAt, int64) {
	switch s := src.(type) {
	case *os.File:
		if fi, err := s.Stat(); err == nil {
			return s, fi.Size()
		}
	case *bytes.Reader:
		return s, s.Size()
	case interface {
		io.ReaderAt
		io.Seeker
	}:
		size, err := s.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0
		}
		if _, err := s.Seek(0, io.SeekStart); err != nil {
			return nil, 0
		}
		return s, size
	}
	return nil, 0
}

// sniffHeader evaluates the signature table against the sniffed prefix and
// returns the most specific match. Compression formats are additionally
// probed for a tar payload and promoted to their composite tag, unless the
// config disables untar-after-decompression.
func sniffHeader(header []byte, ra io.ReaderAt, size int64, cfg *Config) sniffResult {
	for _, sig := range signatures {
		if len(sig.patterns) > 0 && !matchesMagicBytes(header, sig.offset, sig.patterns) {
			continue
		}
		if sig.check != nil && !sig.check(header, ra, size) {
			continue
		}
		format := sig.format
		if sig.tar != FormatUnknown && !cfg.NoUntarAfterDecompression() && probesTar(format, header) {
			format = sig.tar
		}
		return sniffResult{format: format, header: len(header)}
	}
	return sniffResult{format: FormatUnknown, header: len(header)}
}

// probesTar decompresses the sniffed prefix with the byte transform
// registered for the compression format and checks the output for a tar
// header. The input is truncated, so decoder errors are expected and mean
// "not a tarball" rather than failure.
func probesTar(f Format, header []byte) bool {
	tmpl, ok := decoders[f]
	if !ok || len(tmpl) == 0 || tmpl[0].kind != stageTransform {
		return false
	}
	dec, err := tmpl[0].transform(bytes.NewReader(header))
	if err != nil {
		return false
	}
	if closer, ok := dec.(io.Closer); ok {
		defer closer.Close()
	}
	probe := make([]byte, offsetTar+maxMagicLen(magicBytesTar))
	n, _ := io.ReadFull(dec, probe)
	return isTar(probe[:n])
}

func maxMagicLen(patterns [][]byte) int {
	max := 0
	for _, p := range patterns {
		if len(p) > max {
			max = len(p)
		}
	}
	return max
}
