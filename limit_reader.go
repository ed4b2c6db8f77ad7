// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import "io"

// limitErrorReader reads at most limit bytes from the underlying reader
// and errors with [ErrMaxInputSizeExceeded] once the limit would be
// passed. limit == -1 disables the check.
type limitErrorReader struct {
	r     io.Reader
	limit int64
	read  int64
}

func newLimitErrorReader(r io.Reader, limit int64) *limitErrorReader {
	return &limitErrorReader{r: r, limit: limit}
}

func (l *limitErrorReader) Read(p []byte) (int, error) {
	if l.limit >= 0 {
		if l.read >= l.limit {
			return 0, ErrMaxInputSizeExceeded
		}
		if max := l.limit - l.read; int64(len(p)) > max {
			p = p[:max]
		}
	}
	n, err := l.r.Read(p)
	l.read += int64(n)
	return n, err
}

// ReadBytes returns how many bytes have been read so far.
func (l *limitErrorReader) ReadBytes() int64 {
	return l.read
}

// limitErrorWriter writes at most limit bytes to the underlying writer and
// errors with [ErrMaxExtractionSizeExceeded] beyond that. limit == -1
// disables the check.
type limitErrorWriter struct {
	w       io.Writer
	limit   int64
	written int64
}

func limitWriter(w io.Writer, limit int64) io.Writer {
	return &limitErrorWriter{w: w, limit: limit}
}

func (l *limitErrorWriter) Write(p []byte) (int, error) {
	if l.limit >= 0 && l.written+int64(len(p)) > l.limit {
		// write what fits so the caller sees an accurate count
		p = p[:l.limit-l.written]
		n, err := l.w.Write(p)
		l.written += int64(n)
		if err != nil {
			return n, err
		}
		return n, ErrMaxExtractionSizeExceeded
	}
	n, err := l.w.Write(p)
	l.written += int64(n)
	return n, err
}
