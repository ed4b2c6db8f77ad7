// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"fmt"
	"io"
)

// headerReader buffers the first bytes of a stream so they can be
// inspected for format detection and still be consumed again by the
// decoder. Sources shorter than the requested size yield a short header
// instead of an error.
type headerReader struct {
	r      io.Reader
	header []byte
	pos    int
}

func newHeaderReader(r io.Reader, size int) (*headerReader, error) {
	buf := make([]byte, size)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("cannot read header: %w", err)
	}
	return &headerReader{r: r, header: buf[:n]}, nil
}

// Header returns the buffered prefix. The slice stays valid regardless of
// how far the reader has advanced.
func (h *headerReader) Header() []byte {
	return h.header
}

func (h *headerReader) Read(b []byte) (int, error) {
	if h.pos < len(h.header) {
		n := copy(b, h.header[h.pos:])
		h.pos += n
		return n, nil
	}
	return h.r.Read(b)
}
