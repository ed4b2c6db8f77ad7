// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"io"

	"github.com/klauspost/pgzip"
)

// magicBytesGzip are the magic bytes for gzip compressed files.
var magicBytesGzip = [][]byte{
	{0x1f, 0x8b},
}

func isGzip(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesGzip)
}

// decompressGzipStream returns an io.Reader that decompresses src with the
// gzip algorithm.
func decompressGzipStream(src io.Reader) (io.Reader, error) {
	return pgzip.NewReader(src)
}
