// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"io"

	"github.com/klauspost/compress/snappy"
)

// magicBytesSnappy are the magic bytes of the snappy framing format.
var magicBytesSnappy = [][]byte{
	append([]byte{0xFF, 0x06, 0x00, 0x00}, []byte("sNaPpY")...),
}

func isSnappy(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesSnappy)
}

// decompressSnappyStream returns an io.Reader that decompresses src with
// the snappy algorithm.
func decompressSnappyStream(src io.Reader) (io.Reader, error) {
	return snappy.NewReader(src), nil
}
