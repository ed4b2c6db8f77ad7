// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"io"

	"github.com/klauspost/compress/zlib"
)

// magicBytesZlib are the common zlib header bytes (deflate with the four
// standard compression levels). Two bytes are a weak signature, so zlib
// carries the lowest specificity in the table and only matches when
// nothing else does.
var magicBytesZlib = [][]byte{
	{0x78, 0x01},
	{0x78, 0x5E},
	{0x78, 0x9C},
	{0x78, 0xDA},
}

func isZlib(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesZlib)
}

// decompressZlibStream returns an io.Reader that decompresses src with the
// zlib algorithm.
func decompressZlibStream(src io.Reader) (io.Reader, error) {
	return zlib.NewReader(src)
}
