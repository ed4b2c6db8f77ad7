// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

// magicBytesLz4 are the magic bytes of the lz4 frame format.
// reference: https://github.com/lz4/lz4/blob/dev/doc/lz4_Frame_format.md
var magicBytesLz4 = [][]byte{
	{0x04, 0x22, 0x4D, 0x18},
}

func isLz4(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesLz4)
}

// decompressLz4Stream returns an io.Reader that decompresses src with the
// lz4 algorithm.
func decompressLz4Stream(src io.Reader) (io.Reader, error) {
	return lz4.NewReader(src), nil
}
