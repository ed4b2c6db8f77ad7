// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// magicBytesZstd are the magic bytes for zstandard compressed files.
// reference: https://www.rfc-editor.org/rfc/rfc8878.html
var magicBytesZstd = [][]byte{
	{0x28, 0xB5, 0x2F, 0xFD},
}

func isZstd(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesZstd)
}

// decompressZstdStream returns an io.Reader that decompresses src with the
// zstandard algorithm.
func decompressZstdStream(src io.Reader) (io.Reader, error) {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}
