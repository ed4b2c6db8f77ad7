// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// seekerReaderAt combines the random access capabilities some codec
// libraries demand (zip central directory, 7z, cabinet folders).
type seekerReaderAt interface {
	io.ReaderAt
	io.Seeker
}

// readerToReaderAtSeeker gives random access over r. Sources that already
// support it are used directly; streams are spooled into memory or a
// temporary file, depending on the config. The returned cleanup must be
// called when the reader is no longer needed.
func readerToReaderAtSeeker(cfg *Config, r io.Reader) (seekerReaderAt, func() error, error) {
	noop := func() error { return nil }

	if s, ok := r.(seekerReaderAt); ok {
		return s, noop, nil
	}

	if cfg.CacheInMemory() {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot cache input in memory: %w", err)
		}
		return bytes.NewReader(b), noop, nil
	}

	tmp, err := os.CreateTemp("", "unbox-*")
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create spool file: %w", err)
	}
	cleanup := func() error {
		tmp.Close()
		return os.Remove(tmp.Name())
	}
	if _, err := io.Copy(tmp, r); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("cannot spool input: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, nil, err
	}
	return tmp, cleanup, nil
}

// sizeOf reports the total size of a seekable source and restores the
// offset to the start.
func sizeOf(s seekerReaderAt) (int64, error) {
	size, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return size, nil
}
