// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"
)

// now is a function pointer so tests can control time.
var now = time.Now

// Unpack detects the format of src by content, composes the matching
// decoder pipeline and extracts into dst through t. A nil t extracts to
// the local filesystem, a nil cfg uses the defaults.
//
// The returned [Report] describes what was written and which entries were
// skipped. A nil error with a non-empty Skipped list is partial success;
// callers decide how loudly to surface it.
func Unpack(ctx context.Context, src io.Reader, dst string, t Target, cfg *Config) (*Report, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if t == nil {
		t = NewDisk()
	}
	start := now()

	header, stream, err := peekHeader(src)
	if err != nil {
		return nil, err
	}

	f := cfg.Format()
	if f == FormatUnknown {
		ra, size := readerAtOf(src)
		f = sniffHeader(header, ra, size, cfg).format
	}
	cfg.Logger().Info("detected format", "format", f)

	rep := &Report{Format: f}
	limited := newLimitErrorReader(stream, cfg.MaxInputSize())
	p, err := compose(f, limited)
	if err != nil {
		return rep, err
	}
	p.srcName = nameOf(src)

	err = p.run(ctx, t, dst, cfg, rep)
	rep.InputBytes = limited.ReadBytes()
	rep.Duration = now().Sub(start)
	return rep, err
}

// nameOf reports the base name of file-backed sources; the single-file
// output naming policy derives its output name from it.
func nameOf(src io.Reader) string {
	if f, ok := src.(*os.File); ok {
		return filepath.Base(f.Name())
	}
	return ""
}
