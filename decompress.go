// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

// decompressToFile drives a terminal byte-transform stage: the decompressed
// stream goes into a single output file named by the format's naming
// policy. On any failure, including cancellation, the target removes the
// partially written output so no artifacts are left behind.
func decompressToFile(ctx context.Context, t Target, dst string, src io.Reader, cfg *Config, rep *Report, f Format, srcName string) error {
	dir, name := determineOutputName(t, dst, srcName, f)
	cfg.Logger().Debug("determined output name", "name", name)

	n, err := createFile(t, dir, name, &ctxReader{ctx: ctx, r: src}, cfg.CustomDecompressFileMode(), cfg.MaxExtractionSize(), cfg)
	if err != nil {
		return err
	}
	rep.addFile(n, 0)
	return nil
}

// determineOutputName derives the output directory and file name for
// single-file decompression. If dst names something that is not an
// existing directory it is taken as the explicit output file. Otherwise
// the name comes from the input file with the format's conventional
// suffix stripped.
func determineOutputName(t Target, dst string, srcName string, f Format) (string, string) {
	if dst != "." && dst != "" {
		if fi, err := t.Lstat(dst); err != nil || !fi.IsDir() {
			return filepath.Dir(dst), filepath.Base(dst)
		}
	}

	name := filepath.Base(srcName)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return dst, "unbox-decompressed-content"
	}

	if trimmed := strings.TrimSuffix(name, "."+f.Ext()); trimmed != name && trimmed != "" {
		return dst, trimmed
	}
	return dst, name + ".decompressed"
}
