// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// runWalker drives the terminal entry-extractor stage. Entry-local
// failures and unsafe paths become skip records and extraction continues;
// an error from the walker itself means the container framing is broken
// and is fatal.
func runWalker(ctx context.Context, t Target, dst string, w archiveWalker, cfg *Config, rep *Report) error {
	if cfg.CreateDestination() {
		if err := t.CreateDir(dst, cfg.CustomCreateDirMode()); err != nil {
			return fmt.Errorf("cannot create destination: %w", err)
		}
	}
	if _, err := t.Lstat(dst); err != nil {
		return fmt.Errorf("destination does not exist: %w", err)
	}

	cfg.Logger().Info("start extraction", "format", w.Format())

	if iw, ok := w.(indexedWalker); ok && cfg.Workers() > 1 {
		return extractIndexed(ctx, t, dst, iw, cfg, rep)
	}

	var counter int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ae, err := w.Next()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return asCodecError(w.Format(), err)
		case ae == nil:
			continue
		}

		counter++
		if err := cfg.CheckMaxFiles(counter); err != nil {
			return err
		}
		if err := writeEntry(ctx, t, dst, ae, cfg, rep); err != nil {
			return err
		}
	}
}

// extractIndexed extracts a random access archive with a bounded worker
// pool. Directories are created up front, so the only race left between
// file writers is the idempotent MkdirAll of shared parents. Symlinks are
// created last and sequentially to keep the path checks meaningful.
func extractIndexed(ctx context.Context, t Target, dst string, w indexedWalker, cfg *Config, rep *Report) error {
	entries := w.Entries()
	if err := cfg.CheckMaxFiles(int64(len(entries))); err != nil {
		return err
	}

	for _, ae := range entries {
		if ae.IsDir() {
			if err := writeEntry(ctx, t, dst, ae, cfg, rep); err != nil {
				return err
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers())
	for _, ae := range entries {
		if !ae.IsRegular() {
			continue
		}
		ae := ae
		g.Go(func() error {
			return writeEntry(gctx, t, dst, ae, cfg, rep)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, ae := range entries {
		if ae.IsDir() || ae.IsRegular() {
			continue
		}
		if err := writeEntry(ctx, t, dst, ae, cfg, rep); err != nil {
			return err
		}
	}
	return nil
}

// writeEntry extracts a single entry. A non-nil return is fatal for the
// whole run (resource budget, canceled context); everything entry-local is
// recorded as a skip instead.
func writeEntry(ctx context.Context, t Target, dst string, ae archiveEntry, cfg *Config, rep *Report) error {
	name := ae.Name()

	switch {
	case ae.IsDir():
		if err := createDir(t, dst, strings.TrimSuffix(name, "/"), entryDirMode(ae, cfg), cfg); err != nil {
			rep.skip(name, err.Error())
			return nil
		}
		rep.addDir()

	case ae.IsRegular():
		maxSize := cfg.MaxExtractionSize()
		var claimed int64
		if maxSize != -1 {
			if claimed = ae.Size(); claimed < 0 {
				claimed = 0
			}
			var err error
			maxSize, err = rep.reserveBudget(claimed, maxSize)
			if err != nil {
				return err
			}
		}

		fin, err := ae.Open()
		if err != nil {
			rep.releaseBudget(claimed)
			rep.skip(name, err.Error())
			return nil
		}
		defer fin.Close()

		cfg.Logger().Debug("extract", "name", name)
		n, err := createFile(t, dst, name, &ctxReader{ctx: ctx, r: fin}, entryFileMode(ae, cfg), maxSize, cfg)
		if err != nil {
			rep.releaseBudget(claimed)
			if fatal := fatalEntryError(err); fatal != nil {
				return fatal
			}
			rep.skip(name, err.Error())
			return nil
		}
		rep.addFile(n, claimed)
		applyAttributes(t, dst, name, ae, cfg)

	case ae.IsSymlink():
		if cfg.DenySymlinkExtraction() {
			rep.skip(name, "symlink extraction disabled")
			return nil
		}
		if err := createSymlink(t, dst, name, ae.Linkname(), cfg); err != nil {
			rep.skip(name, err.Error())
			return nil
		}
		rep.addSymlink()

	default:
		// tar writes a pax_global_header comment entry, not content
		if ae.Type()&tar.TypeXGlobalHeader == tar.TypeXGlobalHeader && name == "pax_global_header" {
			return nil
		}
		rep.skip(name, fmt.Sprintf("unsupported file type (%s)", ae.Type()))
	}

	return nil
}

// fatalEntryError picks the errors that must abort the whole extraction
// out of a per-entry failure.
func fatalEntryError(err error) error {
	switch {
	case errors.Is(err, ErrMaxExtractionSizeExceeded),
		errors.Is(err, ErrMaxInputSizeExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return nil
}

// applyAttributes applies the permission bits and times an entry carries.
// Formats or platforms without the concept degrade to ignore.
func applyAttributes(t Target, dst string, name string, ae archiveEntry, cfg *Config) {
	if cfg.DropFileAttributes() {
		return
	}
	path := filepath.Join(dst, filepath.Join(strings.Split(name, "/")...))
	if m := ae.Mode().Perm(); m != 0 {
		_ = t.Chmod(path, m)
	}
	if mt := ae.ModTime(); !mt.IsZero() {
		_ = t.Chtimes(path, mt, mt)
	}
}

func entryFileMode(ae archiveEntry, cfg *Config) fs.FileMode {
	if cfg.DropFileAttributes() {
		return 0644
	}
	if m := ae.Mode().Perm(); m != 0 {
		return m
	}
	return 0644
}

func entryDirMode(ae archiveEntry, cfg *Config) fs.FileMode {
	if cfg.DropFileAttributes() {
		return cfg.CustomCreateDirMode()
	}
	// user must keep rwx so extraction into the dir can continue
	if m := ae.Mode().Perm() | 0700; m != 0700 {
		return m
	}
	return cfg.CustomCreateDirMode()
}

// ctxReader aborts reads once the context is done, so a cancellation
// interrupts long copies instead of only being noticed between entries.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
