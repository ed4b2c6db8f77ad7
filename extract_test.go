// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"testing"
	"time"
)

type stubEntry struct {
	name string
	size int64
	open func() (io.ReadCloser, error)
}

func (s *stubEntry) Name() string                 { return s.name }
func (s *stubEntry) Size() int64                  { return s.size }
func (s *stubEntry) Mode() fs.FileMode            { return 0644 }
func (s *stubEntry) ModTime() time.Time           { return time.Time{} }
func (s *stubEntry) IsRegular() bool              { return true }
func (s *stubEntry) IsDir() bool                  { return false }
func (s *stubEntry) IsSymlink() bool              { return false }
func (s *stubEntry) Linkname() string             { return "" }
func (s *stubEntry) Type() fs.FileMode            { return 0 }
func (s *stubEntry) Open() (io.ReadCloser, error) { return s.open() }

// Two entries that together pass the extraction budget must not both be
// written when their writes overlap. The budget is claimed before the
// write, so the losing entry fails while the winner is still in flight.
func TestWriteEntryOverlappingBudget(t *testing.T) {
	dst := t.TempDir()
	cfg := NewConfig(WithMaxExtractionSize(100))
	rep := &Report{}
	td := NewDisk()

	opened := make(chan struct{})
	finish := make(chan struct{})
	first := &stubEntry{
		name: "first.bin",
		size: 80,
		open: func() (io.ReadCloser, error) {
			close(opened)
			<-finish
			return io.NopCloser(bytes.NewReader(make([]byte, 80))), nil
		},
	}
	second := &stubEntry{
		name: "second.bin",
		size: 80,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(make([]byte, 80))), nil
		},
	}

	errc := make(chan error, 1)
	go func() {
		errc <- writeEntry(context.Background(), td, dst, first, cfg, rep)
	}()
	<-opened

	// the first entry has claimed its bytes but committed nothing yet
	err := writeEntry(context.Background(), td, dst, second, cfg, rep)
	if !errors.Is(err, ErrMaxExtractionSizeExceeded) {
		t.Fatalf("overlapping entry: got %v, want ErrMaxExtractionSizeExceeded", err)
	}

	close(finish)
	if err := <-errc; err != nil {
		t.Fatalf("first entry: %v", err)
	}
	if rep.BytesWritten != 80 {
		t.Errorf("bytes written = %d, want only the 80 of the first entry", rep.BytesWritten)
	}
}

// A skipped entry must hand its budget claim back, so later entries can
// still use the full remainder.
func TestWriteEntrySkipReleasesBudget(t *testing.T) {
	dst := t.TempDir()
	cfg := NewConfig(WithMaxExtractionSize(100))
	rep := &Report{}
	td := NewDisk()

	broken := &stubEntry{
		name: "broken.bin",
		size: 80,
		open: func() (io.ReadCloser, error) {
			return nil, errors.New("payload unreadable")
		},
	}
	if err := writeEntry(context.Background(), td, dst, broken, cfg, rep); err != nil {
		t.Fatalf("broken entry: %v", err)
	}
	if len(rep.Skipped) != 1 {
		t.Fatalf("skipped = %d entries, want 1", len(rep.Skipped))
	}

	good := &stubEntry{
		name: "good.bin",
		size: 80,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(make([]byte, 80))), nil
		},
	}
	if err := writeEntry(context.Background(), td, dst, good, cfg, rep); err != nil {
		t.Fatalf("entry after skip: %v", err)
	}
	if rep.BytesWritten != 80 {
		t.Errorf("bytes written = %d, want 80", rep.BytesWritten)
	}
}
