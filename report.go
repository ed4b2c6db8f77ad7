// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"encoding/json"
	"sync"
	"time"
)

// SkippedEntry records one archive entry that was not extracted, and why.
type SkippedEntry struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Report summarizes the observable side effects of one extraction.
type Report struct {
	// Format is the detected (or forced) input format.
	Format Format `json:"format"`

	// EntriesWritten is the number of regular files written.
	EntriesWritten int64 `json:"entries_written"`

	// DirsCreated is the number of directories created from archive
	// entries.
	DirsCreated int64 `json:"dirs_created"`

	// SymlinksCreated is the number of symlinks created.
	SymlinksCreated int64 `json:"symlinks_created"`

	// BytesWritten is the total decompressed output size.
	BytesWritten int64 `json:"bytes_written"`

	// InputBytes is how much of the input was consumed.
	InputBytes int64 `json:"input_bytes"`

	// Duration is the wall time of the extraction.
	Duration time.Duration `json:"duration"`

	// Skipped lists the entries that were not extracted. With parallel
	// workers the order follows write completion, not the archive.
	Skipped []SkippedEntry `json:"skipped"`

	mu       sync.Mutex
	inFlight int64
}

// String renders the report as JSON.
func (r *Report) String() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// addFile commits written bytes and settles the claim made for the entry
// by reserveBudget in the same critical section.
func (r *Report) addFile(written, claimed int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.EntriesWritten++
	r.BytesWritten += written
	r.inFlight -= claimed
}

func (r *Report) addDir() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DirsCreated++
}

func (r *Report) addSymlink() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SymlinksCreated++
}

func (r *Report) skip(name, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped = append(r.Skipped, SkippedEntry{Name: name, Reason: reason})
}

// reserveBudget claims size bytes of the extraction budget before an
// entry is written. Committed and in-flight bytes count against max
// together, so parallel entry writers cannot jointly pass the limit
// between the check and the write. It returns the budget left for the
// entry's writer; the claim is settled through addFile or handed back
// with releaseBudget.
func (r *Report) reserveBudget(size, max int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	used := r.BytesWritten + r.inFlight
	if used+size > max {
		return 0, ErrMaxExtractionSizeExceeded
	}
	r.inFlight += size
	return max - used, nil
}

// releaseBudget returns a claim from reserveBudget without committing
// any bytes.
func (r *Report) releaseBudget(size int64) {
	if size <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight -= size
}
