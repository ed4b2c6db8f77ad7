// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLimitErrorReader(t *testing.T) {
	r := newLimitErrorReader(strings.NewReader("0123456789"), 4)
	data, err := io.ReadAll(r)
	if !errors.Is(err, ErrMaxInputSizeExceeded) {
		t.Fatalf("error = %v, want %v", err, ErrMaxInputSizeExceeded)
	}
	if string(data) != "0123" {
		t.Errorf("read %q, want the bytes below the limit", data)
	}
	if r.ReadBytes() != 4 {
		t.Errorf("ReadBytes() = %d, want 4", r.ReadBytes())
	}
}

func TestLimitErrorReaderDisabled(t *testing.T) {
	r := newLimitErrorReader(strings.NewReader("0123456789"), -1)
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if len(data) != 10 {
		t.Errorf("read %d bytes, want 10", len(data))
	}
}

func TestLimitErrorWriter(t *testing.T) {
	var buf bytes.Buffer
	w := limitWriter(&buf, 4)

	n, err := w.Write([]byte("0123456789"))
	if !errors.Is(err, ErrMaxExtractionSizeExceeded) {
		t.Fatalf("error = %v, want %v", err, ErrMaxExtractionSizeExceeded)
	}
	if n != 4 || buf.String() != "0123" {
		t.Errorf("wrote %d bytes (%q), want the bytes below the limit", n, buf.String())
	}
}

func TestHeaderReaderReplay(t *testing.T) {
	input := "a short stream"
	hr, err := newHeaderReader(strings.NewReader(input), 5)
	if err != nil {
		t.Fatalf("newHeaderReader() error = %v", err)
	}
	if string(hr.Header()) != "a sho" {
		t.Errorf("Header() = %q, want %q", hr.Header(), "a sho")
	}

	replayed, err := io.ReadAll(hr)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if string(replayed) != input {
		t.Errorf("replayed %q, want %q", replayed, input)
	}
}

func TestHeaderReaderShortSource(t *testing.T) {
	hr, err := newHeaderReader(strings.NewReader("ab"), 1024)
	if err != nil {
		t.Fatalf("newHeaderReader() error = %v", err)
	}
	if string(hr.Header()) != "ab" {
		t.Errorf("Header() = %q, want the whole short source", hr.Header())
	}
}
