// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPipeline indicates an inconsistency between the signature
	// table and the decoder registry, such as a template with a stage
	// after its terminal stage. This is a programming error, not a user
	// scenario, but it is surfaced as an error instead of a panic.
	ErrInvalidPipeline = errors.New("invalid pipeline template")

	// ErrMaxFilesExceeded indicates that the archive contains more entries
	// than the configured maximum.
	ErrMaxFilesExceeded = errors.New("maximum number of files exceeded")

	// ErrMaxExtractionSizeExceeded indicates that the extracted content
	// exceeds the configured maximum output size.
	ErrMaxExtractionSizeExceeded = errors.New("maximum extraction size exceeded")

	// ErrMaxInputSizeExceeded indicates that the input exceeds the
	// configured maximum input size.
	ErrMaxInputSizeExceeded = errors.New("maximum input size exceeded")
)

// UnsupportedFormatError is returned when the input could not be matched to
// a supported format, or when it matched a format tag that has no decoder
// registered.
type UnsupportedFormatError struct {
	Format Format
}

func (e *UnsupportedFormatError) Error() string {
	if e.Format == FormatUnknown {
		return "format not recognized"
	}
	return fmt.Sprintf("looked like %s, but no decoder is registered", e.Format)
}

// CodecError wraps an error reported by one of the underlying
// decompressors or archive parsers.
type CodecError struct {
	Format Format
	Err    error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Format, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}
