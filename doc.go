// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package unbox detects archive and compression formats by their content
// and extracts them to a destination.
//
// Detection never consults file names: a bounded prefix of the input is
// matched against a signature table, and the winning format tag selects a
// streaming decoder pipeline. Compressed tarballs are recognized as such
// by probing the decompressed prefix, so "foo.gz" holding a tar archive
// unpacks to files rather than to a single blob.
//
// Extraction is configured with [Config]; limits, overwrite behavior,
// symlink handling and the output target ([Target]) are all set there.
// The outcome of an extraction is summarized in a [Report], including the
// entries that were skipped and why.
package unbox
