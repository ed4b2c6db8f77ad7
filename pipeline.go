// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"context"
	"io"
)

// stageKind discriminates the two decoder stage variants. There are
// deliberately no further variants; the composer and the extraction driver
// switch exhaustively over the kind.
type stageKind int

const (
	// stageTransform turns one compressed byte stream into one
	// decompressed byte stream.
	stageTransform stageKind = iota

	// stageExtract turns one byte stream into a sequence of named
	// archive entries. It can only appear as the terminal stage.
	stageExtract
)

// transformFunc starts a streaming decompressor over src.
type transformFunc func(src io.Reader) (io.Reader, error)

// walkerFunc opens an archive over src and returns a walker over its
// entries.
type walkerFunc func(ctx context.Context, src io.Reader, cfg *Config) (archiveWalker, error)

// stage is one unit of streaming transformation. Exactly one of transform
// and walker is set, according to kind.
type stage struct {
	kind      stageKind
	transform transformFunc
	walker    walkerFunc
}

// decoders is the static decoder registry. Every entry is a template of
// factories, not live streams, so a tag can be resolved repeatedly without
// shared state. Composite formats are fixed multi-stage templates; the
// composition is static per tag, never computed at runtime.
var decoders = map[Format][]stage{
	FormatZip:   {{kind: stageExtract, walker: newZipWalker}},
	FormatAr:    {{kind: stageExtract, walker: newArWalker}},
	FormatCab:   {{kind: stageExtract, walker: newCabWalker}},
	FormatPeCab: {{kind: stageExtract, walker: newPeCabWalker}},
	FormatRar:   {{kind: stageExtract, walker: newRarWalker}},
	Format7Zip:  {{kind: stageExtract, walker: newSevenZipWalker}},
	FormatTar:   {{kind: stageExtract, walker: newTarWalker}},

	FormatTarGzip:   {{kind: stageTransform, transform: decompressGzipStream}, {kind: stageExtract, walker: newTarWalker}},
	FormatTarXz:     {{kind: stageTransform, transform: decompressXzStream}, {kind: stageExtract, walker: newTarWalker}},
	FormatTarBzip2:  {{kind: stageTransform, transform: decompressBzip2Stream}, {kind: stageExtract, walker: newTarWalker}},
	FormatTarZstd:   {{kind: stageTransform, transform: decompressZstdStream}, {kind: stageExtract, walker: newTarWalker}},
	FormatTarLz4:    {{kind: stageTransform, transform: decompressLz4Stream}, {kind: stageExtract, walker: newTarWalker}},
	FormatTarSnappy: {{kind: stageTransform, transform: decompressSnappyStream}, {kind: stageExtract, walker: newTarWalker}},
	FormatTarZlib:   {{kind: stageTransform, transform: decompressZlibStream}, {kind: stageExtract, walker: newTarWalker}},

	FormatGzip:   {{kind: stageTransform, transform: decompressGzipStream}},
	FormatXz:     {{kind: stageTransform, transform: decompressXzStream}},
	FormatBzip2:  {{kind: stageTransform, transform: decompressBzip2Stream}},
	FormatZstd:   {{kind: stageTransform, transform: decompressZstdStream}},
	FormatLz4:    {{kind: stageTransform, transform: decompressLz4Stream}},
	FormatSnappy: {{kind: stageTransform, transform: decompressSnappyStream}},
	FormatZlib:   {{kind: stageTransform, transform: decompressZlibStream}},
}

// resolve looks up the pipeline template for a format tag. Unknown and
// unregistered tags fail with [UnsupportedFormatError]; the enumeration
// may carry tags before their decoder ships.
func resolve(f Format) ([]stage, error) {
	tmpl, ok := decoders[f]
	if f == FormatUnknown || !ok {
		return nil, &UnsupportedFormatError{Format: f}
	}
	return tmpl, nil
}

// pipeline is a template bound to an input stream, ready to run.
type pipeline struct {
	format  Format
	stages  []stage
	src     io.Reader
	srcName string
}

// compose resolves the template for f and binds it to src. It validates
// the template shape: all stages but the last must be byte transforms, and
// the template must not be empty. A malformed template means the registry
// and the signature table disagree, which is reported as
// [ErrInvalidPipeline] rather than a panic.
func compose(f Format, src io.Reader) (*pipeline, error) {
	tmpl, err := resolve(f)
	if err != nil {
		return nil, err
	}
	if len(tmpl) == 0 {
		return nil, ErrInvalidPipeline
	}
	for _, st := range tmpl[:len(tmpl)-1] {
		if st.kind != stageTransform {
			return nil, ErrInvalidPipeline
		}
	}
	return &pipeline{format: f, stages: tmpl, src: src}, nil
}

// run wires the stages together and drives the terminal stage. Byte
// transforms are chained lazily; no stage materializes its upstream output
// unless the codec library itself needs random access (zip, 7z, cabinet).
func (p *pipeline) run(ctx context.Context, t Target, dst string, cfg *Config, rep *Report) error {
	r := p.src
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
	}()

	for _, st := range p.stages[:len(p.stages)-1] {
		next, err := st.transform(r)
		if err != nil {
			return &CodecError{Format: p.format, Err: err}
		}
		if c, ok := next.(io.Closer); ok {
			closers = append(closers, c)
		}
		r = next
	}

	term := p.stages[len(p.stages)-1]
	switch term.kind {
	case stageTransform:
		dec, err := term.transform(r)
		if err != nil {
			return &CodecError{Format: p.format, Err: err}
		}
		if c, ok := dec.(io.Closer); ok {
			closers = append(closers, c)
		}
		return decompressToFile(ctx, t, dst, &codecTagReader{r: dec, format: p.format}, cfg, rep, p.format, p.srcName)
	case stageExtract:
		w, err := term.walker(ctx, &codecTagReader{r: r, format: p.format}, cfg)
		if err != nil {
			// cannot even begin parsing the container, fatal
			return asCodecError(p.format, err)
		}
		defer w.Close()
		return runWalker(ctx, t, dst, w, cfg, rep)
	}
	return ErrInvalidPipeline
}

// codecTagReader tags read-side errors with the format being decoded, so
// downstream io.Copy failures can be told apart from write-side I/O
// errors.
type codecTagReader struct {
	r      io.Reader
	format Format
}

func (c *codecTagReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if err != nil && err != io.EOF {
		err = asCodecError(c.format, err)
	}
	return n, err
}

// asCodecError wraps err as a CodecError unless it already is one, or is a
// resource limit sentinel that must stay recognizable.
func asCodecError(f Format, err error) error {
	switch err {
	case nil, ErrMaxInputSizeExceeded, ErrMaxExtractionSizeExceeded, ErrMaxFilesExceeded:
		return err
	}
	if _, ok := err.(*CodecError); ok {
		return err
	}
	return &CodecError{Format: f, Err: err}
}
