// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cabfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/flate"
)

// cabSpec describes a cabinet to synthesize for a test.
type cabSpec struct {
	compression uint16
	flags       uint16
	files       []cabFileSpec
	// chunks splits the folder payload into CFDATA blocks; empty means
	// one block holding everything.
	chunks []int
}

type cabFileSpec struct {
	name    string
	content string
}

// buildCab writes the binary cabinet structure for spec. Offsets are
// computed, not hardcoded, so specs stay readable.
func buildCab(t *testing.T, spec cabSpec) []byte {
	t.Helper()

	var payload bytes.Buffer
	for _, f := range spec.files {
		payload.WriteString(f.content)
	}
	chunks := spec.chunks
	if len(chunks) == 0 {
		chunks = []int{payload.Len()}
	}

	// data blocks
	var data bytes.Buffer
	off := 0
	var prev []byte
	for _, n := range chunks {
		chunk := payload.Bytes()[off : off+n]
		off += n

		var blockData []byte
		switch spec.compression {
		case compressionNone:
			blockData = chunk
		case compressionMSZIP:
			blockData = append([]byte("CK"), deflateWithDict(t, chunk, prev)...)
		default:
			blockData = chunk
		}
		prev = chunk

		binary.Write(&data, binary.LittleEndian, uint32(0)) // csum, unchecked
		binary.Write(&data, binary.LittleEndian, uint16(len(blockData)))
		binary.Write(&data, binary.LittleEndian, uint16(n))
		data.Write(blockData)
	}

	// file entries
	var files bytes.Buffer
	uoff := 0
	for _, f := range spec.files {
		binary.Write(&files, binary.LittleEndian, uint32(len(f.content)))
		binary.Write(&files, binary.LittleEndian, uint32(uoff))
		binary.Write(&files, binary.LittleEndian, uint16(0)) // iFolder
		binary.Write(&files, binary.LittleEndian, uint16(0x5821)) // 2024-01-01
		binary.Write(&files, binary.LittleEndian, uint16(0x6000)) // 12:00:00
		binary.Write(&files, binary.LittleEndian, uint16(0))      // attribs
		files.WriteString(f.name)
		files.WriteByte(0)
		uoff += len(f.content)
	}

	const headerLen = 36
	const folderLen = 8
	coffFiles := headerLen + folderLen
	dataOffset := coffFiles + files.Len()

	var out bytes.Buffer
	out.WriteString("MSCF")
	binary.Write(&out, binary.LittleEndian, uint32(0)) // reserved1
	binary.Write(&out, binary.LittleEndian, uint32(dataOffset+data.Len()))
	binary.Write(&out, binary.LittleEndian, uint32(0)) // reserved2
	binary.Write(&out, binary.LittleEndian, uint32(coffFiles))
	binary.Write(&out, binary.LittleEndian, uint32(0)) // reserved3
	out.WriteByte(3)                                   // versionMinor
	out.WriteByte(1)                                   // versionMajor
	binary.Write(&out, binary.LittleEndian, uint16(1)) // cFolders
	binary.Write(&out, binary.LittleEndian, uint16(len(spec.files)))
	binary.Write(&out, binary.LittleEndian, spec.flags)
	binary.Write(&out, binary.LittleEndian, uint16(0x1234)) // setID
	binary.Write(&out, binary.LittleEndian, uint16(0))      // iCabinet

	binary.Write(&out, binary.LittleEndian, uint32(dataOffset))
	binary.Write(&out, binary.LittleEndian, uint16(len(chunks)))
	binary.Write(&out, binary.LittleEndian, spec.compression)

	out.Write(files.Bytes())
	out.Write(data.Bytes())
	return out.Bytes()
}

func deflateWithDict(t *testing.T, data []byte, dict []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var fw *flate.Writer
	var err error
	if len(dict) > 0 {
		fw, err = flate.NewWriterDict(&buf, flate.DefaultCompression, dict)
	} else {
		fw, err = flate.NewWriter(&buf, flate.DefaultCompression)
	}
	if err != nil {
		t.Fatalf("flate writer: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("deflate: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("deflate close: %v", err)
	}
	return buf.Bytes()
}

func parse(t *testing.T, raw []byte) *Cabinet {
	t.Helper()
	cab, err := New(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return cab
}

func readFile(t *testing.T, f *File) string {
	t.Helper()
	rc, err := f.Open()
	if err != nil {
		t.Fatalf("Open(%s) error = %v", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading %s: %v", f.Name, err)
	}
	return string(data)
}

func TestCabinetUncompressed(t *testing.T) {
	raw := buildCab(t, cabSpec{
		compression: compressionNone,
		files: []cabFileSpec{
			{name: "hello.txt", content: "Hello, World!"},
			{name: `dir\nested.txt`, content: "nested content"},
		},
	})

	cab := parse(t, raw)
	files := cab.Files()
	if len(files) != 2 {
		t.Fatalf("Files() = %d entries, want 2", len(files))
	}
	if files[0].Name != "hello.txt" || files[1].Name != `dir\nested.txt` {
		t.Errorf("names = %q, %q", files[0].Name, files[1].Name)
	}
	if got := readFile(t, files[0]); got != "Hello, World!" {
		t.Errorf("content = %q", got)
	}
	if got := readFile(t, files[1]); got != "nested content" {
		t.Errorf("content = %q", got)
	}
	if files[0].Modified.Year() != 2024 {
		t.Errorf("modified = %v, want a 2024 date", files[0].Modified)
	}
}

func TestCabinetMSZIP(t *testing.T) {
	raw := buildCab(t, cabSpec{
		compression: compressionMSZIP,
		files: []cabFileSpec{
			{name: "a.txt", content: "compressed cabinet data, compressed cabinet data"},
		},
	})

	cab := parse(t, raw)
	if got := readFile(t, cab.Files()[0]); got != "compressed cabinet data, compressed cabinet data" {
		t.Errorf("content = %q", got)
	}
}

func TestCabinetMSZIPMultiBlock(t *testing.T) {
	// the deflate history window carries across blocks; block two
	// back-references into block one
	content := "the quick brown fox jumps over the lazy dog. " +
		"the quick brown fox jumps over the lazy dog again."
	split := 45

	raw := buildCab(t, cabSpec{
		compression: compressionMSZIP,
		files:       []cabFileSpec{{name: "fox.txt", content: content}},
		chunks:      []int{split, len(content) - split},
	})

	cab := parse(t, raw)
	if got := readFile(t, cab.Files()[0]); got != content {
		t.Errorf("content = %q, want %q", got, content)
	}
}

func TestCabinetFileSpansBlocks(t *testing.T) {
	// one file whose bytes live in two uncompressed blocks
	content := "first half and second half"
	raw := buildCab(t, cabSpec{
		compression: compressionNone,
		files:       []cabFileSpec{{name: "split.bin", content: content}},
		chunks:      []int{10, len(content) - 10},
	})

	cab := parse(t, raw)
	if got := readFile(t, cab.Files()[0]); got != content {
		t.Errorf("content = %q, want %q", got, content)
	}
}

func TestCabinetMultiVolumeRejected(t *testing.T) {
	raw := buildCab(t, cabSpec{
		compression: compressionNone,
		flags:       flagNextCabinet,
		files:       []cabFileSpec{{name: "a", content: "x"}},
	})

	_, err := New(bytes.NewReader(raw), int64(len(raw)))
	if !errors.Is(err, ErrMultiVolume) {
		t.Errorf("New() error = %v, want %v", err, ErrMultiVolume)
	}
}

func TestCabinetUnsupportedCompression(t *testing.T) {
	raw := buildCab(t, cabSpec{
		compression: 0x0003, // LZX
		files:       []cabFileSpec{{name: "a", content: "x"}},
	})

	cab := parse(t, raw)
	_, err := cab.Files()[0].Open()
	if !errors.Is(err, ErrUnsupportedCompression) {
		t.Errorf("Open() error = %v, want %v", err, ErrUnsupportedCompression)
	}
}

func TestCabinetBadSignature(t *testing.T) {
	raw := append([]byte("NOPE"), make([]byte, 64)...)
	_, err := New(bytes.NewReader(raw), int64(len(raw)))
	if !errors.Is(err, ErrNotCabinet) {
		t.Errorf("New() error = %v, want %v", err, ErrNotCabinet)
	}
}
