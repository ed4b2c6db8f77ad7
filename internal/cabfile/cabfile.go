// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package cabfile reads Microsoft Cabinet (.cab) archives. It supports
// single-volume cabinets with uncompressed and MSZIP folders, which covers
// the cabinets embedded in installers; LZX and Quantum folders are
// reported as unsupported when a file inside them is opened.
package cabfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/flate"
)

var (
	// ErrNotCabinet is returned when the input does not start with the
	// MSCF signature.
	ErrNotCabinet = errors.New("not a cabinet file")

	// ErrMultiVolume is returned for cabinets that continue in or from
	// another cabinet file.
	ErrMultiVolume = errors.New("multi-volume cabinets are not supported")

	// ErrUnsupportedCompression is returned when a folder uses LZX or
	// Quantum compression.
	ErrUnsupportedCompression = errors.New("unsupported cabinet compression")
)

const (
	flagPrevCabinet    = 0x0001
	flagNextCabinet    = 0x0002
	flagReservePresent = 0x0004

	compressionNone  = 0x0000
	compressionMSZIP = 0x0001

	attrNameIsUTF = 0x0080

	// mszipWindowSize is the deflate history window; it is carried across
	// the data blocks of one folder.
	mszipWindowSize = 32 * 1024
)

// cfHeader is the fixed part of the CFHEADER structure.
type cfHeader struct {
	Signature    [4]byte
	Reserved1    uint32
	CbCabinet    uint32
	Reserved2    uint32
	CoffFiles    uint32
	Reserved3    uint32
	VersionMinor uint8
	VersionMajor uint8
	CFolders     uint16
	CFiles       uint16
	Flags        uint16
	SetID        uint16
	ICabinet     uint16
}

// Cabinet is a parsed cabinet archive.
type Cabinet struct {
	files []*File
}

// File is one file stored in a cabinet.
type File struct {
	Name       string
	Size       int64
	Modified   time.Time
	Attributes uint16

	folder *folder
	offset int64
}

// folder is one compression unit of a cabinet. Cabinet folders cannot be
// decoded without their full block sequence, so the payload is
// materialized once, on first use.
type folder struct {
	r           io.ReaderAt
	dataOffset  int64
	blocks      int
	compression uint16
	dataReserve int

	once sync.Once
	data []byte
	err  error
}

// New parses the cabinet structure from r. File content is not
// decompressed until a file is opened.
func New(r io.ReaderAt, size int64) (*Cabinet, error) {
	br := bufio.NewReader(io.NewSectionReader(r, 0, size))

	var hdr cfHeader
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("cannot read cabinet header: %w", err)
	}
	if !bytes.Equal(hdr.Signature[:], []byte("MSCF")) {
		return nil, ErrNotCabinet
	}
	if hdr.Flags&(flagPrevCabinet|flagNextCabinet) != 0 {
		return nil, ErrMultiVolume
	}

	var folderReserve, dataReserve int
	if hdr.Flags&flagReservePresent != 0 {
		var reserve struct {
			CbCFHeader uint16
			CbCFFolder uint8
			CbCFData   uint8
		}
		if err := binary.Read(br, binary.LittleEndian, &reserve); err != nil {
			return nil, fmt.Errorf("cannot read reserve sizes: %w", err)
		}
		folderReserve = int(reserve.CbCFFolder)
		dataReserve = int(reserve.CbCFData)
		if _, err := br.Discard(int(reserve.CbCFHeader)); err != nil {
			return nil, fmt.Errorf("cannot skip header reserve: %w", err)
		}
	}

	folders := make([]*folder, hdr.CFolders)
	for i := range folders {
		var cff struct {
			CoffCabStart uint32
			CCFData      uint16
			TypeCompress uint16
		}
		if err := binary.Read(br, binary.LittleEndian, &cff); err != nil {
			return nil, fmt.Errorf("cannot read folder %d: %w", i, err)
		}
		if _, err := br.Discard(folderReserve); err != nil {
			return nil, fmt.Errorf("cannot skip folder reserve: %w", err)
		}
		folders[i] = &folder{
			r:           r,
			dataOffset:  int64(cff.CoffCabStart),
			blocks:      int(cff.CCFData),
			compression: cff.TypeCompress,
			dataReserve: dataReserve,
		}
	}

	fbr := bufio.NewReader(io.NewSectionReader(r, int64(hdr.CoffFiles), size-int64(hdr.CoffFiles)))
	cab := &Cabinet{}
	for i := 0; i < int(hdr.CFiles); i++ {
		var cff struct {
			CbFile          uint32
			UoffFolderStart uint32
			IFolder         uint16
			Date            uint16
			Time            uint16
			Attribs         uint16
		}
		if err := binary.Read(fbr, binary.LittleEndian, &cff); err != nil {
			return nil, fmt.Errorf("cannot read file %d: %w", i, err)
		}
		name, err := fbr.ReadString(0)
		if err != nil {
			return nil, fmt.Errorf("cannot read file name %d: %w", i, err)
		}
		name = name[:len(name)-1]
		if int(cff.IFolder) >= len(folders) {
			return nil, ErrMultiVolume
		}
		cab.files = append(cab.files, &File{
			Name:       name,
			Size:       int64(cff.CbFile),
			Modified:   dosTime(cff.Date, cff.Time),
			Attributes: cff.Attribs,
			folder:     folders[cff.IFolder],
			offset:     int64(cff.UoffFolderStart),
		})
	}

	return cab, nil
}

// Files returns the stored files in cabinet order.
func (c *Cabinet) Files() []*File {
	return c.files
}

// Open returns a reader over the decompressed file content. The first open
// of a file decompresses its whole folder.
func (f *File) Open() (io.ReadCloser, error) {
	data, err := f.folder.payload()
	if err != nil {
		return nil, err
	}
	if f.offset+f.Size > int64(len(data)) {
		return nil, fmt.Errorf("file %s extends beyond folder data", f.Name)
	}
	return io.NopCloser(bytes.NewReader(data[f.offset : f.offset+f.Size])), nil
}

func (fo *folder) payload() ([]byte, error) {
	fo.once.Do(func() {
		fo.data, fo.err = fo.decompress()
	})
	return fo.data, fo.err
}

func (fo *folder) decompress() ([]byte, error) {
	switch fo.compression & 0x000F {
	case compressionNone, compressionMSZIP:
	default:
		return nil, fmt.Errorf("%w (type %d)", ErrUnsupportedCompression, fo.compression&0x000F)
	}

	var out bytes.Buffer
	off := fo.dataOffset
	for i := 0; i < fo.blocks; i++ {
		var blk struct {
			Csum     uint32
			CbData   uint16
			CbUncomp uint16
		}
		hdrBuf := make([]byte, 8)
		if _, err := fo.r.ReadAt(hdrBuf, off); err != nil {
			return nil, fmt.Errorf("cannot read data block %d: %w", i, err)
		}
		if err := binary.Read(bytes.NewReader(hdrBuf), binary.LittleEndian, &blk); err != nil {
			return nil, err
		}
		off += 8 + int64(fo.dataReserve)

		data := make([]byte, blk.CbData)
		if _, err := fo.r.ReadAt(data, off); err != nil {
			return nil, fmt.Errorf("cannot read data block %d: %w", i, err)
		}
		off += int64(blk.CbData)

		switch fo.compression & 0x000F {
		case compressionNone:
			out.Write(data)
		case compressionMSZIP:
			if len(data) < 2 || data[0] != 'C' || data[1] != 'K' {
				return nil, fmt.Errorf("data block %d has no MSZIP signature", i)
			}
			block, err := inflateBlock(data[2:], mszipDict(out.Bytes()))
			if err != nil {
				return nil, fmt.Errorf("cannot inflate data block %d: %w", i, err)
			}
			if len(block) != int(blk.CbUncomp) {
				return nil, fmt.Errorf("data block %d inflated to %d bytes, want %d", i, len(block), blk.CbUncomp)
			}
			out.Write(block)
		}
	}
	return out.Bytes(), nil
}

// inflateBlock inflates one MSZIP deflate stream, seeding the history
// window with the tail of the previously decoded output.
func inflateBlock(data []byte, dict []byte) ([]byte, error) {
	fr := flate.NewReaderDict(bytes.NewReader(data), dict)
	defer fr.Close()
	return io.ReadAll(fr)
}

// mszipDict is the deflate history carried into the next block: the last
// window of everything decoded so far in this folder.
func mszipDict(out []byte) []byte {
	if len(out) > mszipWindowSize {
		return out[len(out)-mszipWindowSize:]
	}
	return out
}

// dosTime converts the DOS date and time stamps stored in CFFILE entries.
func dosTime(date, tm uint16) time.Time {
	year := int(date>>9) + 1980
	month := time.Month(date >> 5 & 0x0F)
	day := int(date & 0x1F)
	hour := int(tm >> 11)
	min := int(tm >> 5 & 0x3F)
	sec := int(tm&0x1F) * 2
	return time.Date(year, month, day, hour, min, sec, 0, time.UTC)
}
