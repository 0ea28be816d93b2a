// Copyright 2025 The go-tre Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tre

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// FileHeader holds the metadata of one archive entry.
type FileHeader struct {
	// Name is the entry name decoded as UTF-8, with invalid sequences
	// replaced by the Unicode replacement character. See NameRaw.
	Name string

	// NameRaw is the entry name as stored. The format does not mandate an
	// encoding; use this when Name was incorrectly decoded.
	NameRaw []byte

	// CRC32 is the CRC-32/BZIP2 checksum of the stored name bytes.
	CRC32 uint32

	// Method is the compression method used for the payload.
	Method Method

	// CompressedSize is the size of the payload as stored.
	CompressedSize uint64

	// UncompressedSize is the size of the payload when extracted.
	UncompressedSize uint64

	// DataStart is the file offset where the stored payload begins.
	DataStart uint64
}

// File reads one entry's payload from an archive, decompressing it
// transparently.
//
// Only one File may be live per archive: per-entry reads seek the shared
// underlying source, so opening another entry invalidates this one.
type File struct {
	FileHeader

	a  *Archive
	br *blockReader
}

// Read implements [io.Reader].
//
// It is dangerous to use [FileHeader.Name] directly when extracting an
// archive. It may contain an absolute path (/etc/shadow), or break out of
// the current directory (../runtime). Carelessly writing to these paths
// allows an attacker to craft a TRE archive that will overwrite critical
// files.
func (f *File) Read(p []byte) (int, error) {
	if f.a.cur != f {
		return 0, ErrReaderInvalidated
	}
	return f.br.Read(p)
}

// Archive provides access to the entries of a TRE archive.
//
// Archive holds the underlying source for its lifetime and preserves the
// archive's entry insertion order.
type Archive struct {
	r      io.ReadSeeker
	h      header
	files  []FileHeader
	byName map[string]int

	// cur is the live per-entry reader; see File.
	cur *File
}

// OpenReader reads a TRE archive's metadata from r, collecting the entries
// it contains. It does not assume control of r; it is the responsibility
// of the caller to close r when it is no longer used.
func OpenReader(r io.ReadSeeker) (*Archive, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seeking start: %w", errTre, err)
	}

	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	records, err := readRecords(r, h)
	if err != nil {
		return nil, err
	}

	names, err := readNames(r, h)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		r:      r,
		h:      h,
		files:  make([]FileHeader, 0, h.records),
		byName: make(map[string]int, h.records),
	}
	for i, rec := range records {
		name := string(names[i])
		if !utf8.ValidString(name) {
			name = strings.ToValidUTF8(name, "�")
		}
		a.files = append(a.files, FileHeader{
			Name:             name,
			NameRaw:          names[i],
			CRC32:            rec.checksum,
			Method:           rec.dataCompression,
			CompressedSize:   uint64(rec.dataCompressed),
			UncompressedSize: uint64(rec.dataUncompressed),
			DataStart:        uint64(rec.dataOffset),
		})
		// First occurrence wins; names are expected unique.
		if _, ok := a.byName[name]; !ok {
			a.byName[name] = i
		}
	}

	return a, nil
}

// readRecords decodes the record table block.
func readRecords(r io.ReadSeeker, h header) ([]record, error) {
	br, err := newBlockReader(r, int64(h.recordStart), int64(h.recordCompressed), h.recordCompression)
	if err != nil {
		return nil, fmt.Errorf("%w: record block: %w", errTre, err)
	}

	records := make([]record, 0, h.records)
	for range h.records {
		rec, err := readRecord(br)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// readNames decodes the name block into one raw name per record.
func readNames(r io.ReadSeeker, h header) ([][]byte, error) {
	br, err := newBlockReader(r, int64(h.recordStart)+int64(h.recordCompressed), int64(h.nameCompressed), h.nameCompression)
	if err != nil {
		return nil, fmt.Errorf("%w: name block: %w", errTre, err)
	}

	rd := bufio.NewReader(br)
	names := make([][]byte, 0, h.records)
	for range h.records {
		name, err := rd.ReadBytes(0)
		if err != nil {
			return nil, fmt.Errorf("%w: reading name block: %w", ErrInvalidArchive, err)
		}
		names = append(names, name[:len(name)-1])
	}
	return names, nil
}

// Len returns the number of entries contained in the archive.
func (a *Archive) Len() int {
	return len(a.files)
}

// IsEmpty reports whether the archive contains no entries.
func (a *Archive) IsEmpty() bool {
	return a.Len() == 0
}

// FileNames returns all entry names in insertion order.
func (a *Archive) FileNames() []string {
	names := make([]string, len(a.files))
	for i := range a.files {
		names[i] = a.files[i].Name
	}
	return names
}

// DecompressedSize returns the total size of the archive's entries when
// extracted. Metadata blocks are not included.
func (a *Archive) DecompressedSize() uint64 {
	var total uint64
	for i := range a.files {
		total += a.files[i].UncompressedSize
	}
	return total
}

// RecordCompression returns the method used for the record table.
func (a *Archive) RecordCompression() Method {
	return a.h.recordCompression
}

// RecordBlockSize returns the on-disk size of the record table.
func (a *Archive) RecordBlockSize() uint32 {
	return a.h.recordCompressed
}

// NameCompression returns the method used for the name block.
func (a *Archive) NameCompression() Method {
	return a.h.nameCompression
}

// NameBlockSize returns the on-disk size of the name block.
func (a *Archive) NameBlockSize() uint32 {
	return a.h.nameCompressed
}

// IndexForName returns the index of the named entry and whether it is
// present.
func (a *Archive) IndexForName(name string) (int, bool) {
	i, ok := a.byName[name]
	return i, ok
}

// NameForIndex returns the name of the entry at index and whether the
// index is in range.
func (a *Archive) NameForIndex(index int) (string, bool) {
	if index < 0 || index >= len(a.files) {
		return "", false
	}
	return a.files[index].Name, true
}

// ByName returns a reader for the named entry. Any previously returned
// [File] is invalidated.
func (a *Archive) ByName(name string) (*File, error) {
	i, ok := a.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: name %q", ErrFileNotFound, name)
	}
	return a.ByIndex(i)
}

// ByIndex returns a reader for the entry at index. Any previously returned
// [File] is invalidated.
func (a *Archive) ByIndex(index int) (*File, error) {
	if index < 0 || index >= len(a.files) {
		return nil, fmt.Errorf("%w: index %d", ErrFileNotFound, index)
	}

	fh := a.files[index]
	br, err := newBlockReader(a.r, int64(fh.DataStart), int64(fh.CompressedSize), fh.Method)
	if err != nil {
		return nil, err
	}

	f := &File{
		FileHeader: fh,
		a:          a,
		br:         br,
	}
	a.cur = f
	return f, nil
}
