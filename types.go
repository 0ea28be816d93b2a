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

// Implementation note:
// Header and record structures are marshaled field-by-field because the
// fields are primitive types; binary.Read would fall back to reflection
// for no benefit on 36- and 24-byte structures.

package tre

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// magic is the TRE file magic: "TREE" plus version "0005", stored as
// "EERT5000".
var magic = []byte{'E', 'E', 'R', 'T', '5', '0', '0', '0'}

const (
	// headerSize is the on-disk size of the archive header.
	headerSize = 36

	// recordSize is the on-disk size of one record table entry.
	recordSize = 24
)

// header is the fixed archive header. All fields are little-endian.
type header struct {
	// records is the number of entries stored in the archive.
	records uint32

	// recordStart is the offset from the beginning of the file where the
	// record table starts. The data region fills [36, recordStart).
	recordStart uint32

	// recordCompression is the method used for the record table.
	recordCompression Method

	// recordCompressed is the on-disk size of the record table.
	recordCompressed uint32

	// nameCompression is the method used for the name block.
	nameCompression Method

	// nameCompressed is the on-disk size of the name block.
	nameCompressed uint32

	// nameUncompressed is the size of the name block before compression.
	nameUncompressed uint32
}

// readHeader reads and validates the 36-byte archive header.
func readHeader(r io.Reader) (header, error) {
	var h header

	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return h, fmt.Errorf("%w: reading header: %w", ErrInvalidArchive, err)
	}

	if !bytes.Equal(buf[0:8], magic) {
		return h, fmt.Errorf("%w: bad magic %q", ErrInvalidArchive, buf[0:8])
	}

	h.records = binary.LittleEndian.Uint32(buf[8:12])
	h.recordStart = binary.LittleEndian.Uint32(buf[12:16])
	h.recordCompression = Method(binary.LittleEndian.Uint32(buf[16:20]))
	h.recordCompressed = binary.LittleEndian.Uint32(buf[20:24])
	h.nameCompression = Method(binary.LittleEndian.Uint32(buf[24:28]))
	h.nameCompressed = binary.LittleEndian.Uint32(buf[28:32])
	h.nameUncompressed = binary.LittleEndian.Uint32(buf[32:36])

	if !h.recordCompression.valid() {
		return h, fmt.Errorf("%w: record block: %d", ErrCompression, uint32(h.recordCompression))
	}
	if !h.nameCompression.valid() {
		return h, fmt.Errorf("%w: name block: %d", ErrCompression, uint32(h.nameCompression))
	}

	return h, nil
}

// marshal serializes the header into its 36-byte on-disk form.
func (h header) marshal() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:8], magic)
	binary.LittleEndian.PutUint32(buf[8:12], h.records)
	binary.LittleEndian.PutUint32(buf[12:16], h.recordStart)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(h.recordCompression))
	binary.LittleEndian.PutUint32(buf[20:24], h.recordCompressed)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(h.nameCompression))
	binary.LittleEndian.PutUint32(buf[28:32], h.nameCompressed)
	binary.LittleEndian.PutUint32(buf[32:36], h.nameUncompressed)
	return buf
}

// record is one entry of the record table. All fields are little-endian.
type record struct {
	// checksum is the CRC-32/BZIP2 checksum of the entry's name bytes.
	checksum uint32

	// dataUncompressed is the payload size before compression.
	dataUncompressed uint32

	// dataOffset is the payload offset from the start of the file.
	dataOffset uint32

	// dataCompression is the method used for the payload.
	dataCompression Method

	// dataCompressed is the on-disk payload size.
	dataCompressed uint32

	// nameOffset is the offset of the entry's name within the
	// uncompressed name block.
	nameOffset uint32
}

// readRecord reads one 24-byte record table entry.
func readRecord(r io.Reader) (record, error) {
	var rec record

	buf := make([]byte, recordSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return rec, fmt.Errorf("%w: reading record: %w", ErrInvalidArchive, err)
	}

	rec.checksum = binary.LittleEndian.Uint32(buf[0:4])
	rec.dataUncompressed = binary.LittleEndian.Uint32(buf[4:8])
	rec.dataOffset = binary.LittleEndian.Uint32(buf[8:12])
	rec.dataCompression = Method(binary.LittleEndian.Uint32(buf[12:16]))
	rec.dataCompressed = binary.LittleEndian.Uint32(buf[16:20])
	rec.nameOffset = binary.LittleEndian.Uint32(buf[20:24])

	if !rec.dataCompression.valid() {
		return rec, fmt.Errorf("%w: record data: %d", ErrCompression, uint32(rec.dataCompression))
	}

	return rec, nil
}

// marshal serializes the record into its 24-byte on-disk form.
func (rec record) marshal() []byte {
	buf := make([]byte, recordSize)
	binary.LittleEndian.PutUint32(buf[0:4], rec.checksum)
	binary.LittleEndian.PutUint32(buf[4:8], rec.dataUncompressed)
	binary.LittleEndian.PutUint32(buf[8:12], rec.dataOffset)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(rec.dataCompression))
	binary.LittleEndian.PutUint32(buf[16:20], rec.dataCompressed)
	binary.LittleEndian.PutUint32(buf[20:24], rec.nameOffset)
	return buf
}
