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
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
)

// WriterOptions selects the compression methods for the archive's
// metadata blocks.
type WriterOptions struct {
	// RecordCompression is the method used for the record table.
	RecordCompression Method

	// NameCompression is the method used for the name block.
	NameCompression Method
}

// Writer implements [io.Writer] for building TRE archives.
//
// Entries are streamed: call [Writer.StartFile], write the entry's bytes,
// and repeat. [Writer.Finish] must be called to lay out and write the
// file. The data region, record table, name block, and hash trailer are
// buffered in memory until then because the header depends on every
// region's final length.
type Writer struct {
	w io.Writer

	dataBuf   bytes.Buffer
	recordBuf bytes.Buffer
	nameBuf   bytes.Buffer
	hashBuf   bytes.Buffer

	dataBlock   *blockWriter
	recordBlock *blockWriter
	nameBlock   *blockWriter

	// entryBuf and entryBlock hold the currently open entry's payload
	// between StartFile and the next StartFile or Finish.
	entryBuf   bytes.Buffer
	entryBlock *blockWriter

	h   header
	rec record

	// nameOffset is the running uncompressed name block length, recorded
	// into each record before its name is appended.
	nameOffset uint32

	writingFile bool
	closed      bool
}

// NewWriter initializes an archive writer with both metadata blocks
// zlib-compressed.
func NewWriter(w io.Writer) *Writer {
	return NewWriterOptions(w, WriterOptions{
		RecordCompression: Zlib,
		NameCompression:   Zlib,
	})
}

// NewWriterOptions initializes an archive writer with the given metadata
// block compression.
//
// Before writing to the returned Writer, [Writer.StartFile] must be
// called.
func NewWriterOptions(w io.Writer, opts WriterOptions) *Writer {
	z := &Writer{
		w: w,
		h: header{
			recordStart:       headerSize,
			recordCompression: opts.RecordCompression,
			nameCompression:   opts.NameCompression,
		},
	}
	z.dataBlock = newBlockWriter(&z.dataBuf, None)
	z.recordBlock = newBlockWriter(&z.recordBuf, opts.RecordCompression)
	z.nameBlock = newBlockWriter(&z.nameBuf, opts.NameCompression)
	return z
}

// IsWritingFile reports whether an entry is currently open for writing.
func (z *Writer) IsWritingFile() bool {
	return z.writingFile
}

// StartFile begins a new entry with the requested payload compression. A
// previously open entry is finalized first.
func (z *Writer) StartFile(name string, method Method) error {
	if z.closed {
		return ErrClosed
	}
	if !method.valid() {
		return fmt.Errorf("%w: %d", ErrCompression, uint32(method))
	}

	if z.writingFile {
		if err := z.finishFile(); err != nil {
			return err
		}
	}

	z.entryBuf.Reset()
	z.entryBlock = newBlockWriter(&z.entryBuf, method)

	z.h.records++

	nameBytes := []byte(name)
	if _, err := z.nameBlock.Write(nameBytes); err != nil {
		return err
	}
	if _, err := z.nameBlock.Write([]byte{0}); err != nil {
		return err
	}

	z.rec = record{
		checksum:        checksumName(nameBytes),
		dataOffset:      headerSize + uint32(z.dataBlock.TotalIn()),
		dataCompression: method,
		nameOffset:      z.nameOffset,
	}
	z.nameOffset = uint32(z.nameBlock.TotalIn())

	z.writingFile = true
	return nil
}

// Write implements [io.Writer], feeding bytes to the open entry.
func (z *Writer) Write(p []byte) (int, error) {
	if z.closed {
		return 0, ErrClosed
	}
	if !z.writingFile {
		return 0, ErrNoFileStarted
	}
	return z.entryBlock.Write(p)
}

// finishFile finalizes the open entry: the record gets its final sizes
// and is appended to the record table, the stored payload is appended to
// the data region, and the payload's MD5 digest is appended to the hash
// trailer.
func (z *Writer) finishFile() error {
	if err := z.entryBlock.finalize(); err != nil {
		return err
	}

	stored := z.entryBuf.Bytes()
	z.rec.dataUncompressed = uint32(z.entryBlock.TotalIn())
	z.rec.dataCompressed = uint32(len(stored))

	if _, err := z.recordBlock.Write(z.rec.marshal()); err != nil {
		return err
	}
	if _, err := z.dataBlock.Write(stored); err != nil {
		return err
	}

	digest := md5.Sum(stored)
	if _, err := z.hashBuf.Write(digest[:]); err != nil {
		return fmt.Errorf("%w: writing hash trailer: %w", errTre, err)
	}

	z.entryBlock = nil
	z.writingFile = false
	return nil
}

// Finish finalizes any open entry and writes the archive: header, data
// region, record table, name block, and hash trailer. The Writer is
// unusable afterwards.
func (z *Writer) Finish() error {
	if z.closed {
		return ErrClosed
	}
	z.closed = true

	if z.writingFile {
		if err := z.finishFile(); err != nil {
			return err
		}
	}

	if err := z.dataBlock.finalize(); err != nil {
		return err
	}
	z.h.recordStart = headerSize + uint32(z.dataBuf.Len())

	if err := z.recordBlock.finalize(); err != nil {
		return err
	}
	z.h.recordCompressed = uint32(z.recordBuf.Len())

	z.h.nameUncompressed = uint32(z.nameBlock.TotalIn())
	if err := z.nameBlock.finalize(); err != nil {
		return err
	}
	z.h.nameCompressed = uint32(z.nameBuf.Len())

	if _, err := z.w.Write(z.h.marshal()); err != nil {
		return fmt.Errorf("%w: writing header: %w", errTre, err)
	}
	for _, region := range []*bytes.Buffer{&z.dataBuf, &z.recordBuf, &z.nameBuf, &z.hashBuf} {
		if _, err := io.Copy(z.w, region); err != nil {
			return fmt.Errorf("%w: writing archive: %w", errTre, err)
		}
	}

	return nil
}
