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
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Method identifies the storage format of a block inside a TRE archive.
//
// The record table and name block methods are chosen via [WriterOptions];
// each entry's payload method is chosen via [Writer.StartFile].
type Method uint32

const (
	// None stores the block bytes as they are.
	None Method = 0

	// Zlib compresses the block with zlib.
	Zlib Method = 2
)

// String implements [fmt.Stringer].
func (m Method) String() string {
	switch m {
	case None:
		return "none"
	case Zlib:
		return "zlib"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(m))
	}
}

// valid reports whether m is a method tag this package understands.
func (m Method) valid() bool {
	return m == None || m == Zlib
}

// blockReader streams one stored block: it positions the source at the
// block start, caps reads at the on-disk length, and decompresses when the
// block is zlib-compressed. The cap is enforced here so callers may stop
// reading early without corrupting the source position accounting.
//
// The zlib decoder is built on first read. The decoder checks the stream
// header eagerly, and an empty compressed block holds no bytes at all.
type blockReader struct {
	limited io.Reader
	method  Method
	r       io.Reader
}

// newBlockReader seeks src to start and returns a reader over the block's
// uncompressed bytes.
//
// zlib streams are not seekable, so every call builds a fresh decoder.
func newBlockReader(src io.ReadSeeker, start, limit int64, method Method) (*blockReader, error) {
	if !method.valid() {
		return nil, fmt.Errorf("%w: %d", ErrCompression, uint32(method))
	}

	if _, err := src.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seeking block start: %w", errTre, err)
	}

	return &blockReader{
		limited: io.LimitReader(src, limit),
		method:  method,
	}, nil
}

// Read implements [io.Reader].
func (b *blockReader) Read(p []byte) (int, error) {
	if b.r == nil {
		if b.method == None {
			b.r = b.limited
		} else {
			zr, err := zlib.NewReader(b.limited)
			if err != nil {
				return 0, fmt.Errorf("%w: opening zlib block: %w", errTre, err)
			}
			b.r = zr
		}
	}
	n, err := b.r.Read(p)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("%w: reading block: %w", errTre, err)
	}
	return n, err
}

// blockWriter accumulates one block's bytes, compressing them when the
// method is Zlib, and counts the uncompressed bytes fed in.
type blockWriter struct {
	dst     io.Writer
	zw      *zlib.Writer
	totalIn int64
	done    bool
}

// newBlockWriter wraps dst so that writes are stored with the given
// method. The zlib stream trailer is emitted by finalize.
func newBlockWriter(dst io.Writer, method Method) *blockWriter {
	w := &blockWriter{dst: dst}
	if method == Zlib {
		w.zw = zlib.NewWriter(dst)
	}
	return w
}

// Write implements [io.Writer].
func (b *blockWriter) Write(p []byte) (int, error) {
	var n int
	var err error
	if b.zw != nil {
		n, err = b.zw.Write(p)
	} else {
		n, err = b.dst.Write(p)
	}
	b.totalIn += int64(n)
	if err != nil {
		return n, fmt.Errorf("%w: writing block: %w", errTre, err)
	}
	return n, nil
}

// TotalIn returns the number of uncompressed bytes written so far.
func (b *blockWriter) TotalIn() int64 {
	return b.totalIn
}

// finalize flushes the block, emitting the zlib trailer when applicable.
// It is idempotent.
func (b *blockWriter) finalize() error {
	if b.done {
		return nil
	}
	b.done = true
	if b.zw != nil {
		if err := b.zw.Close(); err != nil {
			return fmt.Errorf("%w: finalizing block: %w", errTre, err)
		}
	}
	return nil
}
