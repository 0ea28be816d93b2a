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

// Package tre reads and writes TRE game-asset archives.
//
// A TRE archive starts with a fixed 36-byte little-endian header ("TREE"
// magic plus version "0005", stored as "EERT5000"), followed by the data
// region holding each entry's payload, a record table describing the
// entries, a name block of NUL-terminated entry names, and a trailer of
// MD5 digests over each entry's stored payload bytes. The record table,
// the name block, and each payload are independently either stored
// verbatim or zlib-compressed.
//
// Unless otherwise informed clients should not assume implementations in
// this package are safe for parallel execution.
package tre

import (
	"errors"
	"fmt"
)

var (
	// errTre is the base error for all go-tre errors.
	errTre = errors.New("tre")

	// ErrInvalidArchive indicates that the file is not a TRE archive: the
	// magic bytes are wrong or the metadata blocks are truncated.
	ErrInvalidArchive = fmt.Errorf("%w: invalid archive", errTre)

	// ErrCompression indicates an unrecognized compression method tag.
	ErrCompression = fmt.Errorf("%w: invalid compression method", errTre)

	// ErrFileNotFound indicates that no entry exists for the requested
	// index or name.
	ErrFileNotFound = fmt.Errorf("%w: file not found", errTre)

	// ErrNoFileStarted is returned by Writer.Write when no entry is open.
	ErrNoFileStarted = fmt.Errorf("%w: no file has been started", errTre)

	// ErrClosed is returned when using a Writer after Finish.
	ErrClosed = fmt.Errorf("%w: writer is closed", errTre)

	// ErrReaderInvalidated is returned when reading from a per-entry
	// reader after another entry has been opened on the same archive.
	ErrReaderInvalidated = fmt.Errorf("%w: entry reader invalidated", errTre)
)
