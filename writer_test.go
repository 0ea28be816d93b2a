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
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriter(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		opts WriterOptions
		// files is the sequence of entries to write. Each entry's data is
		// written with a single Write call.
		files []struct {
			name   string
			method Method
			data   []byte
		}

		// want is the exact output. Only usable for fully uncompressed
		// archives: compressed bytes may differ across zlib
		// implementations.
		want []byte
	}{
		{
			name: "empty archive",
			opts: WriterOptions{RecordCompression: None, NameCompression: None},
			want: []byte{
				0x45, 0x45, 0x52, 0x54, 0x35, 0x30, 0x30, 0x30,
				0x00, 0x00, 0x00, 0x00,
				0x24, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
			},
		},
		{
			name: "single entry without data",
			opts: WriterOptions{RecordCompression: None, NameCompression: None},
			files: []struct {
				name   string
				method Method
				data   []byte
			}{
				{name: "hello.txt", method: None},
			},
			want: []byte{
				// Header
				0x45, 0x45, 0x52, 0x54, 0x35, 0x30, 0x30, 0x30,
				0x01, 0x00, 0x00, 0x00,
				0x24, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				0x18, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				0x0A, 0x00, 0x00, 0x00,
				0x0A, 0x00, 0x00, 0x00,
				// Records
				0xAA, 0x30, 0x7E, 0x52,
				0x00, 0x00, 0x00, 0x00,
				0x24, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				// Names
				0x68, 0x65, 0x6C, 0x6C, 0x6F, 0x2E, 0x74, 0x78, 0x74, 0x00,
				// Hashes
				0xD4, 0x1D, 0x8C, 0xD9, 0x8F, 0x00, 0xB2, 0x04,
				0xE9, 0x80, 0x09, 0x98, 0xEC, 0xF8, 0x42, 0x7E,
			},
		},
		{
			name: "single entry with data",
			opts: WriterOptions{RecordCompression: None, NameCompression: None},
			files: []struct {
				name   string
				method Method
				data   []byte
			}{
				{name: "hello.txt", method: None, data: []byte("Hello World")},
			},
			want: []byte{
				// Header
				0x45, 0x45, 0x52, 0x54, 0x35, 0x30, 0x30, 0x30,
				0x01, 0x00, 0x00, 0x00,
				0x2F, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				0x18, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				0x0A, 0x00, 0x00, 0x00,
				0x0A, 0x00, 0x00, 0x00,
				// Data
				0x48, 0x65, 0x6C, 0x6C, 0x6F, 0x20, 0x57, 0x6F, 0x72, 0x6C, 0x64,
				// Records
				0xAA, 0x30, 0x7E, 0x52,
				0x0B, 0x00, 0x00, 0x00,
				0x24, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				0x0B, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				// Names
				0x68, 0x65, 0x6C, 0x6C, 0x6F, 0x2E, 0x74, 0x78, 0x74, 0x00,
				// Hashes
				0xB1, 0x0A, 0x8D, 0xB1, 0x64, 0xE0, 0x75, 0x41,
				0x05, 0xB7, 0xA9, 0x9B, 0xE7, 0x2E, 0x3F, 0xE5,
			},
		},
		{
			name: "two entries with data",
			opts: WriterOptions{RecordCompression: None, NameCompression: None},
			files: []struct {
				name   string
				method Method
				data   []byte
			}{
				{name: "hello.txt", method: None, data: []byte("Hello World")},
				{name: "world.txt", method: None, data: []byte("World Hello")},
			},
			want: []byte{
				// Header
				0x45, 0x45, 0x52, 0x54, 0x35, 0x30, 0x30, 0x30,
				0x02, 0x00, 0x00, 0x00,
				0x3A, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				0x30, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				0x14, 0x00, 0x00, 0x00,
				0x14, 0x00, 0x00, 0x00,
				// Data
				0x48, 0x65, 0x6C, 0x6C, 0x6F, 0x20, 0x57, 0x6F, 0x72, 0x6C, 0x64,
				0x57, 0x6F, 0x72, 0x6C, 0x64, 0x20, 0x48, 0x65, 0x6C, 0x6C, 0x6F,
				// Records
				0xAA, 0x30, 0x7E, 0x52,
				0x0B, 0x00, 0x00, 0x00,
				0x24, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				0x0B, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,

				0xDE, 0x6E, 0xB0, 0xD8,
				0x0B, 0x00, 0x00, 0x00,
				0x2F, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
				0x0B, 0x00, 0x00, 0x00,
				0x0A, 0x00, 0x00, 0x00,
				// Names
				0x68, 0x65, 0x6C, 0x6C, 0x6F, 0x2E, 0x74, 0x78, 0x74, 0x00,
				0x77, 0x6F, 0x72, 0x6C, 0x64, 0x2E, 0x74, 0x78, 0x74, 0x00,
				// Hashes
				0xB1, 0x0A, 0x8D, 0xB1, 0x64, 0xE0, 0x75, 0x41,
				0x05, 0xB7, 0xA9, 0x9B, 0xE7, 0x2E, 0x3F, 0xE5,
				0x9F, 0xEF, 0x1D, 0xFD, 0x8F, 0xA4, 0x1F, 0x7A,
				0xD0, 0x4D, 0x76, 0x0C, 0x77, 0xDE, 0xAB, 0x39,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			w := NewWriterOptions(&buf, tc.opts)
			for _, f := range tc.files {
				if err := w.StartFile(f.name, f.method); err != nil {
					t.Fatalf("StartFile: %v", err)
				}
				if len(f.data) > 0 {
					if _, err := w.Write(f.data); err != nil {
						t.Fatalf("Write: %v", err)
					}
				}
			}
			if err := w.Finish(); err != nil {
				t.Fatalf("Finish: %v", err)
			}

			if diff := cmp.Diff(tc.want, buf.Bytes()); diff != "" {
				t.Errorf("output (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestWriter_Contract(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriterOptions(&buf, WriterOptions{})

	if w.IsWritingFile() {
		t.Errorf("IsWritingFile before StartFile: got true")
	}
	if _, err := w.Write([]byte("data")); !errors.Is(err, ErrNoFileStarted) {
		t.Errorf("Write before StartFile: got %v, want %v", err, ErrNoFileStarted)
	}

	if err := w.StartFile("a.txt", None); err != nil {
		t.Fatalf("StartFile: %v", err)
	}
	if !w.IsWritingFile() {
		t.Errorf("IsWritingFile after StartFile: got false")
	}
	if err := w.StartFile("b.txt", Method(7)); !errors.Is(err, ErrCompression) {
		t.Errorf("StartFile with bad method: got %v, want %v", err, ErrCompression)
	}

	if err := w.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := w.Finish(); !errors.Is(err, ErrClosed) {
		t.Errorf("Finish twice: got %v, want %v", err, ErrClosed)
	}
	if _, err := w.Write([]byte("data")); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Finish: got %v, want %v", err, ErrClosed)
	}
	if err := w.StartFile("c.txt", None); !errors.Is(err, ErrClosed) {
		t.Errorf("StartFile after Finish: got %v, want %v", err, ErrClosed)
	}
}

// Every combination of block and entry compression must round-trip.
func TestWriter_RoundTrip(t *testing.T) {
	t.Parallel()

	entries := map[string][]byte{
		"hello.txt":         []byte("Hello World"),
		"world.txt":         []byte("World Hello"),
		"sub/dir/nested.go": []byte("package main\n\nfunc main() {}\n"),
		"empty.bin":         {},
	}
	order := []string{"hello.txt", "world.txt", "sub/dir/nested.go", "empty.bin"}

	methods := []Method{None, Zlib}
	for _, recordMethod := range methods {
		for _, nameMethod := range methods {
			for _, dataMethod := range methods {
				name := "record=" + recordMethod.String() +
					"/name=" + nameMethod.String() +
					"/data=" + dataMethod.String()
				t.Run(name, func(t *testing.T) {
					t.Parallel()

					var buf bytes.Buffer
					w := NewWriterOptions(&buf, WriterOptions{
						RecordCompression: recordMethod,
						NameCompression:   nameMethod,
					})
					for _, n := range order {
						if err := w.StartFile(n, dataMethod); err != nil {
							t.Fatalf("StartFile(%q): %v", n, err)
						}
						if _, err := w.Write(entries[n]); err != nil {
							t.Fatalf("Write(%q): %v", n, err)
						}
					}
					if err := w.Finish(); err != nil {
						t.Fatalf("Finish: %v", err)
					}

					a, err := OpenReader(bytes.NewReader(buf.Bytes()))
					if err != nil {
						t.Fatalf("OpenReader: %v", err)
					}

					if diff := cmp.Diff(order, a.FileNames()); diff != "" {
						t.Fatalf("FileNames (-want, +got):\n%s", diff)
					}
					if got := a.RecordCompression(); got != recordMethod {
						t.Errorf("RecordCompression: got %v, want %v", got, recordMethod)
					}
					if got := a.NameCompression(); got != nameMethod {
						t.Errorf("NameCompression: got %v, want %v", got, nameMethod)
					}

					for i, n := range order {
						f, err := a.ByIndex(i)
						if err != nil {
							t.Fatalf("ByIndex(%d): %v", i, err)
						}
						if f.Name != n {
							t.Errorf("entry %d: got name %q, want %q", i, f.Name, n)
						}
						if f.CRC32 != checksumName([]byte(n)) {
							t.Errorf("entry %d: got crc %08x, want %08x", i, f.CRC32, checksumName([]byte(n)))
						}
						if f.Method != dataMethod {
							t.Errorf("entry %d: got method %v, want %v", i, f.Method, dataMethod)
						}

						got, err := io.ReadAll(f)
						if err != nil {
							t.Fatalf("ReadAll(%q): %v", n, err)
						}
						want := entries[n]
						if len(want) == 0 {
							want = []byte{}
						}
						if len(got) == 0 {
							got = []byte{}
						}
						if diff := cmp.Diff(want, got); diff != "" {
							t.Errorf("payload %q (-want, +got):\n%s", n, diff)
						}
					}
				})
			}
		}
	}
}

// The record table must satisfy the layout invariants: the record block
// immediately follows the data region and each payload's offset is the
// running sum of stored payload sizes.
func TestWriter_OffsetInvariants(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriterOptions(&buf, WriterOptions{})
	payloads := [][]byte{
		bytes.Repeat([]byte("abc"), 100),
		[]byte("x"),
		bytes.Repeat([]byte{0xFF}, 4096),
	}
	for i, p := range payloads {
		name := string(rune('a'+i)) + ".bin"
		if err := w.StartFile(name, Zlib); err != nil {
			t.Fatalf("StartFile: %v", err)
		}
		if _, err := w.Write(p); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	out := buf.Bytes()
	recordStart := binary.LittleEndian.Uint32(out[12:16])

	a, err := OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}

	var sum uint64
	for i := range a.Len() {
		f, err := a.ByIndex(i)
		if err != nil {
			t.Fatalf("ByIndex(%d): %v", i, err)
		}
		if want := 36 + sum; f.DataStart != want {
			t.Errorf("entry %d: got offset %d, want %d", i, f.DataStart, want)
		}
		sum += f.CompressedSize
	}
	if want := 36 + sum; uint64(recordStart) != want {
		t.Errorf("record start: got %d, want %d", recordStart, want)
	}
}

// The trailer holds one MD5 digest per entry over the stored (possibly
// compressed) payload bytes, in entry order.
func TestWriter_HashTrailer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriterOptions(&buf, WriterOptions{})
	entries := []struct {
		name   string
		method Method
		data   []byte
	}{
		{"plain.txt", None, []byte("stored verbatim")},
		{"packed.txt", Zlib, bytes.Repeat([]byte("compress me "), 50)},
	}
	for _, e := range entries {
		if err := w.StartFile(e.name, e.method); err != nil {
			t.Fatalf("StartFile: %v", err)
		}
		if _, err := w.Write(e.data); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	out := buf.Bytes()
	a, err := OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}

	trailer := out[len(out)-md5.Size*len(entries):]
	for i := range entries {
		f, err := a.ByIndex(i)
		if err != nil {
			t.Fatalf("ByIndex(%d): %v", i, err)
		}
		stored := out[f.DataStart : f.DataStart+f.CompressedSize]
		want := md5.Sum(stored)
		got := trailer[i*md5.Size : (i+1)*md5.Size]
		if diff := cmp.Diff(want[:], got); diff != "" {
			t.Errorf("trailer digest %d (-want, +got):\n%s", i, diff)
		}
	}
}

// Starting a new entry finalizes the previous one implicitly.
func TestWriter_ImplicitFinishFile(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriterOptions(&buf, WriterOptions{})
	if err := w.StartFile("first.txt", None); err != nil {
		t.Fatalf("StartFile: %v", err)
	}
	if _, err := w.Write([]byte("one")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.StartFile("second.txt", None); err != nil {
		t.Fatalf("StartFile: %v", err)
	}
	if _, err := w.Write([]byte("two")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	a, err := OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	if diff := cmp.Diff([]string{"first.txt", "second.txt"}, a.FileNames()); diff != "" {
		t.Fatalf("FileNames (-want, +got):\n%s", diff)
	}
}
