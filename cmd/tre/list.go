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

package main

import (
	"fmt"
	"os"

	"github.com/rodaine/table"

	tre "github.com/swgtools/go-tre"
)

type list struct {
	path string
}

func (l *list) Run() error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("opening %q: %w", l.path, err)
	}
	defer f.Close()

	archive, err := tre.OpenReader(f)
	if err != nil {
		return fmt.Errorf("reading archive %q: %w", l.path, err)
	}

	tbl := table.New("index", "method", "compressed", "uncompressed", "crc32", "name")
	for i := range archive.Len() {
		entry, err := archive.ByIndex(i)
		if err != nil {
			return err
		}
		tbl.AddRow(
			i,
			entry.Method.String(),
			entry.CompressedSize,
			entry.UncompressedSize,
			fmt.Sprintf("%08x", entry.CRC32),
			entry.Name,
		)
	}
	tbl.Print()

	fmt.Printf("total %d entries, %d bytes uncompressed\n", archive.Len(), archive.DecompressedSize())

	return nil
}
