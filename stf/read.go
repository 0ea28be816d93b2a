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

package stf

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// stfMagic identifies a string table file.
const stfMagic = 0x0000ABCD

// Decode reads an STF file and parses its entries.
//
// Value records carry an extra 32-bit field documented as fixed
// 0xFFFFFFFF; it is not validated. Keys with no matching value record are
// dropped.
func Decode(r io.Reader) (*StringTable, error) {
	var head [13]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header: %w", ErrInvalidFile, err)
	}

	if m := binary.LittleEndian.Uint32(head[0:4]); m != stfMagic {
		return nil, fmt.Errorf("%w: bad magic %#08x", ErrInvalidFile, m)
	}

	t := &StringTable{
		flag:      head[4],
		nextIndex: binary.LittleEndian.Uint32(head[5:9]),
	}
	count := binary.LittleEndian.Uint32(head[9:13])

	values := make(map[uint32]Value, count)
	for range count {
		var rec [12]byte
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return nil, fmt.Errorf("%w: reading value record: %w", errStf, err)
		}
		id := binary.LittleEndian.Uint32(rec[0:4])
		// rec[4:8] is the unknown field, ignored.
		runes := binary.LittleEndian.Uint32(rec[8:12])

		data := make([]byte, int64(runes)*2)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("%w: reading value data: %w", errStf, err)
		}
		value := make(Value, runes)
		for i := range value {
			value[i] = binary.LittleEndian.Uint16(data[i*2 : i*2+2])
		}
		values[id] = value
	}

	t.entries = make([]Entry, 0, count)
	t.byKey = make(map[string]int, count)
	t.byID = make(map[uint32]int, count)
	for range count {
		var rec [8]byte
		if _, err := io.ReadFull(r, rec[:]); err != nil {
			return nil, fmt.Errorf("%w: reading key record: %w", errStf, err)
		}
		id := binary.LittleEndian.Uint32(rec[0:4])
		runes := binary.LittleEndian.Uint32(rec[4:8])

		data := make([]byte, runes)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("%w: reading key data: %w", errStf, err)
		}
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: key %d is not valid UTF-8", errStf, id)
		}

		value, ok := values[id]
		if !ok {
			// A key with no matching value is dropped.
			continue
		}

		key := string(data)
		t.byKey[key] = len(t.entries)
		t.byID[id] = len(t.entries)
		t.entries = append(t.entries, Entry{ID: id, Key: key, Value: value})
	}

	return t, nil
}
