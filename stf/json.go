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
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf16"
)

// MarshalJSON encodes the table as a {key: value} object with values
// decoded lossily to UTF-8.
func (t *StringTable) MarshalJSON() ([]byte, error) {
	m := make(map[string]string, len(t.entries))
	for _, e := range t.entries {
		m[e.Key] = e.Value.String()
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding: %w", errStf, err)
	}
	return b, nil
}

// UnmarshalJSON decodes a {key: value} object into the table. Ids are
// assigned sequentially over the sorted keys.
func (t *StringTable) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: decoding: %w", errStf, err)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t.entries = make([]Entry, 0, len(m))
	t.byKey = make(map[string]int, len(m))
	t.byID = make(map[uint32]int, len(m))
	for i, k := range keys {
		id := uint32(i + 1)
		t.byKey[k] = len(t.entries)
		t.byID[id] = len(t.entries)
		t.entries = append(t.entries, Entry{
			ID:    id,
			Key:   k,
			Value: utf16.Encode([]rune(m[k])),
		})
	}
	t.nextIndex = uint32(len(m) + 1)

	return nil
}
