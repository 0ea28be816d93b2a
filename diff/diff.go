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

// Package diff compares two TRE archives structurally, with semantic
// decoding of embedded string-table payloads.
package diff

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	tre "github.com/swgtools/go-tre"
)

// Mode selects how deep the comparison goes.
type Mode int

const (
	// Semantic reports structural changes: the entry sets, entry sizes,
	// and string-table key sets and values.
	Semantic Mode = iota

	// Full additionally reports container-layout differences and inline
	// text diffs of changed string-table values.
	Full
)

// String implements [fmt.Stringer].
func (m Mode) String() string {
	switch m {
	case Semantic:
		return "semantic"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a mode name as accepted on the command line.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "semantic":
		return Semantic, nil
	case "full":
		return Full, nil
	default:
		return Semantic, fmt.Errorf("unknown diff mode %q", s)
	}
}

// Op classifies a change node.
type Op int

const (
	// Added marks something present only on the right side.
	Added Op = iota

	// Removed marks something present only on the left side.
	Removed

	// Modified marks a compound change with nested detail.
	Modified
)

// Comparison is a scalar field that differs between the two sides.
type Comparison struct {
	Key string
	Old string
	New string
}

// Change is one node of the change tree. Related holds scalar
// comparisons on the changed object itself; Children holds nested
// changes; Context holds inline diff lines tagged with a leading "-",
// "+", or " ".
type Change struct {
	Op       Op
	Kind     string
	Label    string
	Related  []Comparison
	Children []*Change
	Context  []string
}

// empty reports whether the node carries no detail at all.
func (c *Change) empty() bool {
	return len(c.Related) == 0 && len(c.Children) == 0 && len(c.Context) == 0
}

// sortChildren orders children by (op, kind, label) so rendering is
// stable across runs.
func (c *Change) sortChildren() {
	sort.Slice(c.Children, func(i, j int) bool {
		a, b := c.Children[i], c.Children[j]
		if a.Op != b.Op {
			return a.Op < b.Op
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Label < b.Label
	})
}

// Compare diffs two archives and returns the change tree, or nil when the
// archives are equivalent under the given mode.
func Compare(left, right *tre.Archive, mode Mode) (*Change, error) {
	root := &Change{Op: Modified, Kind: "archive"}

	if left.Len() != right.Len() {
		root.Related = append(root.Related, Comparison{
			Key: "entries",
			Old: strconv.Itoa(left.Len()),
			New: strconv.Itoa(right.Len()),
		})
	}

	if mode == Full {
		if left.RecordCompression() != right.RecordCompression() {
			root.Related = append(root.Related, Comparison{
				Key: "record compression",
				Old: left.RecordCompression().String(),
				New: right.RecordCompression().String(),
			})
		}
		if left.RecordBlockSize() != right.RecordBlockSize() {
			root.Related = append(root.Related, Comparison{
				Key: "record block size",
				Old: strconv.FormatUint(uint64(left.RecordBlockSize()), 10),
				New: strconv.FormatUint(uint64(right.RecordBlockSize()), 10),
			})
		}
		if left.NameBlockSize() != right.NameBlockSize() {
			root.Related = append(root.Related, Comparison{
				Key: "name block size",
				Old: strconv.FormatUint(uint64(left.NameBlockSize()), 10),
				New: strconv.FormatUint(uint64(right.NameBlockSize()), 10),
			})
		}
	}

	leftNames := nameSet(left)
	rightNames := nameSet(right)

	var shared []string
	for name := range rightNames {
		if _, ok := leftNames[name]; ok {
			shared = append(shared, name)
		} else {
			root.Children = append(root.Children, &Change{Op: Added, Kind: "files", Label: name})
		}
	}
	for name := range leftNames {
		if _, ok := rightNames[name]; !ok {
			root.Children = append(root.Children, &Change{Op: Removed, Kind: "files", Label: name})
		}
	}
	sort.Strings(shared)

	for _, name := range shared {
		fileChange, err := compareEntry(left, right, name, mode)
		if err != nil {
			return nil, err
		}
		if fileChange != nil {
			root.Children = append(root.Children, fileChange)
		}
	}

	root.sortChildren()
	if root.empty() {
		return nil, nil
	}
	return root, nil
}

// compareEntry diffs one shared entry by name. It returns nil when the
// entry is considered unchanged under the given mode.
func compareEntry(left, right *tre.Archive, name string, mode Mode) (*Change, error) {
	leftData, err := extract(left, name)
	if err != nil {
		return nil, err
	}
	rightData, err := extract(right, name)
	if err != nil {
		return nil, err
	}

	change := &Change{Op: Modified, Kind: "files", Label: name}

	if len(leftData) != len(rightData) {
		change.Related = append(change.Related, Comparison{
			Key: "size",
			Old: strconv.Itoa(len(leftData)),
			New: strconv.Itoa(len(rightData)),
		})
	}

	if isStf(name) {
		if err := compareStf(change, leftData, rightData, mode); err != nil {
			return nil, err
		}
	}

	change.sortChildren()
	if change.empty() {
		return nil, nil
	}
	return change, nil
}

// extract reads one entry's payload fully into memory.
func extract(a *tre.Archive, name string) ([]byte, error) {
	f, err := a.ByName(name)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("extracting %q: %w", name, err)
	}
	return data, nil
}

func nameSet(a *tre.Archive) map[string]struct{} {
	set := make(map[string]struct{}, a.Len())
	for _, name := range a.FileNames() {
		set[name] = struct{}{}
	}
	return set
}
