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

package diff

import (
	"bytes"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/swgtools/go-tre/stf"
)

// isStf reports whether the entry name looks like a string table payload.
func isStf(name string) bool {
	return strings.HasSuffix(name, ".stf")
}

// compareStf decodes both payloads as string tables and appends the
// key-level changes to the file's change node.
func compareStf(change *Change, leftData, rightData []byte, mode Mode) error {
	left, err := stf.Decode(bytes.NewReader(leftData))
	if err != nil {
		return err
	}
	right, err := stf.Decode(bytes.NewReader(rightData))
	if err != nil {
		return err
	}

	for _, e := range right.Entries() {
		if !left.ContainsKey(e.Key) {
			change.Children = append(change.Children, &Change{
				Op:      Added,
				Kind:    "entries",
				Label:   e.Key,
				Related: []Comparison{{Key: "value", New: e.Value.String()}},
			})
		}
	}

	for _, e := range left.Entries() {
		if !right.ContainsKey(e.Key) {
			change.Children = append(change.Children, &Change{
				Op:      Removed,
				Kind:    "entries",
				Label:   e.Key,
				Related: []Comparison{{Key: "value", Old: e.Value.String()}},
			})
		}
	}

	for _, e := range left.Entries() {
		rv, ok := right.Get(e.Key)
		if !ok {
			continue
		}

		oldText := e.Value.String()
		newText := rv.String()
		if ratio(oldText, newText) >= 1.0 {
			continue
		}

		entry := &Change{Op: Modified, Kind: "entries", Label: e.Key}
		if mode == Full {
			entry.Context = contextLines(oldText, newText)
		}
		change.Children = append(change.Children, entry)
	}

	return nil
}

// ratio is the similarity ratio of two texts under a character-level
// diff: twice the number of matching bytes over the total length.
// Identical texts score 1.0.
func ratio(oldText, newText string) float64 {
	if oldText == newText {
		return 1.0
	}
	total := len(oldText) + len(newText)
	if total == 0 {
		return 1.0
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)

	var matching int
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			matching += len(d.Text)
		}
	}
	return float64(2*matching) / float64(total)
}

// contextLines produces an inline line diff of the two texts. Each line
// is tagged with a leading "-", "+", or " ".
func contextLines(oldText, newText string) []string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []string
	for _, d := range diffs {
		var tag string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			tag = "-"
		case diffmatchpatch.DiffInsert:
			tag = "+"
		case diffmatchpatch.DiffEqual:
			tag = " "
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			out = append(out, tag+" "+line)
		}
	}
	return out
}
