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
	"io"
	"os"

	tre "github.com/swgtools/go-tre"
	"github.com/swgtools/go-tre/diff"
)

type diffCmd struct {
	left  string
	right string
	mode  diff.Mode
}

func (d *diffCmd) Run(w io.Writer) error {
	left, closeLeft, err := openArchive(d.left)
	if err != nil {
		return err
	}
	defer closeLeft()

	right, closeRight, err := openArchive(d.right)
	if err != nil {
		return err
	}
	defer closeRight()

	changes, err := diff.Compare(left, right, d.mode)
	if err != nil {
		return err
	}
	if changes == nil {
		return nil
	}
	return changes.Render(w)
}

func openArchive(path string) (*tre.Archive, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %q: %w", path, err)
	}

	a, err := tre.OpenReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("reading archive %q: %w", path, err)
	}
	return a, f.Close, nil
}
