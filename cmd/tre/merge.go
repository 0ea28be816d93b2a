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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	tre "github.com/swgtools/go-tre"
)

var errEmptyDir = errors.New("directory is empty")

type merge struct {
	dir       string
	path      string
	overwrite bool
}

func (m *merge) Run() error {
	logrus.Infof("creating %s", m.path)

	var files []string
	err := filepath.WalkDir(m.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %q: %w", m.dir, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: %q", errEmptyDir, m.dir)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !m.overwrite {
		flags = os.O_CREATE | os.O_WRONLY | os.O_EXCL
	}
	out, err := os.OpenFile(m.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("creating %q: %w", m.path, err)
	}
	defer out.Close()

	w := tre.NewWriter(out)
	for _, p := range files {
		rel, err := filepath.Rel(m.dir, p)
		if err != nil {
			return fmt.Errorf("resolving %q: %w", p, err)
		}
		name := filepath.ToSlash(rel)
		logrus.Infof("merging %s", name)

		if err := w.StartFile(name, tre.Zlib); err != nil {
			return fmt.Errorf("starting entry for %q: %w", name, err)
		}

		if err := copyFile(w, p); err != nil {
			return err
		}
	}

	if err := w.Finish(); err != nil {
		return fmt.Errorf("finalizing %q: %w", m.path, err)
	}
	return nil
}

func copyFile(w io.Writer, p string) error {
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("opening %q: %w", p, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copying %q: %w", p, err)
	}
	return nil
}
