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
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	tre "github.com/swgtools/go-tre"
)

var errUnsafeName = errors.New("entry name escapes the target directory")

type extract struct {
	path      string
	dir       string
	overwrite bool
}

func (e *extract) Run() error {
	f, err := os.Open(e.path)
	if err != nil {
		return fmt.Errorf("opening %q: %w", e.path, err)
	}
	defer f.Close()

	archive, err := tre.OpenReader(f)
	if err != nil {
		return fmt.Errorf("reading archive %q: %w", e.path, err)
	}

	for i := range archive.Len() {
		entry, err := archive.ByIndex(i)
		if err != nil {
			return err
		}
		if err := e.writeEntry(entry); err != nil {
			return err
		}
	}
	return nil
}

func (e *extract) writeEntry(entry *tre.File) error {
	// Entry names come from the archive and may try to break out of the
	// target directory.
	name := filepath.FromSlash(entry.Name)
	if filepath.IsAbs(name) {
		return fmt.Errorf("%w: %q", errUnsafeName, entry.Name)
	}
	p := filepath.Join(e.dir, name)
	if rel, err := filepath.Rel(e.dir, p); err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%w: %q", errUnsafeName, entry.Name)
	}

	logrus.Infof("writing %s", p)

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating %q: %w", filepath.Dir(p), err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !e.overwrite {
		flags = os.O_CREATE | os.O_WRONLY | os.O_EXCL
	}
	out, err := os.OpenFile(p, flags, 0o644)
	if err != nil {
		return fmt.Errorf("creating %q: %w", p, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, entry); err != nil {
		return fmt.Errorf("extracting %q: %w", entry.Name, err)
	}
	return nil
}
