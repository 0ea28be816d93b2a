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
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
	changedColor = color.New(color.FgYellow)
	dimColor     = color.New(color.Faint)
)

// marker returns the one-character icon for a change kind.
func (c *Change) marker() (string, *color.Color) {
	switch c.Op {
	case Added:
		return "+", addedColor
	case Removed:
		return "-", removedColor
	default:
		return "~", changedColor
	}
}

// Render writes the change tree as a hierarchical listing. The root node
// itself is not labeled; its comparisons and children start at the top
// level.
func (c *Change) Render(w io.Writer) error {
	if err := renderRelated(w, c.Related, 0); err != nil {
		return err
	}
	for _, child := range c.Children {
		if err := renderNode(w, child, 0); err != nil {
			return err
		}
	}
	return nil
}

func renderNode(w io.Writer, c *Change, depth int) error {
	indent := strings.Repeat("\t", depth)
	icon, col := c.marker()
	if _, err := fmt.Fprintf(w, "%s%s %s %s\n", indent, icon, c.Kind, col.Sprint(c.Label)); err != nil {
		return err
	}

	if err := renderRelated(w, c.Related, depth+1); err != nil {
		return err
	}

	for _, line := range c.Context {
		var col *color.Color
		switch {
		case strings.HasPrefix(line, "-"):
			col = removedColor
		case strings.HasPrefix(line, "+"):
			col = addedColor
		default:
			col = dimColor
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", indent, col.Sprint(line)); err != nil {
			return err
		}
	}

	for _, child := range c.Children {
		if err := renderNode(w, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func renderRelated(w io.Writer, related []Comparison, depth int) error {
	indent := strings.Repeat("\t", depth)
	for _, cmp := range related {
		line := fmt.Sprintf("%s | %s", removedColor.Sprint(cmp.Old), addedColor.Sprint(cmp.New))
		if _, err := fmt.Fprintf(w, "%s* %s: %s\n", indent, cmp.Key, line); err != nil {
			return err
		}
	}
	return nil
}
