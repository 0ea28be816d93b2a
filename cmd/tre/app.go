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
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/swgtools/go-tre/diff"
)

const (
	// ExitCodeSuccess is the successful exit code.
	ExitCodeSuccess int = iota

	// ExitCodeFlagParseError is the exit code for a flag parsing error.
	ExitCodeFlagParseError

	// ExitCodeUnknownError is the exit code for an unknown error.
	ExitCodeUnknownError
)

// ErrFlagParse is a flag parsing error.
var ErrFlagParse = errors.New("parsing flags")

func newTreApp() *cli.App {
	return &cli.App{
		Name:  filepath.Base(os.Args[0]),
		Usage: "Read, write, and compare TRE archives.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:               "verbose",
				Usage:              "enable verbose logging",
				Aliases:            []string{"v"},
				DisableDefaultText: true,
			},
		},
		Before: func(c *cli.Context) error {
			// Logs go to stderr so structured stdout output stays clean.
			logrus.SetOutput(os.Stderr)
			if c.Bool("verbose") {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "extract",
				Usage: "Extract a TRE file into a directory",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "an input TRE file",
						Aliases:  []string{"f"},
						Required: true,
					},
					&cli.StringFlag{
						Name:     "directory",
						Usage:    "a target directory",
						Aliases:  []string{"d"},
						Required: true,
					},
					&cli.BoolFlag{
						Name:               "overwrite",
						Usage:              "allow overwriting targets",
						DisableDefaultText: true,
					},
				},
				Action: func(c *cli.Context) error {
					e := extract{
						path:      c.String("file"),
						dir:       c.String("directory"),
						overwrite: c.Bool("overwrite"),
					}
					return e.Run()
				},
			},
			{
				Name:  "merge",
				Usage: "Merge a directory into a TRE file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "directory",
						Usage:    "an input directory",
						Aliases:  []string{"d"},
						Required: true,
					},
					&cli.StringFlag{
						Name:     "file",
						Usage:    "a target TRE file",
						Aliases:  []string{"f"},
						Required: true,
					},
					&cli.BoolFlag{
						Name:               "overwrite",
						Usage:              "allow overwriting the target",
						DisableDefaultText: true,
					},
				},
				Action: func(c *cli.Context) error {
					m := merge{
						dir:       c.String("directory"),
						path:      c.String("file"),
						overwrite: c.Bool("overwrite"),
					}
					return m.Run()
				},
			},
			{
				Name:  "diff",
				Usage: "Compare two TRE files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "left",
						Usage:    "an input TRE file",
						Aliases:  []string{"l"},
						Required: true,
					},
					&cli.StringFlag{
						Name:     "right",
						Usage:    "an input TRE file",
						Aliases:  []string{"r"},
						Required: true,
					},
					&cli.StringFlag{
						Name:    "mode",
						Usage:   "comparison mode (semantic or full)",
						Aliases: []string{"m"},
						Value:   "semantic",
					},
				},
				Action: func(c *cli.Context) error {
					mode, err := diff.ParseMode(c.String("mode"))
					if err != nil {
						return fmt.Errorf("%w: %w", ErrFlagParse, err)
					}
					d := diffCmd{
						left:  c.String("left"),
						right: c.String("right"),
						mode:  mode,
					}
					return d.Run(c.App.Writer)
				},
			},
			{
				Name:  "list",
				Usage: "List the entries of a TRE file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "an input TRE file",
						Aliases:  []string{"f"},
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					l := list{path: c.String("file")}
					return l.Run()
				},
			},
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(c *cli.Context) error {
					return printVersion(c)
				},
			},
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}

			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", c.App.Name, err)
			if errors.Is(err, ErrFlagParse) {
				cli.OsExiter(ExitCodeFlagParseError)
				return
			}

			cli.OsExiter(ExitCodeUnknownError)
		},
	}
}
