/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"comicview/internal/config"
	"comicview/internal/crash"
	"comicview/internal/export"
	applog "comicview/internal/log"
	"comicview/internal/replay"
	"comicview/internal/resample"
	"comicview/internal/storage"
	"comicview/internal/ui"
	"comicview/internal/version"
	"comicview/internal/viewer"
)

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "comicview - comic page viewer")
	_, _ = fmt.Fprintf(w, "Version: %s\n", version.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  comicview version|-v|--version     Show version")
	_, _ = fmt.Fprintln(w, "  comicview ui <image>                Open an image (build with -tags fyne for the window)")
	_, _ = fmt.Fprintln(w, "  comicview replay <script.yaml>      Play a recorded gesture script and print the events")
	_, _ = fmt.Fprintln(w, "  comicview export <image> <script.yaml> <out.png|out.pdf> [screen|print|thumb]")
	_, _ = fmt.Fprintln(w, "                                      Replay a script over an image and save the final view")
	_, _ = fmt.Fprintln(w, "  comicview history [list [n]]        Show saved reading positions")
	_, _ = fmt.Fprintln(w, "  comicview history forget <image>    Drop the saved position of an image")
	_, _ = fmt.Fprintln(w, "  comicview history prune [keep]      Keep only the most recent positions")
	_, _ = fmt.Fprintln(w, "  comicview config [show]             Print the effective configuration")
	_, _ = fmt.Fprintln(w, "  comicview config validate <file>    Check a config file against the schema")
	_, _ = fmt.Fprintln(w, "  comicview config init               Write the defaults to the per-user config file")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 on success, 1 on failure, 2 on usage errors.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, cfgErr := config.Load()
	applog.Init(cfg.LogOptions())
	defer func() { _ = applog.Close() }()
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config rejected, using defaults", slog.Any("err", cfgErr))
	}
	defer crash.Recover("", nil)

	l.Debug("start", slog.Int("args", len(args)))
	if len(args) == 0 {
		usage(stdout)
		return 0
	}
	fail := func(err error) int {
		l.Error(args[0]+" failed", slog.Any("err", err))
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}

	switch args[0] {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(stdout, version.String())
		return 0
	case "ui":
		if len(args) < 2 {
			_, _ = fmt.Fprintln(stderr, "ui requires <image>")
			usage(stderr)
			return 2
		}
		if err := ui.Run(args[1], cfg); err != nil {
			return fail(err)
		}
		return 0
	case "replay":
		if len(args) < 2 {
			_, _ = fmt.Fprintln(stderr, "replay requires <script.yaml>")
			usage(stderr)
			return 2
		}
		if err := replayScript(args[1], cfg, stdout); err != nil {
			return fail(err)
		}
		return 0
	case "export":
		if len(args) < 4 {
			_, _ = fmt.Fprintln(stderr, "export requires <image> <script.yaml> <out>")
			usage(stderr)
			return 2
		}
		preset := export.PresetScreen
		if len(args) > 4 {
			preset = export.PresetName(args[4])
		}
		if err := exportView(args[1], args[2], args[3], preset, cfg); err != nil {
			return fail(err)
		}
		_, _ = fmt.Fprintln(stdout, "Wrote", args[3])
		return 0
	case "history":
		code, err := history(args[1:], cfg, stdout)
		if err != nil {
			return fail(err)
		}
		if code == 2 {
			usage(stderr)
		}
		return code
	case "config":
		sub := "show"
		if len(args) > 1 {
			sub = args[1]
		}
		switch sub {
		case "show":
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fail(err)
			}
			_, _ = stdout.Write(data)
			if cfgErr != nil {
				_, _ = fmt.Fprintln(stderr, "Warning:", cfgErr)
			}
			return 0
		case "validate":
			if len(args) < 3 {
				_, _ = fmt.Fprintln(stderr, "config validate requires <file>")
				return 2
			}
			if _, err := config.LoadFile(args[2]); err != nil {
				return fail(err)
			}
			_, _ = fmt.Fprintln(stdout, "ok")
			return 0
		case "init":
			path, err := config.ConfigPath()
			if err != nil {
				return fail(err)
			}
			if _, err := os.Stat(path); err == nil {
				return fail(fmt.Errorf("%s already exists", path))
			}
			if err := config.Save(path, config.Defaults()); err != nil {
				return fail(err)
			}
			_, _ = fmt.Fprintln(stdout, "Wrote", path)
			return 0
		}
	}
	usage(stderr)
	return 2
}

func replayScript(path string, cfg config.Config, out io.Writer) error {
	s, err := replay.Load(path)
	if err != nil {
		return err
	}
	opts, err := cfg.ViewerOptions()
	if err != nil {
		return err
	}
	opts.Logger = applog.WithComponent("viewer")
	c, err := replay.Run(s, opts, func(step int, ev viewer.Event) {
		_, _ = fmt.Fprintf(out, "%4d  %s\n", step, viewer.Describe(ev))
	})
	if c != nil {
		_, _ = fmt.Fprintf(out, "final scale=%.4f display=%v edges=%v\n", c.CurrentScale(), c.DisplayRect(), c.EdgeState())
	}
	if errors.Is(err, replay.ErrExpectation) {
		return fmt.Errorf("%s: %w", path, err)
	}
	return err
}

// exportView plays script over the image (its content size is taken from the
// image) and writes the resulting viewport.
func exportView(imagePath, scriptPath, out string, preset export.PresetName, cfg config.Config) error {
	opt, err := export.PresetOptions(preset)
	if err != nil {
		return err
	}
	src, err := resample.LoadImage(imagePath)
	if err != nil {
		return err
	}
	s, err := replay.Load(scriptPath)
	if err != nil {
		return err
	}
	b := src.Bounds()
	s.Content = replay.Size{W: float64(b.Dx()), H: float64(b.Dy())}
	vopts, err := cfg.ViewerOptions()
	if err != nil {
		return err
	}
	vopts.Logger = applog.WithComponent("viewer")
	c, err := replay.Run(s, vopts, nil)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	img, err := export.View(ctx, src, c, opt)
	if err != nil {
		return err
	}
	return export.Write(out, img, filepath.Base(imagePath), opt)
}

func history(args []string, cfg config.Config, out io.Writer) (int, error) {
	path, err := cfg.HistoryPath()
	if err != nil {
		return 1, err
	}
	h, err := storage.OpenHistory(path)
	if err != nil {
		return 1, err
	}
	defer func() { _ = h.Close() }()
	ctx := context.Background()

	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}
	num := func(def int) (int, error) {
		if len(args) < 2 {
			return def, nil
		}
		return strconv.Atoi(args[1])
	}
	switch sub {
	case "list":
		n, err := num(20)
		if err != nil {
			return 2, err
		}
		ps, err := h.List(ctx, n)
		if err != nil {
			return 1, err
		}
		for _, p := range ps {
			_, _ = fmt.Fprintf(out, "%s  scale=%.3f centre=%.1f,%.1f  %s\n",
				p.UpdatedAt.Format(time.DateTime), p.Scale, p.CenterX, p.CenterY, p.Image)
		}
		return 0, nil
	case "forget":
		if len(args) < 2 {
			return 2, nil
		}
		return 0, h.Forget(ctx, storage.Key(args[1]))
	case "prune":
		keep, err := num(cfg.History.Keep)
		if err != nil {
			return 2, err
		}
		n, err := h.Prune(ctx, keep)
		if err != nil {
			return 1, err
		}
		_, _ = fmt.Fprintf(out, "Removed %d entries\n", n)
		return 0, nil
	}
	return 2, nil
}
