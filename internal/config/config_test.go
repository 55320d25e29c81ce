/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"comicview/internal/transform"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestDefaultsAreValid(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Viewer != Defaults().Viewer {
		t.Fatalf("viewer section differs from defaults: %+v", cfg.Viewer)
	}
}

func TestFileOverridesOnlyWhatItSets(t *testing.T) {
	p := writeConfig(t, `
viewer:
  max_scale: 5
  anchor: fit_start
  allow_parent_intercept: false
gestures:
  touch_slop: 12
logging:
  level: debug
`)
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Viewer.MaxScale != 5 || cfg.Viewer.Anchor != "fit_start" || cfg.Viewer.AllowParentIntercept {
		t.Fatalf("file values not applied: %+v", cfg.Viewer)
	}
	if cfg.Viewer.MinScale != 1 || !cfg.Viewer.Zoomable || cfg.Gestures.DoubleTapSlop != 100 {
		t.Fatalf("unset values lost their defaults: %+v %+v", cfg.Viewer, cfg.Gestures)
	}
	if cfg.Gestures.TouchSlop != 12 || cfg.Logging.Level != "debug" {
		t.Fatalf("nested values not applied: %+v %+v", cfg.Gestures, cfg.Logging)
	}
}

func TestSchemaRejectsUnknownAndMistyped(t *testing.T) {
	for name, body := range map[string]string{
		"unknown key": "viewer:\n  max_zoom: 4\n",
		"wrong type":  "viewer:\n  min_scale: big\n",
		"bad anchor":  "viewer:\n  anchor: stretch\n",
		"negative":    "gestures:\n  touch_slop: -1\n",
	} {
		cfg, err := LoadFile(writeConfig(t, body))
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: want ErrInvalidConfig, got %v", name, err)
		}
		if cfg.Viewer != Defaults().Viewer {
			t.Fatalf("%s: rejected file must fall back to defaults", name)
		}
	}
}

func TestValidateCrossFieldLimits(t *testing.T) {
	cfg := Defaults()
	cfg.Viewer.MinScale, cfg.Viewer.MidScale, cfg.Viewer.MaxScale = 3, 2, 1
	err := Validate(cfg)
	if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, transform.ErrInvalidLimits) {
		t.Fatalf("want wrapped limits error, got %v", err)
	}
	cfg = Defaults()
	cfg.Gestures.MinFlingVelocity, cfg.Gestures.MaxFlingVelocity = 500, 100
	if err := Validate(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("want fling velocity error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvMaxScale, "4.5")
	t.Setenv(EnvAnchor, "Center-Crop")
	t.Setenv(EnvZoomDurationMs, "350")
	t.Setenv(EnvLogLevel, "ERROR")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/tmp/cv.log")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Viewer.MaxScale != 4.5 || cfg.Viewer.Anchor != "center_crop" || cfg.Viewer.ZoomDurationMs != 350 {
		t.Fatalf("viewer env overrides not applied: %+v", cfg.Viewer)
	}
	if cfg.Logging.Level != "error" || !cfg.Logging.Source || cfg.Logging.File != "/tmp/cv.log" {
		t.Fatalf("logging env overrides not applied: %+v", cfg.Logging)
	}
	if env, ok := EnvOverrideFor("viewer.max_scale"); !ok || env != EnvMaxScale {
		t.Fatalf("EnvOverrideFor: %q %v", env, ok)
	}
	if _, ok := EnvOverrideFor("viewer.min_scale"); ok {
		t.Fatalf("min_scale is not overridden")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Defaults()
	cfg.Viewer.MidScale = 2
	if err := Save(p, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "mid_scale: 2") {
		t.Fatalf("saved yaml missing mid_scale:\n%s", data)
	}
	got, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.Viewer.MidScale != 2 {
		t.Fatalf("mid scale %v", got.Viewer.MidScale)
	}

	bad := Defaults()
	bad.Viewer.Anchor = "sideways"
	if err := Save(p, bad); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Save must validate, got %v", err)
	}
}

func TestViewerOptions(t *testing.T) {
	cfg := Defaults()
	cfg.Viewer.Anchor = "center_inside"
	cfg.Gestures.LongPressTimeoutMs = 800
	o, err := cfg.ViewerOptions()
	if err != nil {
		t.Fatalf("ViewerOptions: %v", err)
	}
	if o.Anchor != transform.CenterInside || o.Gestures.LongPressTimeout != 800*time.Millisecond {
		t.Fatalf("conversion mismatch: %+v", o)
	}
	if o.Limits != transform.DefaultLimits || o.ZoomDuration != 200*time.Millisecond || !o.Zoomable {
		t.Fatalf("viewer defaults not carried: %+v", o)
	}
	lo := cfg.LogOptions()
	if lo.Level != "info" || lo.Format != "console" {
		t.Fatalf("log options %+v", lo)
	}
}

func TestHistorySection(t *testing.T) {
	t.Setenv(EnvHistory, "off")
	t.Setenv(EnvHistoryFile, "/tmp/cv-history.sqlite")
	path := writeConfig(t, "history:\n  enabled: true\n  keep: 10\n")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.History.Enabled || cfg.History.Keep != 10 {
		t.Fatalf("history = %+v", cfg.History)
	}
	if p, err := cfg.HistoryPath(); err != nil || p != "/tmp/cv-history.sqlite" {
		t.Fatalf("HistoryPath = %q, %v", p, err)
	}
	if env, ok := EnvOverrideFor("history.file"); !ok || env != EnvHistoryFile {
		t.Fatalf("EnvOverrideFor(history.file) = %q, %v", env, ok)
	}

	bad := writeConfig(t, "history:\n  keep: -1\n")
	if _, err := LoadFile(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("negative keep: err = %v", err)
	}
}
