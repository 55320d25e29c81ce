/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the viewer configuration: defaults, then the per-user
// YAML file, then CV_* environment overrides. The file is checked against an
// embedded JSON schema before it is applied.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"comicview/internal/gesture"
	applog "comicview/internal/log"
	"comicview/internal/transform"
	"comicview/internal/viewer"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

//go:embed schema.json
var schemaJSON string

// Config is the user-editable configuration. Environment variables override
// it at runtime and are never written back.
type Config struct {
	ConfigVersion int            `yaml:"config_version" json:"config_version"`
	Viewer        ViewerConfig   `yaml:"viewer" json:"viewer"`
	Gestures      GestureConfig  `yaml:"gestures" json:"gestures"`
	Resample      ResampleConfig `yaml:"resample" json:"resample"`
	History       HistoryConfig  `yaml:"history" json:"history"`
	Logging       LoggingConfig  `yaml:"logging" json:"logging"`
}

type ViewerConfig struct {
	MinScale             float64 `yaml:"min_scale" json:"min_scale"`
	MidScale             float64 `yaml:"mid_scale" json:"mid_scale"`
	MaxScale             float64 `yaml:"max_scale" json:"max_scale"`
	Anchor               string  `yaml:"anchor" json:"anchor"`
	ZoomDurationMs       int     `yaml:"zoom_duration_ms" json:"zoom_duration_ms"`
	AllowParentIntercept bool    `yaml:"allow_parent_intercept" json:"allow_parent_intercept"`
	Zoomable             bool    `yaml:"zoomable" json:"zoomable"`
}

type GestureConfig struct {
	TouchSlop          float64 `yaml:"touch_slop" json:"touch_slop"`
	DoubleTapSlop      float64 `yaml:"double_tap_slop" json:"double_tap_slop"`
	TapTimeoutMs       int     `yaml:"tap_timeout_ms" json:"tap_timeout_ms"`
	DoubleTapTimeoutMs int     `yaml:"double_tap_timeout_ms" json:"double_tap_timeout_ms"`
	LongPressTimeoutMs int     `yaml:"long_press_timeout_ms" json:"long_press_timeout_ms"`
	MinFlingVelocity   float64 `yaml:"min_fling_velocity" json:"min_fling_velocity"`
	MaxFlingVelocity   float64 `yaml:"max_fling_velocity" json:"max_fling_velocity"`
	FlingDeceleration  float64 `yaml:"fling_deceleration" json:"fling_deceleration"`
	EdgeEpsilon        float64 `yaml:"edge_epsilon" json:"edge_epsilon"`
}

// ResampleConfig drives the background re-rendering of the visible region
// after a zoom settles.
type ResampleConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Kernel    string `yaml:"kernel" json:"kernel"`
	MaxPixels int    `yaml:"max_pixels" json:"max_pixels"`
}

// HistoryConfig controls the per-image reading position store. An empty File
// means the default location under the user cache directory.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	File    string `yaml:"file" json:"file"`
	Keep    int    `yaml:"keep" json:"keep"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	Source     bool   `yaml:"source" json:"source"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	g := gesture.DefaultConfig()
	return Config{
		ConfigVersion: 1,
		Viewer: ViewerConfig{
			MinScale: transform.DefaultLimits.Min, MidScale: transform.DefaultLimits.Mid, MaxScale: transform.DefaultLimits.Max,
			Anchor:               transform.FitCenter.String(),
			ZoomDurationMs:       200,
			AllowParentIntercept: true,
			Zoomable:             true,
		},
		Gestures: GestureConfig{
			TouchSlop:          g.TouchSlop,
			DoubleTapSlop:      g.DoubleTapSlop,
			TapTimeoutMs:       int(g.TapTimeout / time.Millisecond),
			DoubleTapTimeoutMs: int(g.DoubleTapTimeout / time.Millisecond),
			LongPressTimeoutMs: int(g.LongPressTimeout / time.Millisecond),
			MinFlingVelocity:   g.MinFlingVelocity,
			MaxFlingVelocity:   g.MaxFlingVelocity,
			FlingDeceleration:  2000,
			EdgeEpsilon:        transform.DefaultEdgeEpsilon,
		},
		Resample: ResampleConfig{Enabled: true, Kernel: "catmull_rom", MaxPixels: 16 << 20},
		History:  HistoryConfig{Enabled: true, Keep: 500},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvMinScale       = "CV_MIN_SCALE"
	EnvMidScale       = "CV_MID_SCALE"
	EnvMaxScale       = "CV_MAX_SCALE"
	EnvAnchor         = "CV_ANCHOR"
	EnvZoomDurationMs = "CV_ZOOM_DURATION_MS"
	EnvResample       = "CV_RESAMPLE"
	EnvLogLevel       = "CV_LOG_LEVEL"
	EnvLogFormat      = "CV_LOG_FORMAT"
	EnvLogSource      = "CV_LOG_SOURCE"
	EnvLogFile        = "CV_LOG_FILE"
	EnvHistory        = "CV_HISTORY"
	EnvHistoryFile    = "CV_HISTORY_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(base, "comicview", "config.yaml"), nil
}

// Load reads the per-user config file. See LoadFile.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFile(path)
}

// LoadFile applies the file at path (a missing file is not an error) and the
// environment on top of the defaults. If the result does not validate, the
// defaults with environment overrides are returned together with the error.
func LoadFile(path string) (Config, error) {
	fallback := Defaults()
	applyEnvOverrides(&fallback)

	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fallback, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := ValidateDocument(data); err != nil {
			return fallback, fmt.Errorf("config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fallback, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	normalize(&cfg)
	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return fallback, err
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ValidateDocument checks raw YAML against the schema before it is decoded,
// so unknown keys and wrong types are reported by name.
func ValidateDocument(data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if doc == nil {
		return nil
	}
	return checkSchema(gojsonschema.NewGoLoader(doc))
}

// Validate checks a decoded config against the schema and the cross-field
// rules the schema cannot express.
func Validate(cfg Config) error {
	if err := checkSchema(gojsonschema.NewGoLoader(cfg)); err != nil {
		return err
	}
	v := cfg.Viewer
	if err := (transform.Limits{Min: v.MinScale, Mid: v.MidScale, Max: v.MaxScale}).Validate(); err != nil {
		return fmt.Errorf("%w: viewer: %w", ErrInvalidConfig, err)
	}
	if _, err := transform.ParseAnchorMode(v.Anchor); err != nil {
		return fmt.Errorf("%w: viewer.anchor: %w", ErrInvalidConfig, err)
	}
	if g := cfg.Gestures; g.MaxFlingVelocity != 0 && g.MaxFlingVelocity < g.MinFlingVelocity {
		return fmt.Errorf("%w: gestures: max_fling_velocity %v below min_fling_velocity %v",
			ErrInvalidConfig, g.MaxFlingVelocity, g.MinFlingVelocity)
	}
	if !applog.ValidLevel(cfg.Logging.Level) {
		return fmt.Errorf("%w: logging.level %q", ErrInvalidConfig, cfg.Logging.Level)
	}
	return nil
}

func checkSchema(doc gojsonschema.JSONLoader) error {
	res, err := gojsonschema.Validate(gojsonschema.NewStringLoader(schemaJSON), doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func normalize(cfg *Config) {
	cfg.Viewer.Anchor = strings.ToLower(strings.TrimSpace(cfg.Viewer.Anchor))
	cfg.Resample.Kernel = strings.ToLower(strings.TrimSpace(cfg.Resample.Kernel))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Logging.File = strings.TrimSpace(cfg.Logging.File)
	cfg.History.File = strings.TrimSpace(cfg.History.File)
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func envFloat(key string, dst *float64) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	envFloat(EnvMinScale, &cfg.Viewer.MinScale)
	envFloat(EnvMidScale, &cfg.Viewer.MidScale)
	envFloat(EnvMaxScale, &cfg.Viewer.MaxScale)
	if v := strings.TrimSpace(os.Getenv(EnvAnchor)); v != "" {
		cfg.Viewer.Anchor = strings.ToLower(v)
		if m, err := transform.ParseAnchorMode(v); err == nil {
			cfg.Viewer.Anchor = m.String()
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvZoomDurationMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Viewer.ZoomDurationMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvResample)); v != "" {
		cfg.Resample.Enabled = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistory)); v != "" {
		cfg.History.Enabled = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryFile)); v != "" {
		cfg.History.File = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"viewer.min_scale":        EnvMinScale,
		"viewer.mid_scale":        EnvMidScale,
		"viewer.max_scale":        EnvMaxScale,
		"viewer.anchor":           EnvAnchor,
		"viewer.zoom_duration_ms": EnvZoomDurationMs,
		"resample.enabled":        EnvResample,
		"history.enabled":         EnvHistory,
		"history.file":            EnvHistoryFile,
		"logging.level":           EnvLogLevel,
		"logging.format":          EnvLogFormat,
		"logging.source":          EnvLogSource,
		"logging.file":            EnvLogFile,
	}[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// ViewerOptions converts the viewer and gesture sections. cfg must be valid.
func (c Config) ViewerOptions() (viewer.Options, error) {
	anchor, err := transform.ParseAnchorMode(c.Viewer.Anchor)
	if err != nil {
		return viewer.Options{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	o := viewer.DefaultOptions()
	o.Anchor = anchor
	o.Limits = transform.Limits{Min: c.Viewer.MinScale, Mid: c.Viewer.MidScale, Max: c.Viewer.MaxScale}
	o.ZoomDuration = ms(c.Viewer.ZoomDurationMs)
	o.AllowParentInterceptOnEdge = c.Viewer.AllowParentIntercept
	o.Zoomable = c.Viewer.Zoomable
	o.FlingDeceleration = c.Gestures.FlingDeceleration
	o.EdgeEpsilon = c.Gestures.EdgeEpsilon
	o.Gestures = gesture.Config{
		TouchSlop:        c.Gestures.TouchSlop,
		DoubleTapSlop:    c.Gestures.DoubleTapSlop,
		TapTimeout:       ms(c.Gestures.TapTimeoutMs),
		DoubleTapTimeout: ms(c.Gestures.DoubleTapTimeoutMs),
		LongPressTimeout: ms(c.Gestures.LongPressTimeoutMs),
		MinFlingVelocity: c.Gestures.MinFlingVelocity,
		MaxFlingVelocity: c.Gestures.MaxFlingVelocity,
	}
	return o, nil
}

// HistoryPath is the reading history database: history.file, or
// history.sqlite in the per-user cache directory.
func (c Config) HistoryPath() (string, error) {
	if c.History.File != "" {
		return c.History.File, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache directory: %w", err)
	}
	return filepath.Join(base, "comicview", "history.sqlite"), nil
}

// LogOptions converts the logging section.
func (c Config) LogOptions() applog.Options {
	return applog.Options{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		AddSource:  c.Logging.Source,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
	}
}
