/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"comicview/internal/geometry"
	applog "comicview/internal/log"
	"comicview/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	HistoryFileName = "history.sqlite"

	// schemaVersion tracks the history schema. Bump it with a migration step.
	schemaVersion = 2
)

var (
	ErrNotFound        = errors.New("no saved position")
	ErrInvalidPosition = errors.New("invalid position")
)

// Position is where reading stopped in one image. CenterX/CenterY are in
// content pixels so the position survives a different window size.
type Position struct {
	Image     string
	Scale     float64
	CenterX   float64
	CenterY   float64
	UpdatedAt time.Time
}

func (p Position) Validate() error {
	if strings.TrimSpace(p.Image) == "" {
		return fmt.Errorf("%w: image key is required", ErrInvalidPosition)
	}
	if !geometry.Finite(p.Scale) || p.Scale <= 0 || !geometry.Finite(p.CenterX) || !geometry.Finite(p.CenterY) {
		return fmt.Errorf("%w: scale %v centre %v,%v", ErrInvalidPosition, p.Scale, p.CenterX, p.CenterY)
	}
	return nil
}

// Key is the history key for an image path: absolute and cleaned.
func Key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// History is the reading position store.
type History struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenHistory creates or opens the database at path, enables WAL and brings
// the schema up to date.
func OpenHistory(path string) (*History, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "history_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create history dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("history ready")
	return &History{db: db, log: applog.WithComponent("storage")}, nil
}

func (h *History) Close() error { return h.db.Close() }

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS positions (
			image      TEXT PRIMARY KEY,
			scale      REAL NOT NULL,
			center_x   REAL NOT NULL,
			center_y   REAL NOT NULL,
			updated_ns INTEGER NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// a fresh file starts at 1 and migrates like an old one
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{`CREATE INDEX IF NOT EXISTS idx_positions_updated ON positions(updated_ns DESC);`}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// SchemaVersion reports the schema the open database is at.
func (h *History) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := h.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

// Save upserts p. A zero UpdatedAt is set to now.
func (h *History) Save(ctx context.Context, p Position) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	_, err := h.db.ExecContext(ctx, `INSERT INTO positions (image, scale, center_x, center_y, updated_ns)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(image) DO UPDATE SET scale=excluded.scale, center_x=excluded.center_x,
			center_y=excluded.center_y, updated_ns=excluded.updated_ns`,
		p.Image, p.Scale, p.CenterX, p.CenterY, p.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	h.log.Debug("position saved", slog.String("image", p.Image), slog.Float64("scale", p.Scale))
	return nil
}

// Get returns the saved position for image, or ErrNotFound.
func (h *History) Get(ctx context.Context, image string) (Position, error) {
	row := h.db.QueryRowContext(ctx, `SELECT image, scale, center_x, center_y, updated_ns FROM positions WHERE image=?`, image)
	p, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Position{}, fmt.Errorf("%w: %s", ErrNotFound, image)
	}
	return p, err
}

// List returns up to limit positions, most recent first. limit <= 0 means all.
func (h *History) List(ctx context.Context, limit int) ([]Position, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := h.db.QueryContext(ctx, `SELECT image, scale, center_x, center_y, updated_ns FROM positions
		ORDER BY updated_ns DESC, image LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Forget removes the entry for image. Forgetting an unknown image is not an error.
func (h *History) Forget(ctx context.Context, image string) error {
	if _, err := h.db.ExecContext(ctx, `DELETE FROM positions WHERE image=?`, image); err != nil {
		return fmt.Errorf("forget position: %w", err)
	}
	return nil
}

// Prune keeps the keep most recent entries and reports how many were removed.
func (h *History) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := h.db.ExecContext(ctx, `DELETE FROM positions WHERE image NOT IN (
		SELECT image FROM positions ORDER BY updated_ns DESC, image LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune positions: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		h.log.Info("history pruned", slog.Int64("removed", n), slog.Int("keep", keep))
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPosition(s scanner) (Position, error) {
	var (
		p  Position
		ns int64
	)
	if err := s.Scan(&p.Image, &p.Scale, &p.CenterX, &p.CenterY, &ns); err != nil {
		return Position{}, err
	}
	p.UpdatedAt = time.Unix(0, ns)
	return p, nil
}
