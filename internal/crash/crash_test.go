/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeSnap struct {
	dir string
	err error
}

func (f *fakeSnap) CrashSnapshot(dir string) (string, error) {
	f.dir = dir
	if f.err != nil {
		return "", f.err
	}
	p := filepath.Join(dir, "replay.yaml")
	return p, os.WriteFile(p, []byte("steps: []\n"), 0o644)
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := writeReport(dir, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("report written to %s, want under %s", path, dir)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "comicview crash report") || !strings.Contains(s, "Panic: boom") || !strings.Contains(s, "stacktrace") {
		t.Fatalf("report content: %s", s)
	}
}

func silenceStderr(t *testing.T) {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stderr = w
	done := make(chan struct{})
	go func() { _, _ = io.Copy(io.Discard, r); close(done) }()
	t.Cleanup(func() {
		_ = w.Close()
		<-done
		os.Stderr = old
	})
}

func TestRecoverWritesReportAndSnapshot(t *testing.T) {
	silenceStderr(t)
	code := 0
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = oldExit })

	dir := t.TempDir()
	snap := &fakeSnap{}
	func() {
		defer Recover(dir, snap)
		panic("boom")
	}()

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if snap.dir != dir {
		t.Fatalf("snapshot asked for %q, want %q", snap.dir, dir)
	}
	entries, _ := os.ReadDir(dir)
	var report, replay bool
	for _, e := range entries {
		report = report || (strings.HasPrefix(e.Name(), "crash-") && strings.HasSuffix(e.Name(), ".log"))
		replay = replay || e.Name() == "replay.yaml"
	}
	if !report || !replay {
		t.Fatalf("missing files in %s: report=%v replay=%v", dir, report, replay)
	}
}

func TestRecoverSurvivesSnapshotError(t *testing.T) {
	silenceStderr(t)
	code := 0
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = oldExit })

	func() {
		defer Recover(t.TempDir(), &fakeSnap{err: errors.New("disk full")})
		panic("boom")
	}()
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestRecoverWithoutPanicIsQuiet(t *testing.T) {
	code := -1
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = oldExit })

	func() {
		defer Recover(t.TempDir(), nil)
	}()
	if code != -1 {
		t.Fatalf("exit called without a panic")
	}
}
