/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo keeps the back/forward list of views the reader settled on,
// so a zoom or jump can be walked back like browser history.
package undo

import (
	"math"
	"sync"
	"time"
)

// View is a settled position: user-facing scale and the content point at
// the viewport centre. At is the viewer clock when it was reached.
type View struct {
	Scale   float64
	CenterX float64
	CenterY float64
	At      time.Duration
}

// Same reports whether two views show the same thing, ignoring At.
func (v View) Same(o View) bool {
	const eps = 1e-6
	return math.Abs(v.Scale-o.Scale) <= eps && math.Abs(v.CenterX-o.CenterX) <= eps && math.Abs(v.CenterY-o.CenterY) <= eps
}

type Config struct {
	MaxDepth int
	// Views left sooner than MinInterval after reaching them are not kept;
	// a burst of wheel notches becomes one step.
	MinInterval time.Duration
}

type Manager struct {
	cfg  Config
	mu   sync.Mutex
	back []View
	fwd  []View
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 64
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg}
}

// Push records that left is being replaced at clock now. It clears the
// forward list unless the push is dropped.
func (m *Manager) Push(left View, now time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now-left.At < m.cfg.MinInterval {
		return false
	}
	if n := len(m.back); n > 0 && m.back[n-1].Same(left) {
		m.fwd = nil
		return false
	}
	m.back = append(m.back, left)
	if over := len(m.back) - m.cfg.MaxDepth; over > 0 {
		m.back = append([]View(nil), m.back[over:]...)
	}
	m.fwd = nil
	return true
}

// Back returns the previous view and remembers cur for Forward.
func (m *Manager) Back(cur View) (View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.back) == 0 {
		return View{}, false
	}
	v := m.back[len(m.back)-1]
	m.back = m.back[:len(m.back)-1]
	m.fwd = append(m.fwd, cur)
	return v, true
}

// Forward undoes a Back.
func (m *Manager) Forward(cur View) (View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.fwd) == 0 {
		return View{}, false
	}
	v := m.fwd[len(m.fwd)-1]
	m.fwd = m.fwd[:len(m.fwd)-1]
	m.back = append(m.back, cur)
	if over := len(m.back) - m.cfg.MaxDepth; over > 0 {
		m.back = append([]View(nil), m.back[over:]...)
	}
	return v, true
}

func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.back, m.fwd = nil, nil
}

func (m *Manager) Stats() (back, forward int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.back), len(m.fwd)
}
