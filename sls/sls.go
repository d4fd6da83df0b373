/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package sls implements socket-local storage: a small per-Sock scratch map
// visible to scripts for as long as the Sock lives, plus a process-wide,
// one-time slot registry for typed extensions that need a cleanup callback
// run when the owning Sock closes.
package sls

import "sync"

// CleanupFunc runs when the Sock owning a registered slot closes.
type CleanupFunc func(value interface{})

// slot describes one registered typed extension. Registration is a one-time
// bootstrap: slots are never deregistered, only their per-Sock values are.
type slot struct {
	name    string
	cleanup CleanupFunc
}

var (
	registryMu sync.Mutex
	registry   []slot
	byName     = map[string]int{}
)

// Register reserves a named slot with its cleanup function. Safe to call
// only during process bootstrap, before any Store is created; it panics on
// a duplicate name since that indicates a programming error, not a runtime
// condition.
func Register(name string, cleanup CleanupFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := byName[name]; ok {
		panic("sls: slot already registered: " + name)
	}

	byName[name] = len(registry)
	registry = append(registry, slot{name: name, cleanup: cleanup})
}

// Store is the scratch map attached to one Sock: "array"/"get"/"set"/"unset"
// in the command surface operate directly on it, plus typed values for any
// slot name registered with Register.
type Store struct {
	m      sync.RWMutex
	scalar map[string]string
	typed  map[string]interface{}
}

func New() *Store {
	return &Store{
		scalar: make(map[string]string),
		typed:  make(map[string]interface{}),
	}
}

func (s *Store) Get(key, def string) string {
	s.m.RLock()
	defer s.m.RUnlock()

	if v, ok := s.scalar[key]; ok {
		return v
	}
	return def
}

func (s *Store) Set(key, value string) {
	s.m.Lock()
	defer s.m.Unlock()
	s.scalar[key] = value
}

func (s *Store) Unset(key string) {
	s.m.Lock()
	defer s.m.Unlock()
	delete(s.scalar, key)
}

// Array returns a flat key/value snapshot, the shape the "sls array" command
// reports.
func (s *Store) Array() map[string]string {
	s.m.RLock()
	defer s.m.RUnlock()

	out := make(map[string]string, len(s.scalar))
	for k, v := range s.scalar {
		out[k] = v
	}
	return out
}

// SetTyped stores a value under a registered slot name.
func (s *Store) SetTyped(name string, value interface{}) {
	s.m.Lock()
	defer s.m.Unlock()
	s.typed[name] = value
}

func (s *Store) GetTyped(name string) (interface{}, bool) {
	s.m.RLock()
	defer s.m.RUnlock()
	v, ok := s.typed[name]
	return v, ok
}

// Close fires every registered slot's cleanup for the values present in this
// Store, in registration order - the closest Go equivalent of the LIFO
// thread-exit cleanup chain, applied once per Sock rather than per thread.
func (s *Store) Close() {
	s.m.Lock()
	defer s.m.Unlock()

	registryMu.Lock()
	defer registryMu.Unlock()

	for _, sl := range registry {
		if v, ok := s.typed[sl.name]; ok && sl.cleanup != nil {
			sl.cleanup(v)
		}
	}

	s.typed = make(map[string]interface{})
}
