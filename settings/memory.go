// Package settings provides stores for capture settings values.
//
// Stores hold whatever they are given; range checks and fallbacks are the
// job of screencap.Policy, which is the only writer.
package settings

import (
	"reflect"
	"sort"
	"sync"
)

// Listener is called after a key changes value.
type Listener func(key string, value any)

type listeners struct {
	mu  sync.Mutex
	fns []Listener
}

func (l *listeners) add(fn Listener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.fns = append(l.fns, fn)
	l.mu.Unlock()
}

func (l *listeners) notify(key string, value any) {
	l.mu.Lock()
	fns := append([]Listener(nil), l.fns...)
	l.mu.Unlock()
	for _, fn := range fns {
		fn(key, value)
	}
}

// Memory is an in-process settings store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]any
	ls     listeners
}

// NewMemory returns a store seeded with initial.
func NewMemory(initial map[string]any) *Memory {
	m := &Memory{values: make(map[string]any, len(initial))}
	for k, v := range initial {
		m.values[k] = v
	}
	return m
}

// Get returns the value stored under key.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key and notifies listeners if it changed.
func (m *Memory) Set(key string, value any) error {
	m.mu.Lock()
	old, had := m.values[key]
	m.values[key] = value
	m.mu.Unlock()

	if !had || !reflect.DeepEqual(old, value) {
		m.ls.notify(key, value)
	}
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OnChange registers fn to run after every change.
func (m *Memory) OnChange(fn Listener) {
	m.ls.add(fn)
}
