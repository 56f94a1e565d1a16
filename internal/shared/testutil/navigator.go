package testutil

import (
	"context"
	"net/url"
	"sync"
)

// Navigation is one recorded Replace call.
type Navigation struct {
	Path  string
	Query url.Values
}

// RecordingNavigator is an in-memory navigator that records every call.
type RecordingNavigator struct {
	mu        sync.Mutex
	current   string
	replaces  []Navigation
	hard      []string
	ReplaceFn func(path string) error
}

func NewRecordingNavigator(start string) *RecordingNavigator {
	return &RecordingNavigator{current: start}
}

func (n *RecordingNavigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *RecordingNavigator) SetCurrentPath(p string) {
	n.mu.Lock()
	n.current = p
	n.mu.Unlock()
}

func (n *RecordingNavigator) Replace(_ context.Context, path string, query url.Values) error {
	n.mu.Lock()
	fn := n.ReplaceFn
	n.mu.Unlock()

	if fn != nil {
		if err := fn(path); err != nil {
			return err
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.replaces = append(n.replaces, Navigation{Path: path, Query: query})
	n.current = path
	return nil
}

func (n *RecordingNavigator) HardRedirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hard = append(n.hard, path)
	n.current = path
}

func (n *RecordingNavigator) Replaces() []Navigation {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Navigation(nil), n.replaces...)
}

func (n *RecordingNavigator) HardRedirects() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.hard...)
}
