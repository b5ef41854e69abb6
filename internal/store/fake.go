package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sweeney/water-sensor/internal/logic"
)

// Write is one Create call seen by FakeStore.
type Write struct {
	Path   string
	Record logic.Record
}

// FakeStore is an in-memory Store for testing.
type FakeStore struct {
	mu sync.Mutex

	Docs   map[string]logic.Record
	Writes []Write

	// PathErrors fails Create for specific paths.
	PathErrors map[string]error
	// CreateError fails every Create when set.
	CreateError error
	// AuthFailures is the number of Authenticate calls that fail before one succeeds.
	AuthFailures int
	AuthCalls    int
	Closed       bool

	ready bool
}

// NewFakeStore returns a fake that is not yet authenticated.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		Docs:       make(map[string]logic.Record),
		PathErrors: make(map[string]error),
	}
}

// NewReadyFakeStore returns an authenticated fake.
func NewReadyFakeStore() *FakeStore {
	f := NewFakeStore()
	f.ready = true
	return f
}

var errFakeAuth = errors.New("fake: sign-in rejected")

func (f *FakeStore) Authenticate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AuthCalls++
	if f.AuthCalls <= f.AuthFailures {
		return errFakeAuth
	}
	f.ready = true
	return nil
}

func (f *FakeStore) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

// SetReady forces the readiness flag.
func (f *FakeStore) SetReady(ready bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = ready
}

func (f *FakeStore) Create(ctx context.Context, path string, rec logic.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.ready {
		return ErrNotReady
	}
	f.Writes = append(f.Writes, Write{Path: path, Record: rec})

	if f.CreateError != nil {
		return f.CreateError
	}
	if err := f.PathErrors[path]; err != nil {
		return err
	}
	if _, ok := f.Docs[path]; ok {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}
	f.Docs[path] = rec
	return nil
}

// Paths returns the paths of all Create calls in order.
func (f *FakeStore) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Writes))
	for i, w := range f.Writes {
		out[i] = w.Path
	}
	return out
}

// Reset clears recorded writes and documents.
func (f *FakeStore) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes = nil
	f.Docs = make(map[string]logic.Record)
}

func (f *FakeStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
