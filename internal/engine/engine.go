// Package engine ties the metadata store, the path resolver, and the
// control channel together behind the single process-wide lock spec §5
// requires: every FUSE callback serializes through Engine.Lock before it
// touches the resolver or the store.
package engine

import (
	"fmt"
	"os"
	"sync"

	"github.com/jra3/itemfs/internal/control"
	"github.com/jra3/itemfs/internal/resolver"
	"github.com/jra3/itemfs/internal/store"
)

// Engine is the shared state behind every mounted itemfs instance: one
// long-lived struct holding the store, owned for the lifetime of the
// mount, plus the derived state (resolver, control-channel handles) built
// on top of it.
type Engine struct {
	mu sync.Mutex

	store    *store.Store
	resolve  *resolver.Resolver
	handles  *control.Handles
	uid, gid uint32
}

// Open opens the metadata store rooted at storeDir and builds an Engine
// over it. toolBinDir is passthrough-ed under /bin; it may be empty.
func Open(storeDir, toolBinDir string) (*Engine, error) {
	s, err := store.Open(storeDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &Engine{
		store:   s,
		resolve: resolver.New(s, toolBinDir),
		handles: control.NewHandles(),
		uid:     uint32(os.Getuid()),
		gid:     uint32(os.Getgid()),
	}, nil
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Lock runs fn with the engine's single process-wide mutex held. Every
// FUSE callback that reaches into the resolver or the store must go
// through Lock (spec §5); passthrough I/O on the host filesystem does not
// need to.
func (e *Engine) Lock(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}

// Store returns the underlying metadata store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Resolver returns the path resolver.
func (e *Engine) Resolver() *resolver.Resolver {
	return e.resolve
}

// Handles returns the control channel's per-handle response buffers.
func (e *Engine) Handles() *control.Handles {
	return e.handles
}

// Owner returns the uid/gid every synthesized node is attributed to.
func (e *Engine) Owner() (uid, gid uint32) {
	return e.uid, e.gid
}

// Dispatch runs a control-channel request under the engine lock and
// returns the bytes to enqueue for the handle.
func (e *Engine) Dispatch(body []byte) ([]byte, error) {
	var resp []byte
	err := e.Lock(func() error {
		r, err := control.Dispatch(e.store, body)
		resp = r
		return err
	})
	return resp, err
}
