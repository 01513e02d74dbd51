package control

import (
	"sync"
	"sync/atomic"
)

// Handles tracks the per-open-handle response buffer for the control
// channel: each open of the socket allocates a fresh handle id and an
// empty buffer; a write's bytes go straight to Dispatch and the response
// it produced replaces the buffer for the next read on the same handle,
// and release frees the buffer (spec §4.4).
type Handles struct {
	next atomic.Uint64

	mu      sync.Mutex
	buffers map[uint64][]byte
}

// NewHandles constructs an empty handle table.
func NewHandles() *Handles {
	return &Handles{buffers: make(map[uint64][]byte)}
}

// Open allocates a new handle id with an empty response buffer.
func (h *Handles) Open() uint64 {
	id := h.next.Add(1)
	h.mu.Lock()
	h.buffers[id] = nil
	h.mu.Unlock()
	return id
}

// SetResponse stashes the bytes a write's dispatched request produced, to
// be returned by the next Read on the same handle. A nil response (an
// item-relationship or filter-creation request) leaves the buffer empty.
func (h *Handles) SetResponse(id uint64, response []byte) {
	h.mu.Lock()
	h.buffers[id] = response
	h.mu.Unlock()
}

// Read returns and clears the handle's pending response.
func (h *Handles) Read(id uint64) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	resp := h.buffers[id]
	h.buffers[id] = nil
	return resp
}

// Release frees a handle's buffer.
func (h *Handles) Release(id uint64) {
	h.mu.Lock()
	delete(h.buffers, id)
	h.mu.Unlock()
}
