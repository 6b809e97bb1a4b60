// Package bufpool provides a shared pool of scratch buffers for the
// multipart form bodies built before every registration and metadata-update
// POST, avoiding a fresh allocation on each retry attempt.
package bufpool

import (
	"bytes"
	"sync"
)

var pool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// Get returns a reset buffer from the pool.
func Get() *bytes.Buffer {
	return pool.Get().(*bytes.Buffer)
}

// Put returns buf to the pool. The caller must not use buf afterward.
func Put(buf *bytes.Buffer) {
	buf.Reset()
	pool.Put(buf)
}
