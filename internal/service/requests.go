package service

import (
	"context"
	"sync"
)

// RequestGroup implements last-request-wins cancellation: acquiring a
// context for a key cancels whatever request previously held that key,
// so a stale response can never overwrite a fresher one. Keys identify
// call sites (search, discover, ...).
type RequestGroup struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewRequestGroup creates an empty RequestGroup.
func NewRequestGroup() *RequestGroup {
	return &RequestGroup{cancels: make(map[string]context.CancelFunc)}
}

// Acquire returns a context for the given key, cancelling the previous
// holder of that key first.
func (g *RequestGroup) Acquire(parent context.Context, key string) context.Context {
	ctx, cancel := context.WithCancel(parent)

	g.mu.Lock()
	if prev, ok := g.cancels[key]; ok {
		prev()
	}
	g.cancels[key] = cancel
	g.mu.Unlock()

	return ctx
}

// CancelAll aborts every in-flight request, used on shutdown.
func (g *RequestGroup) CancelAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key, cancel := range g.cancels {
		cancel()
		delete(g.cancels, key)
	}
}
