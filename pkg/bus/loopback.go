package bus

import (
	"errors"
	"sync"
)

// Medium is an in-process broadcast medium joining multiple endpoints.
// It stands in for the physical bus in tests and on the simulated
// bench: a frame published by one endpoint is delivered synchronously
// to the handlers of every other endpoint, never back to the sender.
type Medium struct {
	mu        sync.Mutex
	endpoints []*Endpoint
}

// NewMedium creates an empty medium.
func NewMedium() *Medium {
	return &Medium{}
}

// Join attaches a new endpoint to the medium.
func (m *Medium) Join() *Endpoint {
	ep := &Endpoint{medium: m}
	m.mu.Lock()
	m.endpoints = append(m.endpoints, ep)
	m.mu.Unlock()
	return ep
}

// Endpoint is one node on a Medium. It implements Bus.
type Endpoint struct {
	medium *Medium

	mu       sync.Mutex
	handlers []Handler
	closed   bool
}

var errClosed = errors.New("bus: endpoint closed")

// Publish delivers the frame to every other endpoint on the medium.
func (e *Endpoint) Publish(f Frame) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return errClosed
	}

	e.medium.mu.Lock()
	peers := make([]*Endpoint, len(e.medium.endpoints))
	copy(peers, e.medium.endpoints)
	e.medium.mu.Unlock()

	for _, peer := range peers {
		if peer == e {
			continue
		}
		peer.deliver(f)
	}
	return nil
}

// Subscribe registers a handler for frames from other endpoints.
func (e *Endpoint) Subscribe(h Handler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errClosed
	}
	e.handlers = append(e.handlers, h)
	return nil
}

// Close detaches the endpoint; it stops receiving and refuses sends.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	e.closed = true
	e.handlers = nil
	e.mu.Unlock()
	return nil
}

func (e *Endpoint) deliver(f Frame) {
	e.mu.Lock()
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.Unlock()
	for _, h := range handlers {
		h(f)
	}
}
