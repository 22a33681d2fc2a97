// Package transport defines the interface for pluggable consultation transports.
//
// Each transport (HTTP, gRPC) implements this interface and hands incoming
// consultations to the coordinator. The coordinator doesn't care how
// consultations arrive; it only works with the Handler contract.
package transport

import (
	"context"

	"github.com/nadzzz/aidoctor/internal/message"
)

// Handler processes one consultation. It always returns a bundle; failures
// are reported inside it.
type Handler func(ctx context.Context, c *message.Consultation) *message.ResultBundle

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts accepting consultations and passes them to the handler.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, handler Handler) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}

// Limiter bounds the consultations processed at once across all transports.
// Excess requests wait for a slot or for their context to end.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter allows n concurrent consultations (at least one).
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		n = 1
	}
	return &Limiter{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() { <-l.slots }
