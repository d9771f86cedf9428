package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"
)

type scopeKey struct{}

// Scope holds the span an operation currently treats as active.
// A nil span means no span is active.
type Scope struct {
	mu   sync.RWMutex
	span trace.Span
}

// NewScope returns a scope whose current span is span.
func NewScope(span trace.Span) *Scope {
	return &Scope{span: span}
}

// Span returns the current span, or nil.
func (s *Scope) Span() trace.Span {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.span
}

// SetSpan marks span as current. Passing nil clears it.
func (s *Scope) SetSpan(span trace.Span) {
	s.mu.Lock()
	s.span = span
	s.mu.Unlock()
}

// Fork returns an independent copy of the scope.
func (s *Scope) Fork() *Scope {
	return NewScope(s.Span())
}

// ContextWithScope returns a copy of ctx carrying s.
func ContextWithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFromContext returns the scope carried by ctx, or nil.
func ScopeFromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// CurrentSpan returns the span active in ctx.
//
// When ctx carries a Scope its answer is authoritative, including nil after
// a root operation finished. Otherwise the OpenTelemetry span stored in ctx
// is returned if it is valid.
func CurrentSpan(ctx context.Context) trace.Span {
	if s := ScopeFromContext(ctx); s != nil {
		return s.Span()
	}
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		return span
	}
	return nil
}

// forkScope creates the isolated scope for a new operation.
func forkScope(ctx context.Context) *Scope {
	if s := ScopeFromContext(ctx); s != nil {
		return s.Fork()
	}
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		return NewScope(span)
	}
	return NewScope(nil)
}
