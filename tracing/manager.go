package tracing

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on every span started by a Manager.
const (
	// AttrSpanOp carries the operation type, "db.<kind>".
	AttrSpanOp = "span.op"

	// AttrOtelKind mirrors the span kind for backends keyed on attributes.
	AttrOtelKind = "otel.kind"
)

// Manager starts spans for database operations.
// It is safe for concurrent use.
type Manager struct {
	cfg *config
}

// New creates a Manager.
//
// Example:
//
//	mgr := tracing.New(tracing.WithTracerProvider(tp))
func New(opts ...Option) *Manager {
	return &Manager{cfg: newConfig(opts...)}
}

// Start begins an operation of the given kind ("sql.query", "connection",
// "transaction") named label.
//
// The returned context carries the new span and the operation's scope, so
// operations started from it become children. Start never fails; with a
// no-op tracer provider the span is simply inert.
func (m *Manager) Start(
	ctx context.Context,
	kind, label string,
	attrs ...attribute.KeyValue,
) (context.Context, *Handle) {
	if m.skip(label) {
		m.cfg.Logger.Trace().Str("label", label).Msg("skipping span for noisy operation")
		return ctx, &Handle{skip: true}
	}

	sc := forkScope(ctx)
	parent := sc.Span()

	all := make([]attribute.KeyValue, 0, len(attrs)+2)
	all = append(all,
		attribute.String(AttrSpanOp, "db."+kind),
		attribute.String(AttrOtelKind, "client"),
	)
	all = append(all, attrs...)

	ctx, span := m.cfg.Tracer.Start(ctx, label,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(all...),
	)

	sc.SetSpan(span)

	return ContextWithScope(ctx, sc), &Handle{
		span:   span,
		parent: parent,
		scope:  sc,
	}
}

func (m *Manager) skip(label string) bool {
	for _, s := range m.cfg.SkipSubstrings {
		if s != "" && strings.Contains(label, s) {
			return true
		}
	}
	return false
}

// Handle tracks one traced operation.
//
// A Handle is owned by the goroutine running the operation and must be
// finished exactly once. Finish on an already finished handle does nothing.
type Handle struct {
	span      trace.Span
	parent    trace.Span
	scope     *Scope
	skip      bool
	statusSet bool
	finished  bool
}

// Skipped reports whether no span was created for the operation.
func (h *Handle) Skipped() bool {
	return h.skip
}

// Span returns the operation's span, or nil when skipped.
func (h *Handle) Span() trace.Span {
	return h.span
}

// Parent returns the span that was current before the operation started.
func (h *Handle) Parent() trace.Span {
	return h.parent
}

// Scope returns the operation's isolated scope, or nil when skipped.
func (h *Handle) Scope() *Scope {
	return h.scope
}

// SetAttributes records attributes on the in-flight span.
func (h *Handle) SetAttributes(attrs ...attribute.KeyValue) {
	if h.skip || h.finished {
		return
	}
	h.span.SetAttributes(attrs...)
}

// SetStatus sets the span status. Finish leaves an explicit status alone.
func (h *Handle) SetStatus(code codes.Code, description string) {
	if h.skip || h.finished {
		return
	}
	h.span.SetStatus(code, description)
	h.statusSet = true
}

// RecordError records err on the span and marks it failed.
// A nil err is ignored.
func (h *Handle) RecordError(err error) {
	if err == nil || h.skip || h.finished {
		return
	}
	h.span.RecordError(err)
	h.SetStatus(codes.Error, err.Error())
}

// Finish ends the span, defaulting its status to Ok, and restores the
// scope's current span to the one active before Start.
func (h *Handle) Finish() {
	if h.skip || h.finished {
		return
	}
	h.finished = true

	if !h.statusSet {
		h.span.SetStatus(codes.Ok, "")
	}
	h.span.End()

	h.scope.SetSpan(h.parent)
}
