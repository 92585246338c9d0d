package arrayz

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Metric keys for Family observability.
const (
	FamilyDispatchedTotal = metricz.Key("family.dispatched.total")
	FamilyRoutedTotal     = metricz.Key("family.routed.total")
	FamilyUnroutedTotal   = metricz.Key("family.unrouted.total")
)

// Span names for Family.
const (
	FamilyDispatchSpan = tracez.Key("family.dispatch")
)

// Span tags for Family.
const (
	FamilyTagName   = tracez.Tag("family.name")
	FamilyTagLength = tracez.Tag("family.length")
	FamilyTagRouted = tracez.Tag("family.routed")

	// Hook event keys.
	FamilyEventRouted   = hookz.Key("family.routed")
	FamilyEventUnrouted = hookz.Key("family.unrouted")
)

// DispatchEvent represents a family routing decision.
// This is emitted via hookz whenever a Collect is dispatched, providing
// visibility into which builder was chosen or that no declared length
// matched.
type DispatchEvent struct {
	Name        Name      // Family name
	Length      int       // Requested destination length
	BuilderName Name      // Builder the request was routed to (if any)
	Routed      bool      // Whether a declared length matched
	Success     bool      // Whether the builder succeeded (if routed)
	Error       error     // Error from the builder (if failed)
	Timestamp   time.Time // When the event occurred
}

// Family groups builders of one element type under a single name so that a
// set of same-shaped conversions for different lengths can be invoked
// through one value. Dispatch is by declared length or by builder name:
//
//	coords := arrayz.NewFamily[float64]("coordinates")
//	coords.Declare("pair", 2)
//	coords.Declare("triple", 3)
//
//	point2d, err := coords.Collect(ctx, 2, seq) // routed to "pair"
//	point3d, err := coords.Collect(ctx, 3, seq) // routed to "triple"
//
// Each declared length maps to exactly one builder; declaring a second
// builder for an already-declared length replaces the first. A Collect for
// a length that was never declared fails with ErrUnknownLength.
//
// Family is thread-safe: declarations and lookups may happen concurrently
// with Collect calls.
//
// # Observability
//
// Family provides observability for the dispatch itself; the routed-to
// builder reports its own fill the usual way:
//
// Metrics:
//   - family.dispatched.total: Counter of dispatch attempts
//   - family.routed.total: Counter of dispatches that found a builder
//   - family.unrouted.total: Counter of dispatches with no declared length
//
// Traces:
//   - family.dispatch: Span covering routing and the builder's fill
//
// Events (via hooks):
//   - family.routed: Fired when a declared length matched
//   - family.unrouted: Fired when no builder covers the requested length
//
// Example - alerting on dispatch misses:
//
//	coords.OnUnrouted(func(ctx context.Context, e arrayz.DispatchEvent) error {
//	    log.Printf("%s: no builder for length %d", e.Name, e.Length)
//	    return nil
//	})
type Family[T any] struct {
	name     Name
	byLength map[int]*Builder[T]
	byName   map[Name]*Builder[T]
	mu       sync.RWMutex

	// Observability
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[DispatchEvent]
}

// NewFamily creates an empty builder family for element type T.
func NewFamily[T any](name Name) *Family[T] {
	// Initialize observability components
	registry := metricz.New()
	tracer := tracez.New()

	// Register metrics
	registry.Counter(FamilyDispatchedTotal)
	registry.Counter(FamilyRoutedTotal)
	registry.Counter(FamilyUnroutedTotal)

	return &Family[T]{
		name:     name,
		byLength: make(map[int]*Builder[T]),
		byName:   make(map[Name]*Builder[T]),
		metrics:  registry,
		tracer:   tracer,
		hooks:    hookz.New[DispatchEvent](),
	}
}

// Declare creates a builder for the given name and length and registers it
// with the family. The builder is returned so it can also be held and used
// directly. Declaring a length twice replaces the earlier builder for that
// length; the earlier builder stays reachable by name until a declaration
// reuses its name as well.
func (f *Family[T]) Declare(name Name, length int) *Builder[T] {
	builder := NewBuilder[T](name, length)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byLength[builder.Len()] = builder
	f.byName[name] = builder
	return builder
}

// Collect dispatches to the builder declared for the given length.
// Returns ErrUnknownLength when no builder covers it.
func (f *Family[T]) Collect(ctx context.Context, length int, seq iter.Seq[T]) ([]T, error) {
	f.mu.RLock()
	builder := f.byLength[length]
	f.mu.RUnlock()

	// Start span for the dispatch
	ctx, span := f.tracer.StartSpan(ctx, FamilyDispatchSpan)
	defer span.Finish()
	span.SetTag(FamilyTagName, string(f.name))
	span.SetTag(FamilyTagLength, fmt.Sprintf("%d", length))

	f.metrics.Counter(FamilyDispatchedTotal).Inc()

	if builder == nil {
		span.SetTag(FamilyTagRouted, "false")
		f.metrics.Counter(FamilyUnroutedTotal).Inc()

		// Emit unrouted event
		_ = f.hooks.Emit(ctx, FamilyEventUnrouted, DispatchEvent{ //nolint:errcheck
			Name:      f.name,
			Length:    length,
			Routed:    false,
			Timestamp: time.Now(),
		})

		return nil, fmt.Errorf("family %q: length %d: %w", f.name, length, ErrUnknownLength)
	}

	span.SetTag(FamilyTagRouted, "true")
	f.metrics.Counter(FamilyRoutedTotal).Inc()

	out, err := builder.Collect(ctx, seq)

	// Emit routed event
	_ = f.hooks.Emit(ctx, FamilyEventRouted, DispatchEvent{ //nolint:errcheck
		Name:        f.name,
		Length:      length,
		BuilderName: builder.Name(),
		Routed:      true,
		Success:     err == nil,
		Error:       err,
		Timestamp:   time.Now(),
	})

	return out, err
}

// Builder returns the builder declared under the given name as a Collector,
// or nil when the name is unknown.
func (f *Family[T]) Builder(name Name) Collector[T] {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if builder, ok := f.byName[name]; ok {
		return builder
	}
	return nil
}

// Lengths returns the declared destination lengths in ascending order.
func (f *Family[T]) Lengths() []int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	lengths := make([]int, 0, len(f.byLength))
	for length := range f.byLength {
		lengths = append(lengths, length)
	}
	sort.Ints(lengths)
	return lengths
}

// Name returns the name of this family.
func (f *Family[T]) Name() Name {
	return f.name
}

// Metrics returns the metrics registry for this family's dispatch.
func (f *Family[T]) Metrics() *metricz.Registry {
	return f.metrics
}

// Tracer returns the tracer for this family's dispatch.
func (f *Family[T]) Tracer() *tracez.Tracer {
	return f.tracer
}

// Close shuts down the family's observability components along with every
// declared builder's.
func (f *Family[T]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, builder := range f.byName {
		_ = builder.Close() //nolint:errcheck
	}
	if f.tracer != nil {
		f.tracer.Close()
	}
	f.hooks.Close()
	return nil
}

// OnRouted registers a handler for dispatches that found a builder.
// The handler is called asynchronously after the builder completes.
func (f *Family[T]) OnRouted(handler func(context.Context, DispatchEvent) error) error {
	_, err := f.hooks.Hook(FamilyEventRouted, handler)
	return err
}

// OnUnrouted registers a handler for dispatches with no declared length.
// The handler is called asynchronously when routing fails.
func (f *Family[T]) OnUnrouted(handler func(context.Context, DispatchEvent) error) error {
	_, err := f.hooks.Hook(FamilyEventUnrouted, handler)
	return err
}
