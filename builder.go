package arrayz

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Metric keys for Builder observability.
const (
	BuilderCollectedTotal = metricz.Key("builder.collected.total")
	BuilderUnderflowTotal = metricz.Key("builder.underflow.total")
	BuilderOverflowTotal  = metricz.Key("builder.overflow.total")
	BuilderPanicsTotal    = metricz.Key("builder.panics.total")
	BuilderLastElements   = metricz.Key("builder.last.elements")
)

// Span names for Builder.
const (
	BuilderCollectSpan = tracez.Key("builder.collect")
)

// Span tags for Builder.
const (
	BuilderTagName    = tracez.Tag("builder.name")
	BuilderTagLength  = tracez.Tag("builder.length")
	BuilderTagSuccess = tracez.Tag("builder.success")
	BuilderTagError   = tracez.Tag("builder.error")

	// Hook event keys.
	BuilderEventCollected = hookz.Key("builder.collected")
	BuilderEventUnderflow = hookz.Key("builder.underflow")
	BuilderEventOverflow  = hookz.Key("builder.overflow")
	BuilderEventPanicked  = hookz.Key("builder.panicked")
)

// CollectEvent represents the outcome of one conversion attempt.
// It is emitted via hookz after every Collect call, allowing external
// systems to track conversion results without wrapping the builder.
type CollectEvent struct {
	Name      Name          // Builder name
	Length    int           // Declared destination length
	Got       int           // Elements actually pulled from the source
	Success   bool          // Whether the destination was fully populated
	Error     error         // Failure, if any
	Duration  time.Duration // Time spent draining the source
	Timestamp time.Time     // When the conversion finished
}

// Builder converts element sequences into slices of one declared, fixed
// length. A Builder is the Go rendering of a per-(type, length) generated
// conversion function: NewBuilder instantiates the single generic fill
// template for an element type, binds it to a name and a length, and the
// result is a callable conversion with the contract described below.
//
// Collect pulls elements from the source strictly left to right, placing
// each into the next destination slot. The call is all-or-nothing:
//
//   - If the source yields at least the declared number of elements, the
//     result holds exactly that many, in pull order, and any surplus is
//     left unconsumed in the source.
//   - If the source is exhausted first, the call fails with an *Error[T]
//     wrapping ErrUnderflow and no result is returned. The source has been
//     drained by the elements successfully pulled plus the one failed pull.
//
// The fill is single-pass and non-resumable. There is no retry; a caller
// that wants another attempt supplies a fresh sequence.
//
// Declare one builder per needed (type, length) combination and reuse it -
// builders are immutable apart from strict mode and clock, and safe for
// concurrent use:
//
//	var (
//	    RGB  = arrayz.NewBuilder[uint8]("rgb", 3)
//	    RGBA = arrayz.NewBuilder[uint8]("rgba", 4)
//	)
//
//	pixel, err := RGB.Collect(ctx, channelValues(ch))
//
// # Observability
//
// Builder provides comprehensive observability through metrics, tracing,
// and events:
//
// Metrics:
//   - builder.collected.total: Counter of successful conversions
//   - builder.underflow.total: Counter of under-supplied sources
//   - builder.overflow.total: Counter of strict-mode overflow failures
//   - builder.panics.total: Counter of sources that panicked mid-fill
//   - builder.last.elements: Gauge of elements pulled by the last call
//
// Traces:
//   - builder.collect: Span covering one conversion attempt
//
// Events (via hooks):
//   - builder.collected: Fired when a conversion succeeds
//   - builder.underflow: Fired when the source under-supplies
//   - builder.overflow: Fired when strict mode rejects a surplus
//   - builder.panicked: Fired when the source panics mid-fill
type Builder[T any] struct {
	clock  clockz.Clock
	name   Name
	length int
	strict bool
	mu     sync.RWMutex

	// Observability
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[CollectEvent]
}

// NewBuilder creates a conversion for element type T bound to the given
// name and destination length. A negative length is treated as zero.
// Length zero is valid: the conversion always succeeds immediately with an
// empty destination and consumes nothing from the source.
func NewBuilder[T any](name Name, length int) *Builder[T] {
	if length < 0 {
		length = 0
	}

	// Initialize observability components
	registry := metricz.New()
	tracer := tracez.New()

	// Register metrics
	registry.Counter(BuilderCollectedTotal)
	registry.Counter(BuilderUnderflowTotal)
	registry.Counter(BuilderOverflowTotal)
	registry.Counter(BuilderPanicsTotal)
	registry.Gauge(BuilderLastElements)

	return &Builder[T]{
		name:    name,
		length:  length,
		clock:   clockz.RealClock,
		metrics: registry,
		tracer:  tracer,
		hooks:   hookz.New[CollectEvent](),
	}
}

// Collect implements the Collector interface.
// It drains seq through a pull iterator and fills a fresh destination of
// exactly the declared length. The pull iterator is stopped when Collect
// returns, so surplus elements in seq are never produced.
func (b *Builder[T]) Collect(ctx context.Context, seq iter.Seq[T]) ([]T, error) {
	next, stop := iter.Pull(seq)
	defer stop()
	return b.CollectPull(ctx, next)
}

// CollectPull is Collect for a caller-owned pull function. The caller keeps
// the handle, so after a successful non-strict call the remaining elements
// are still available through next:
//
//	next, stop := iter.Pull(seq)
//	defer stop()
//
//	head, err := pair.CollectPull(ctx, next)   // takes the first two
//	rest, ok := next()                          // surplus is still there
//
// On underflow the handle has been drained by the elements pulled plus the
// one failed pull attempt. In strict mode a successful call additionally
// consumes the single probe pull that verified the source was exhausted.
func (b *Builder[T]) CollectPull(ctx context.Context, next func() (T, bool)) (result []T, err error) {
	b.mu.RLock()
	length := b.length
	strict := b.strict
	clock := b.clock
	b.mu.RUnlock()

	// Start span for the conversion attempt
	ctx, span := b.tracer.StartSpan(ctx, BuilderCollectSpan)
	defer span.Finish()
	span.SetTag(BuilderTagName, string(b.name))
	span.SetTag(BuilderTagLength, fmt.Sprintf("%d", length))

	start := clock.Now()
	out := make([]T, 0, length)

	fail := func(collErr *Error[T]) error {
		span.SetTag(BuilderTagSuccess, "false")
		span.SetTag(BuilderTagError, collErr.Error())
		return b.fail(ctx, collErr)
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fail(&Error[T]{
				Err:       fmt.Errorf("%w: %v", ErrSequencePanic, r),
				Name:      b.name,
				Collected: out,
				Needed:    length,
				Got:       len(out),
				Timestamp: clock.Now(),
				Duration:  clock.Now().Sub(start),
			})
		}
	}()

	for i := 0; i < length; i++ {
		v, ok := next()
		if !ok {
			return nil, fail(&Error[T]{
				Err:       ErrUnderflow,
				Name:      b.name,
				Collected: out,
				Needed:    length,
				Got:       len(out),
				Timestamp: clock.Now(),
				Duration:  clock.Now().Sub(start),
				Underflow: true,
			})
		}
		out = append(out, v)
	}

	if strict {
		if _, ok := next(); ok {
			return nil, fail(&Error[T]{
				Err:       ErrOverflow,
				Name:      b.name,
				Collected: out,
				Needed:    length,
				Got:       len(out) + 1,
				Timestamp: clock.Now(),
				Duration:  clock.Now().Sub(start),
				Overflow:  true,
			})
		}
	}

	duration := clock.Now().Sub(start)
	b.metrics.Counter(BuilderCollectedTotal).Inc()
	b.metrics.Gauge(BuilderLastElements).Set(float64(len(out)))
	span.SetTag(BuilderTagSuccess, "true")

	_ = b.hooks.Emit(ctx, BuilderEventCollected, CollectEvent{ //nolint:errcheck
		Name:      b.name,
		Length:    length,
		Got:       len(out),
		Success:   true,
		Duration:  duration,
		Timestamp: clock.Now(),
	})

	return out, nil
}

// fail records metrics and the matching hook event for a failed conversion,
// then returns the error.
func (b *Builder[T]) fail(ctx context.Context, collErr *Error[T]) error {
	b.metrics.Gauge(BuilderLastElements).Set(float64(collErr.Got))

	event := CollectEvent{
		Name:      b.name,
		Length:    collErr.Needed,
		Got:       collErr.Got,
		Success:   false,
		Error:     collErr,
		Duration:  collErr.Duration,
		Timestamp: collErr.Timestamp,
	}

	switch {
	case collErr.Underflow:
		b.metrics.Counter(BuilderUnderflowTotal).Inc()
		_ = b.hooks.Emit(ctx, BuilderEventUnderflow, event) //nolint:errcheck
	case collErr.Overflow:
		b.metrics.Counter(BuilderOverflowTotal).Inc()
		_ = b.hooks.Emit(ctx, BuilderEventOverflow, event) //nolint:errcheck
	default:
		b.metrics.Counter(BuilderPanicsTotal).Inc()
		_ = b.hooks.Emit(ctx, BuilderEventPanicked, event) //nolint:errcheck
	}

	return collErr
}

// SetStrict toggles strict mode. When strict, a source with elements left
// after the destination is filled fails the conversion with ErrOverflow.
// The default is non-strict: surplus elements are accepted and never
// observed.
func (b *Builder[T]) SetStrict(strict bool) *Builder[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.strict = strict
	return b
}

// Strict reports whether strict mode is enabled.
func (b *Builder[T]) Strict() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.strict
}

// WithClock sets a custom clock for event and error timestamps.
// Primarily used in tests with clockz.NewFakeClock().
func (b *Builder[T]) WithClock(clock clockz.Clock) *Builder[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clock = clock
	return b
}

// Name returns the name of this builder.
func (b *Builder[T]) Name() Name {
	return b.name
}

// Len returns the declared destination length.
func (b *Builder[T]) Len() int {
	return b.length
}

// Metrics returns the metrics registry for this builder.
func (b *Builder[T]) Metrics() *metricz.Registry {
	return b.metrics
}

// Tracer returns the tracer for this builder.
func (b *Builder[T]) Tracer() *tracez.Tracer {
	return b.tracer
}

// Close gracefully shuts down observability components.
func (b *Builder[T]) Close() error {
	if b.tracer != nil {
		b.tracer.Close()
	}
	b.hooks.Close()
	return nil
}

// OnCollected registers a handler for successful conversions.
// The handler is called asynchronously after the conversion completes.
func (b *Builder[T]) OnCollected(handler func(context.Context, CollectEvent) error) error {
	_, err := b.hooks.Hook(BuilderEventCollected, handler)
	return err
}

// OnUnderflow registers a handler for under-supplied sources.
// The handler is called asynchronously when a conversion underflows.
func (b *Builder[T]) OnUnderflow(handler func(context.Context, CollectEvent) error) error {
	_, err := b.hooks.Hook(BuilderEventUnderflow, handler)
	return err
}

// OnOverflow registers a handler for strict-mode overflow failures.
// The handler is called asynchronously when strict mode rejects a surplus.
func (b *Builder[T]) OnOverflow(handler func(context.Context, CollectEvent) error) error {
	_, err := b.hooks.Hook(BuilderEventOverflow, handler)
	return err
}

// OnPanicked registers a handler for sources that panic mid-fill.
// The handler is called asynchronously after the panic is recovered into
// an ErrSequencePanic failure.
func (b *Builder[T]) OnPanicked(handler func(context.Context, CollectEvent) error) error {
	_, err := b.hooks.Hook(BuilderEventPanicked, handler)
	return err
}
