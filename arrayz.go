// Package arrayz provides a lightweight, type-safe library for converting
// element sequences into fixed-size collections in Go.
//
// # Overview
//
// arrayz turns an iterator into a collection of an exact, declared length.
// The conversion is all-or-nothing: either every slot is filled from the
// source sequence, in order, or the call fails with an underflow error and
// no partial result is returned. Sources longer than the declared length
// succeed; the surplus is simply left unconsumed.
//
// # Installation
//
//	go get github.com/zoobzio/arrayz
//
// Requires Go 1.23+ for the iter package.
//
// # Core Concepts
//
// The library is built around a single, uniform interface:
//
//	type Collector[T any] interface {
//	    Collect(context.Context, iter.Seq[T]) ([]T, error)
//	    Name() Name
//	    Len() int
//	}
//
// Key components:
//   - Builder: a declared conversion bound to an element type, a name, and a
//     length. One generic template serves every (type, length, name) triple.
//   - Family: groups builders of one element type under one name so that a
//     set of lengths can be dispatched polymorphically.
//   - Sequence helpers: Convert, TryConvert, Fill and friends adapt or drain
//     iterators without a declared length.
//
// Go cannot parameterize a generic function over an array length, so the
// destination is a freshly allocated slice of exactly the declared length,
// validated as a runtime invariant. Callers that need a true array copy into
// one on success:
//
//	triple := arrayz.NewBuilder[int64]("triple", 3)
//	out, err := triple.Collect(ctx, slices.Values([]int64{10, 20, 30, 40}))
//	// out: [10 20 30], err: nil, 40 never pulled
//
//	var arr [3]int64
//	copy(arr[:], out)
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "slices"
//
//	    "github.com/zoobzio/arrayz"
//	)
//
//	func main() {
//	    pair := arrayz.NewBuilder[string]("pair", 2)
//
//	    out, err := pair.Collect(context.Background(), slices.Values([]string{"a", "b", "c"}))
//	    // out: ["a" "b"], err: nil
//
//	    _, err = pair.Collect(context.Background(), slices.Values([]string{"a"}))
//	    // err: underflow - only one element was available
//	    fmt.Println(out, err)
//	}
//
// # Error Handling
//
// A failed conversion returns an *Error[T] carrying the builder name, the
// declared length, how many elements were obtained, and the elements pulled
// before the failure:
//
//	out, err := triple.Collect(ctx, seq)
//	if err != nil {
//	    var collErr *arrayz.Error[int64]
//	    if errors.As(err, &collErr) {
//	        log.Printf("needed %d, got %d", collErr.Needed, collErr.Got)
//	    }
//	    if errors.Is(err, arrayz.ErrUnderflow) {
//	        // source was too short
//	    }
//	}
//
// # Strict Mode
//
// By default a source longer than the declared length is accepted and the
// surplus is never observed. SetStrict(true) makes the builder probe for one
// extra element after the fill and fail with ErrOverflow when the source
// still has elements. The probe consumes exactly one additional pull.
//
// # Observability
//
// Every Builder carries its own metrics registry, tracer, and hook bus:
//
//	builder.Metrics().Counter(arrayz.BuilderUnderflowTotal).Value()
//	builder.OnUnderflow(func(ctx context.Context, e arrayz.CollectEvent) error {
//	    log.Printf("%s underflow: got %d of %d", e.Name, e.Got, e.Length)
//	    return nil
//	})
//
// Call Close when a builder with registered hooks is no longer needed.
package arrayz

import (
	"context"
	"iter"
)

// Collector is the capability shared by every declared conversion for an
// element type T. Builder implements it directly and Family dispatches
// across a set of them, so a caller can hold any same-shaped conversion
// behind one name.
//
// Implementations must be all-or-nothing: on success the returned slice has
// exactly Len elements in pull order, and on failure no slice is returned.
type Collector[T any] interface {
	Collect(context.Context, iter.Seq[T]) ([]T, error)
	Name() Name
	Len() int
}

// Name is a type alias for builder and family names.
// Using this type encourages storing names as constants rather than
// using inline strings throughout your code.
//
// Example:
//
//	const (
//	    CoordinatesName arrayz.Name = "coordinates"
//	    RGBTripleName   arrayz.Name = "rgb-triple"
//	)
type Name = string
