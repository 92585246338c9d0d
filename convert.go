package arrayz

import "iter"

// Convert returns a lazy iterator that applies a pure conversion function
// to every element of seq. Nothing is pulled until the result is consumed,
// so converting an effectively unbounded sequence is fine - a downstream
// Builder only reads as many elements as its length requires.
//
// Example:
//
//	runes := arrayz.Convert(slices.Values([]byte{97, 98, 99}), func(b byte) rune {
//	    return rune(b)
//	})
//	// yields 'a', 'b', 'c'
func Convert[T, U any](seq iter.Seq[T], fn func(T) U) iter.Seq[U] {
	return func(yield func(U) bool) {
		for v := range seq {
			if !yield(fn(v)) {
				return
			}
		}
	}
}

// ConvertSlice eagerly converts every element of seq and returns the
// results as a slice. The source must be finite.
func ConvertSlice[T, U any](seq iter.Seq[T], fn func(T) U) []U {
	var out []U
	for v := range seq {
		out = append(out, fn(v))
	}
	return out
}

// TryConvert returns a lazy iterator over conversion results for a function
// that can fail. Each element yields either a converted value or the
// conversion error; iteration continues past failures, so a consumer can
// skip bad elements or stop at the first one as it sees fit.
//
// Example - parsing a stream of strings:
//
//	parsed := arrayz.TryConvert(fields, func(s string) (int64, error) {
//	    return strconv.ParseInt(s, 10, 64)
//	})
//	for v, err := range parsed {
//	    if err != nil {
//	        continue // or break for fail-fast
//	    }
//	    use(v)
//	}
func TryConvert[T, U any](seq iter.Seq[T], fn func(T) (U, error)) iter.Seq2[U, error] {
	return func(yield func(U, error) bool) {
		for v := range seq {
			if !yield(fn(v)) {
				return
			}
		}
	}
}

// TryCollect eagerly converts every element of seq, failing fast: the first
// conversion error aborts the collect and is returned, discarding anything
// already converted.
func TryCollect[T, U any](seq iter.Seq[T], fn func(T) (U, error)) ([]U, error) {
	var out []U
	for v := range seq {
		u, err := fn(v)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// Fill copies elements from seq into dst, in order, stopping when either is
// exhausted. It returns how many elements were written. Unlike a Builder,
// Fill is best-effort: a short source is not an error, the caller checks
// the count.
//
//	var buf [6]int64
//	n := arrayz.Fill(buf[:], seq)
func Fill[T any](dst []T, seq iter.Seq[T]) int {
	n := 0
	for v := range seq {
		if n == len(dst) {
			break
		}
		dst[n] = v
		n++
	}
	return n
}

// TryFill converts elements from seq into dst until dst is full, the source
// runs out, or a conversion fails. It returns how many elements were
// written; on a conversion failure the count reflects the writes that
// happened before the failing element, and the element that failed is
// consumed but not written.
func TryFill[T, U any](dst []U, seq iter.Seq[T], fn func(T) (U, error)) (int, error) {
	n := 0
	for v := range seq {
		if n == len(dst) {
			break
		}
		u, err := fn(v)
		if err != nil {
			return n, err
		}
		dst[n] = u
		n++
	}
	return n, nil
}
