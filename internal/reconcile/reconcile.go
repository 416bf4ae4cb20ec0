// Package reconcile applies the result of a confirmed remote mutation to a
// local list. Every function returns a new slice and leaves its input alone,
// so a snapshot handed to a renderer is never changed underneath it.
package reconcile

// Append returns seq with e added at the end.
func Append[T any](seq []T, e T) []T {
	out := make([]T, 0, len(seq)+1)
	out = append(out, seq...)
	return append(out, e)
}

// Replace returns seq with every element whose key equals key(e) swapped for
// e, in place. When nothing matches the result equals seq.
func Replace[T any](seq []T, key func(T) string, e T) []T {
	k := key(e)
	out := make([]T, len(seq))
	for i, x := range seq {
		if k != "" && key(x) == k {
			out[i] = e
			continue
		}
		out[i] = x
	}
	return out
}

// Remove returns seq without the elements whose key equals k. Order is kept.
// An empty key removes nothing.
func Remove[T any](seq []T, key func(T) string, k string) []T {
	out := make([]T, 0, len(seq))
	for _, x := range seq {
		if k != "" && key(x) == k {
			continue
		}
		out = append(out, x)
	}
	return out
}
