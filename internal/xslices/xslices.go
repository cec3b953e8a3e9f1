// Package xslices has slice helpers missing from the standard slices
// package.
package xslices

// Filter returns the elements of s for which f returns true, in order.
func Filter[T any, S ~[]T](s S, f func(T) bool) (r S) {
	r = make(S, 0, len(s))
	for _, v := range s {
		if f(v) {
			r = append(r, v)
		}
	}
	return r
}

// Map returns the result of calling f on every element of s.
func Map[T, R any, S ~[]T](s S, f func(T) R) []R {
	r := make([]R, 0, len(s))
	for _, v := range s {
		r = append(r, f(v))
	}
	return r
}
