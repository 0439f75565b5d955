// Package utils holds small helpers shared by tests.
package utils

// Ptr returns a pointer to v, handy for optional struct fields in fixtures.
func Ptr[T any](v T) *T {
	return &v
}
