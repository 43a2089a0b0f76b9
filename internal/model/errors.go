// file: internal/model/errors.go
// version: 1.0.0
// guid: 1ddfaf88-fbc2-4114-864f-58bb754cbaac

package model

import "fmt"

// PathConflictError reports a merge between records describing different
// files. Never auto-resolved.
type PathConflictError struct {
	Self  string
	Other string
}

func (e *PathConflictError) Error() string {
	return fmt.Sprintf("cannot merge track metadata with different paths: %q vs %q", e.Self, e.Other)
}

// FingerprintConflictError reports a merge between records carrying different
// fingerprints. Never auto-resolved.
type FingerprintConflictError struct {
	Self  string
	Other string
}

func (e *FingerprintConflictError) Error() string {
	return fmt.Sprintf("cannot merge track metadata with different fingerprints: %q vs %q", e.Self, e.Other)
}

// ValueConflictError reports a scalar field set to different values on both
// sides under the raise policy.
type ValueConflictError struct {
	Field string
	Self  any
	Other any
}

func (e *ValueConflictError) Error() string {
	return fmt.Sprintf("conflict for %q: %v vs %v", e.Field, e.Self, e.Other)
}

// ListConflictError reports a list field with non-identical non-empty values
// on both sides under the raise policy.
type ListConflictError struct {
	Field string
	Self  any
	Other any
}

func (e *ListConflictError) Error() string {
	return fmt.Sprintf("list conflict for %q: %v vs %v", e.Field, e.Self, e.Other)
}
