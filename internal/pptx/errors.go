package pptx

import (
	"errors"
	"fmt"
)

var (
	// ErrPackageNotFound is returned when the package path does not exist.
	ErrPackageNotFound = errors.New("package not found")
	// ErrPackageCorrupt is returned when the package is not a readable zip archive.
	ErrPackageCorrupt = errors.New("package corrupt")
)

// PartError reports a member of the package that could not be read or parsed.
// It is fatal for the package it belongs to.
type PartError struct {
	Part string
	Err  error
}

func (e *PartError) Error() string {
	return fmt.Sprintf("part %s: %v", e.Part, e.Err)
}

func (e *PartError) Unwrap() error { return e.Err }
