// Package data provides JobStore implementations for the videogen job system.
package data

import "errors"

var (
	// ErrJobNotFound is returned when a job identifier is unknown.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobExists is returned when creating a job with an identifier that
	// is already stored.
	ErrJobExists = errors.New("job already exists")
)
