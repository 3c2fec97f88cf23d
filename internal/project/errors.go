package project

import "errors"

var (
	// ErrUnknownBuild is returned when a build identifier has no settings.
	ErrUnknownBuild = errors.New("unknown build")
	// ErrCyclicReference is returned when ref resolution stops making progress.
	ErrCyclicReference = errors.New("cyclic configuration reference")
	// ErrMissingSourceFile is returned when a literal matcher names a missing file.
	ErrMissingSourceFile = errors.New("missing source file")
	// ErrDuplicateID is returned when two packages or builds share an identifier.
	ErrDuplicateID = errors.New("duplicate identifier")
)
