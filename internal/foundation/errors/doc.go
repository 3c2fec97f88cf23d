// Package errors provides the classified error primitives used across the packager.
//
// Every failure that leaves a package is a ClassifiedError carrying a category,
// a severity and optional structured context. Domain sentinels (for example a
// cyclic configuration reference) are attached as the cause so callers can use
// errors.Is while the CLI routes on category.
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryReference, "cyclic configuration reference").
//		WithContext("package", pkgID).
//		WithCause(project.ErrCyclicReference).
//		Build()
package errors
