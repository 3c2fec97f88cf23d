// Package pipeline runs one build pass: merge the file groups of a build,
// optionally regenerate the compressed script artifact, copy stale files into
// the target directory and substitute template markers in subst files.
//
// Each requested build is processed independently and in order; an error
// aborts only the pass of the build it occurred in.
package pipeline
