// Package project models a packager project: packages contribute ordered file
// groups to named builds, configurations inherit from siblings through refs,
// and the groups of every package are merged per build for the pipeline.
//
// A Project is immutable apart from FileGroup.Update, which re-scans glob
// matchers. Reloading a configuration means building a new Project.
package project
