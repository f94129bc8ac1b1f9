// Package ioutils provides file system utilities for moviedata.
//
// This package contains functions for:
//   - Atomic file replacement
//   - Directory creation
//
// # Atomic Writes
//
// Collection files and settings are written in full or not at all:
//
//	// Replace a file; readers see the old or the new contents, never a mix
//	err := ioutils.WriteFileAtomic("/home/me/movies.mqb", payload)
//
//	// Make sure a database file's directory exists before opening it
//	err := ioutils.EnsureParent("/home/me/.local/share/moviedata/history.db")
//
// Exists reports whether a path is present without treating a missing file
// as an error.
package ioutils
