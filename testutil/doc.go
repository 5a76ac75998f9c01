// Package testutil provides testing utilities for extsort.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe RNG and helpers for generating record
// streams and pre-sorted runs.
package testutil
