// Package disk manages the temporary spill channels of a sort session:
// creation and exactly-once deletion through a session-scoped manager, and
// page-buffered output/input views with optional per-page compression.
package disk
