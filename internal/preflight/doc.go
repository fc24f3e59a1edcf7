// Package preflight checks the filesystem locations a conversion writes to
// before any packet is decoded, so a run never fails halfway through a long
// stream because a directory is missing or read-only.
package preflight
