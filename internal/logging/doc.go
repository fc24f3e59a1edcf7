// Package logging assembles the structured slog loggers used by sup2pgm.
//
// It owns the console and JSON handlers, level and output plumbing, the
// standardized field names (component, run_id, event_type, error_hint, impact)
// and small attribute helpers so every package logs records of the same shape.
// A no-op logger is provided for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup.
package logging
