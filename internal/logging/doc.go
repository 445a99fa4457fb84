// Package logging assembles structured slog loggers and formatting helpers used
// across assetnode.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes helpers so components tag log lines with a component name, an
// event type, and request correlation IDs carried on the context. WARN and
// ERROR lines go through WarnWithContext/ErrorWithContext so each one names a
// cause, an impact, and a hint for the operator.
//
// NewNop returns a logger that discards everything, for tests and wiring code
// that cannot fail.
package logging
