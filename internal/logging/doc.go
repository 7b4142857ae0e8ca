// Package logging builds the slog loggers used across covercard.
//
// Console output is a compact single-line format with colored level labels
// when writing to a terminal; json output is meant for files and log
// collectors. Field names shared by several packages live in attrs.go.
package logging
