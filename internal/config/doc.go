// Package config loads, normalizes, and validates covercard configuration.
//
// It supplies defaults for the story layout, font probing, the mail relay,
// and the preview server, expands user paths (including tilde shortcuts),
// reads TOML files, and honours environment fallbacks for relay credentials
// (COVERCARD_SMTP_USERNAME, COVERCARD_SMTP_PASSWORD).
//
// Relay credentials are never compiled in; they come from the file or the
// environment so the delivery path only sees injected values.
package config
