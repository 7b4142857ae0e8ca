// Package main hosts the covercard CLI entrypoint and command graph.
//
// The Cobra command tree renders story covers from a photo, mails them
// through the configured relay, serves the live preview API, and scaffolds
// configuration. Config loading and logger setup happen once in the command
// context so subcommands only wire the pkg/ components together.
package main
