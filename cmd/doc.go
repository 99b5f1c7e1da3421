// Package cmd implements the command-line interface for agenda.
//
// This package provides the following commands:
//   - serve: Start the HTTP question endpoint (GET|POST /mcp)
//   - ask: Ask the calendar agent a single question from the terminal
//   - resolve: Resolve a pt-BR date expression, for debugging
//   - events: List the upcoming events of the configured calendar
//   - generate-docs: Generate markdown documentation for the calendar tools
//   - version: Display version information
//
// Every command reads the same configuration: defaults, an optional YAML
// file (--config), the environment (seeded from .env) and flags.
package cmd
