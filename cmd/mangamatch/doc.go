// Package main hosts the mangamatch CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into matcher calls:
// batch runs over tracker exports, interactive searches, cache maintenance,
// review of saved results, configuration scaffolding, and the HTTP server.
// Configuration resolution, logging setup, and runtime wiring live in
// commandContext so subcommands stay declarative; the heavy lifting belongs
// in the internal packages.
package main
