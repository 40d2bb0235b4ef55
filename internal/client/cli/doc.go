// Package cli provides the interactive SketchHub command-line client.
//
// It wires configuration, the local SQLite cache, the HTTP API services and
// the broadcast subscriber behind an interactive REPL that keeps working
// from the cached snapshot while the server is unreachable.
//
// Key features:
//   - Register / Login / Logout (cached session reused offline)
//   - Browse, search and inspect models; read and write comments
//   - Like / Unlike with an optimistic counter that rolls back on failure
//   - Publish models with their assets uploaded to presigned URLs
//   - Live catalog updates from the WebSocket broadcast stream
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartBroadcastStream, and runREPL for details.
package cli
