// Package cli provides the interactive EquipSense command-line client.
//
// It wires configuration, the API client, and an interactive REPL. Typical
// flow: prompt for credentials, then execute user commands against the
// server.
//
// Key features:
//   - Login / Logout / Profile
//   - Upload equipment CSV files
//   - Summary statistics, type distribution and upload history
//   - PDF report downloads into a local reports directory
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
