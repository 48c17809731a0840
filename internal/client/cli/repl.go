package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Profile(ctx context.Context) error
	Upload(ctx context.Context, path string) error
	Summary(ctx context.Context, datasetID string) error
	History(ctx context.Context) error
	Types(ctx context.Context, datasetID string) error
	Report(ctx context.Context, datasetID string) error
}

// runREPL starts a simple read-eval-print loop for the EquipSense CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help             — show available commands
//	  - login            — authenticate
//	  - exit | quit      — leave the program
//
//	Logged in:
//	  - help             — show available commands
//	  - profile          — show the account profile
//	  - upload <file>    — upload an equipment CSV
//	  - summary [id]     — summary statistics (latest dataset by default)
//	  - history          — list uploaded datasets
//	  - types [id]       — equipment type distribution
//	  - report <id>      — download the PDF report
//	  - logout           — log out
//	  - exit | quit      — leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// print their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("eqs %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		// optional [id] argument of summary and types
		optArg := ""
		if len(args) > 0 {
			optArg = args[0]
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: profile, upload <file>, summary [id], history, types [id], report <id>, logout, exit")
			} else {
				printlnFn("Available commands: login, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "profile":
			_ = a.Profile(ctx)

		case "upload":
			if len(args) == 0 {
				printlnFn("Usage: upload <file.csv>")
				continue
			}
			_ = a.Upload(ctx, args[0])

		case "summary":
			_ = a.Summary(ctx, optArg)

		case "history":
			_ = a.History(ctx)

		case "types":
			_ = a.Types(ctx, optArg)

		case "report":
			if len(args) == 0 {
				printlnFn("Usage: report <dataset-id>")
				continue
			}
			_ = a.Report(ctx, args[0])

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
