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
	isAdmin() bool
	Login(ctx context.Context) error
	Resume(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	UpdateProfile(ctx context.Context) error
	ListUsers(ctx context.Context) error
	AddUser(ctx context.Context) error
	SetStatus(ctx context.Context) error
	EditUser(ctx context.Context) error
	GetUser(ctx context.Context) error
	Audits(ctx context.Context) error
	History(ctx context.Context) error
	Online(ctx context.Context) error
	Ping(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the auth CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help           — show available commands
//	  - login          — authenticate
//	  - ping           — check server reachability
//	  - exit | quit    — leave the program
//
//	Logged in:
//	  - passwd         — change own password
//	  - profile        — update own full name and email
//	  - history        — show login attempts and audit trail for a username
//	  - online         — list online user ids
//
//	Logged in as ADMIN, additionally:
//	  - users          — list all accounts
//	  - adduser        — create an account
//	  - setstatus      — lock or unlock an account
//	  - edituser       — edit an account
//	  - getuser        — show one account
//	  - audits         — show the newest audit entries
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("auth> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if !a.isLoggedIn() {
				printlnFn("Available commands: login, ping, exit")
			} else if a.isAdmin() {
				printlnFn("Available commands: users, adduser, setstatus, edituser, getuser, audits, history, online, passwd, profile, ping, exit")
			} else {
				printlnFn("Available commands: passwd, profile, history, online, ping, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "resume":
			_ = a.Resume(ctx)

		case "passwd":
			_ = a.ChangePassword(ctx)

		case "profile":
			_ = a.UpdateProfile(ctx)

		case "users":
			_ = a.ListUsers(ctx)

		case "adduser":
			_ = a.AddUser(ctx)

		case "setstatus":
			_ = a.SetStatus(ctx)

		case "edituser":
			_ = a.EditUser(ctx)

		case "getuser":
			_ = a.GetUser(ctx)

		case "audits":
			_ = a.Audits(ctx)

		case "history":
			_ = a.History(ctx)

		case "online":
			_ = a.Online(ctx)

		case "ping":
			_ = a.Ping(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
