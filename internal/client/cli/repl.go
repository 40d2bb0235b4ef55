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
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	List(ctx context.Context) error
	Popular(ctx context.Context) error
	Search(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Like(ctx context.Context, args []string) error
	Unlike(ctx context.Context, args []string) error
	Favorites(ctx context.Context) error
	Comments(ctx context.Context, args []string) error
	Comment(ctx context.Context, args []string) error
	Categories(ctx context.Context) error
	Users(ctx context.Context) error
	Create(ctx context.Context) error
	Delete(ctx context.Context, args []string) error
	Watch(ctx context.Context) error
}

// memberCommands need a logged-in user.
var memberCommands = map[string]bool{
	"like": true, "unlike": true, "favorites": true, "comment": true,
	"create": true, "delete": true, "users": true, "logout": true,
}

// runREPL starts a simple read-eval-print loop for the SketchHub CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command and the rest as arguments, and dispatches to methods on 'a'.
// Unknown commands are reported back to the user. The loop exits on scanner
// EOF or when the user types "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Anyone:
//	  - help               : show available commands
//	  - register | login   : create an account, authenticate
//	  - (l)ist             : live catalog (cached snapshot when offline)
//	  - popular            : most favorited models
//	  - search <text>      : search by title
//	  - show <id>          : model details
//	  - comments <id>      : latest comments
//	  - categories         : category list
//	  - watch              : toggle live event printing
//	  - exit | quit        : leave the program
//
//	Logged in:
//	  - like | unlike <id> : favorite or unfavorite a model
//	  - favorites          : your favorites
//	  - comment <id>       : add a comment
//	  - create | delete    : publish or remove a model
//	  - users              : user list (admins)
//	  - logout             : log out
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("sketchhub%s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if memberCommands[cmd] && !a.isLoggedIn() {
			printlnFn("Please log in first")
			continue
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, popular, search, show, like, unlike, favorites, comments, comment, categories, users, create, delete, watch, logout, exit")
			} else {
				printlnFn("Available commands: register, login, (l)ist, popular, search, show, comments, categories, watch, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "popular":
			_ = a.Popular(ctx)

		case "search":
			_ = a.Search(ctx, args)

		case "show":
			_ = a.Show(ctx, args)

		case "like":
			_ = a.Like(ctx, args)

		case "unlike":
			_ = a.Unlike(ctx, args)

		case "favorites":
			_ = a.Favorites(ctx)

		case "comments":
			_ = a.Comments(ctx, args)

		case "comment":
			_ = a.Comment(ctx, args)

		case "categories":
			_ = a.Categories(ctx)

		case "users":
			_ = a.Users(ctx)

		case "create":
			_ = a.Create(ctx)

		case "delete":
			_ = a.Delete(ctx, args)

		case "watch":
			_ = a.Watch(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
