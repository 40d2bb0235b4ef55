package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dmitrijs2005/sketchhub/internal/client/client"
)

func (a *App) getStatus() string {
	s := ""
	if u := a.currentUser(); u != nil {
		s = "@" + u.Username + " "
	}
	if m := a.mode(); m != "" {
		s = s + string(m)
	}
	if s != "" {
		s = fmt.Sprintf(" (%s)", s)
	}
	return s
}

// Root restores a cached session if there is one, starts the connectivity
// watcher and the broadcast stream, and runs the REPL until the user exits.
func (a *App) Root(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Println("Welcome to SketchHub CLI (type 'help' for commands)")

	if err := a.restoreOffline(ctx); err != nil && !errors.Is(err, client.ErrLocalDataNotAvailable) {
		log.Printf("error restoring session: %v", err)
	}
	a.checkOnline(ctx)

	go a.StartOnlineStatusWatcher(ctx, a.config.ReconnectInterval)
	go a.StartBroadcastStream(ctx)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}
