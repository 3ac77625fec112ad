// Package cli provides a small interactive shell around the offline system,
// used for manual testing against a backend: submit forms, store and sync
// verification attempts, inspect the queue, and force drains while toggling
// the network on and off underneath it.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/justicebus/offlinesync/internal/config"
	"github.com/justicebus/offlinesync/internal/logging"
	"github.com/justicebus/offlinesync/internal/offline"
	"github.com/justicebus/offlinesync/internal/services"
)

type App struct {
	system *offline.System
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	system, err := offline.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	system.Init(ctx)

	return &App{system: system}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.system.Close()

	fmt.Println("offline sync shell (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if a.dispatch(ctx, line) {
			return
		}
	}
}

// dispatch executes one command line; it reports true when the shell should
// exit.
func (a *App) dispatch(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "help":
		fmt.Println("Available commands: status, submit <path> <json>, verify <phone> <code>, events, pending, drain, kick, exit")

	case "status":
		if a.system.Online() {
			fmt.Println("online")
		} else {
			fmt.Println("offline")
		}

	case "submit":
		if len(args) < 2 {
			fmt.Println("Usage: submit <path> <json>")
			return false
		}
		payload := strings.Join(args[1:], " ")
		if !json.Valid([]byte(payload)) {
			fmt.Println("payload is not valid JSON")
			return false
		}
		res, err := a.system.Forms.Submit(ctx, args[0], json.RawMessage(payload))
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		if res.Status == services.StatusOffline {
			fmt.Println(res.Message)
		} else {
			fmt.Println(string(res.Response))
		}

	case "verify":
		if len(args) != 2 {
			fmt.Println("Usage: verify <phone> <code>")
			return false
		}
		if a.system.Verification.StoreAttempt(ctx, args[0], args[1]) {
			fmt.Println("attempt stored")
		} else {
			fmt.Println("could not store attempt")
		}

	case "events":
		snapshot, err := a.system.Events.FetchAndCache(ctx)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		if snapshot == nil {
			fmt.Println("no events cached yet")
			return false
		}
		fmt.Printf("%d events, last updated %s\n", len(snapshot.Events), snapshot.LastUpdated)

	case "pending":
		items, err := a.system.Pending(ctx)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		for _, item := range items {
			fmt.Printf("%s  %s %s (%s)\n", item.ID, item.Method, item.APIPath, item.StoreType)
		}
		fmt.Printf("%d pending\n", len(items))

	case "drain":
		res, err := a.system.Drain(ctx)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		fmt.Printf("attempted %d, replayed %d, failed %d\n", res.Attempted, res.Replayed, res.Failed)

	case "kick":
		a.system.Kick()
		fmt.Println("probe requested")

	case "exit", "quit":
		fmt.Println("Bye!")
		return true

	default:
		fmt.Println("Unknown command:", cmd)
	}
	return false
}
