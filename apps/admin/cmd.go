package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/trezcool/darasa/core/session"
)

var errHelp = errors.New("help provided")

// sessionStore is a credential store that also supports wiping every session.
type sessionStore interface {
	session.Store
	Flush(ctx context.Context) error
}

type commandLine struct {
	db    *sql.DB
	store sessionStore
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args] - run a database migration command (up, down, status, ...)")
	fmt.Println("  clearsession -session SESSION_ID - remove every credential held for a session")
	fmt.Println("  flushsessions - remove every stored session credential (logs everyone out)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	clearSessionCmd := flag.NewFlagSet("clearsession", flag.ExitOnError)
	clearSessionSID := clearSessionCmd.String("session", "", "The session id to clear.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "clearsession":
		if err := clearSessionCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *clearSessionSID == "" {
			clearSessionCmd.Usage()
			return errHelp
		}
		return cli.clearSession(*clearSessionSID)
	case "flushsessions":
		return cli.flushSessions()
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) clearSession(sid string) error {
	if cli.store == nil {
		return errors.New("no session store configured")
	}
	return cli.store.ClearAll(context.Background(), sid)
}

func (cli *commandLine) flushSessions() error {
	if cli.store == nil {
		return errors.New("no session store configured")
	}
	return cli.store.Flush(context.Background())
}
