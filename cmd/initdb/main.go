// Command initdb re-applies the database schema.
//
// DESTRUCTIVE: it drops the users and posts tables and recreates them
// empty. The server applies the schema idempotently at startup, so this
// command exists for wiping a development database, not for first runs.
//
// Exit code 0 on success; non-zero with a message on stderr otherwise.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sakif/miniblog/internal/config"
	sqliteRepo "github.com/sakif/miniblog/internal/repository/sqlite"
)

func main() {
	force := flag.Bool("force", false, "skip the confirmation prompt")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg, err := config.Load(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initdb: %v\n", err)
		os.Exit(1)
	}

	if !*force {
		fmt.Fprintf(os.Stderr, "This will DROP ALL DATA in %s. Type 'yes' to continue: ", cfg.DBPath)
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(line) != "yes" {
			fmt.Fprintln(os.Stderr, "initdb: aborted")
			os.Exit(1)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initdb: opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Reset(); err != nil {
		fmt.Fprintf(os.Stderr, "initdb: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Initialized the database.")
}
