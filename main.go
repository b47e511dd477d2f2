package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"moneyball/internal/back"
	"moneyball/internal/config"

	_ "github.com/mattn/go-sqlite3"
)

// Version holds the build-time version string.
var Version = "unknown" // nolint:gochecknoglobals

func main() {
	flag.Parse()

	switch flag.Arg(0) {
	case "version":
		fmt.Fprintf(os.Stdout, "Moneyball %s\n", Version)
	case "help":
		fmt.Fprint(os.Stdout, help())
	case "migrate":
		run(migrateDatabase)
	case "serve":
		run(serve)
	case "recompute":
		run(recompute)
	case "dev:fixtures":
		run(loadFixtures)
	default:
		fmt.Fprint(os.Stderr, help())
		os.Exit(1)
	}
}

func run(cb func(*config.Config) error) {
	conf, err := config.NewFromUserConfigDir()
	if err != nil {
		log.Fatal(err)
	}

	if err := cb(conf); err != nil {
		log.Fatal(err)
	}
}

func recompute(conf *config.Config) error {
	b, err := back.New(conf.SQLDriver, conf.SQLDSN)
	if err != nil {
		return err
	}

	return b.Recompute()
}

func help() string {
	return fmt.Sprintf(`
Moneyball keeps track of the office table-tennis ladder and its ratings.

Usage: %[1]s COMMAND [ARGS…]

COMMANDS
    dev:fixtures create default data for quick testing during development
    help         display this help
    migrate      upgrade the database schema to the current version
    recompute    rebuild the whole rating history from the match ledger
    serve        run the consistency-check dæmon
    version      display the current version
`,
		os.Args[0],
	)
}
