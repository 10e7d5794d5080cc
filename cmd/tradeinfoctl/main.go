// Command tradeinfoctl inspects and rewrites the persisted watchlist document
// without starting the server.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, "tradeinfoctl")
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&showCmd{}, "document")
	commander.Register(&migrateCmd{}, "document")
	commander.Register(&exportCmd{}, "document")
	commander.Register(&importCmd{}, "document")
	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
