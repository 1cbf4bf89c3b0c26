// Command theokb is a CLI/REPL-style harness over a Theo2012 knowledge
// base, grounded on gholt-valuestore's brimstore-valuesstore/main.go
// harness idiom (a flags struct plus github.com/jessevdk/go-flags,
// positional subcommand dispatch, explicit exit codes).
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gholt/theo2012/internal/config"
	"github.com/gholt/theo2012/storeerr"
	"github.com/gholt/theo2012/storemap"
	"github.com/gholt/theo2012/theo2"
)

type optsStruct struct {
	DB       string `long:"db" description:"storage location ('/' for in-memory)" default:"/"`
	ReadOnly bool   `long:"read-only" description:"open the KB read-only"`
	Extended bool   `long:"extended-stats" description:"print extended statistics with the stats subcommand"`
	Positional struct {
		Args []string `name:"args" description:"subcommand and arguments"`
	} `positional-args:"yes"`
}

var opts optsStruct
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		args = append(args, "-h")
	}
	if _, err := parser.ParseArgs(args); err != nil {
		os.Exit(1)
	}
	if len(opts.Positional.Args) == 0 {
		fmt.Fprintln(os.Stderr, "a subcommand is required: get, add, delete, create-entity, create-slot, stats")
		os.Exit(1)
	}
	sm, err := storemap.Open(opts.DB, opts.ReadOnly)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	store, err := theo2.Open(sm, config.New(config.OptReadOnly(opts.ReadOnly)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer store.Close()

	cmd, rest := opts.Positional.Args[0], opts.Positional.Args[1:]
	var runErr error
	switch cmd {
	case "get":
		runErr = cmdGet(store, rest)
	case "add":
		runErr = cmdAdd(store, rest)
	case "delete":
		runErr = cmdDelete(store, rest)
	case "create-entity":
		runErr = cmdCreateEntity(store, rest)
	case "create-slot":
		runErr = cmdCreateSlot(store, rest)
	case "stats":
		runErr = cmdStats(store, rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", cmd)
		os.Exit(1)
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		if se, ok := runErr.(*storeerr.StoreError); ok && (se.Kind == storeerr.Usage || se.Kind == storeerr.NotFound) {
			os.Exit(1)
		}
		os.Exit(2)
	}
	if err := store.Flush(true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
