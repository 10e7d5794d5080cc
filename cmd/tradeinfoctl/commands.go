package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"TradeInfo/internal/di"
	"TradeInfo/internal/domain/repository"
	"TradeInfo/internal/usecase"
	"TradeInfo/pkg/config"
	applogger "TradeInfo/pkg/logger"
)

// storeFlags are shared by every command that opens the configured storage.
type storeFlags struct {
	config  string
	verbose bool
}

func (s *storeFlags) register(f *flag.FlagSet) {
	f.StringVar(&s.config, "config", "", "Path to the YAML config file. Defaults and environment overrides apply when empty.")
	f.BoolVar(&s.verbose, "v", false, "Log persister activity to stderr.")
}

func (s *storeFlags) open() (*config.Config, repository.KVStore, *usecase.Persister, error) {
	cfg, err := config.LoadWithEnv(s.config)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	kv, err := di.ProvideKVStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	log := applogger.Nop()
	if s.verbose {
		if l, err := applogger.New(&applogger.Config{Level: "debug", Format: "console", Output: "stderr"}); err == nil {
			log = l
		}
	}
	p := usecase.NewPersister(kv,
		usecase.WithStorageKey(cfg.Storage.Key),
		usecase.WithPersistTimeout(cfg.Storage.Timeout),
		usecase.WithPersisterLogger(log),
	)
	return cfg, kv, p, nil
}

func fail(format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}

// --- showCmd ---

type showCmd struct {
	storeFlags
	raw bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "prints the stored document" }
func (*showCmd) Usage() string {
	return `tradeinfoctl show [-config <file>] [-raw]

Prints the stored document upgraded to the current schema, or the stored bytes as-is with -raw.
`
}
func (c *showCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.BoolVar(&c.raw, "raw", false, "Print the stored envelope without migrating it.")
}

func (c *showCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, kv, p, err := c.open()
	if err != nil {
		return fail("%v", err)
	}
	defer kv.Close()

	if c.raw {
		b, ok, err := kv.Get(ctx, cfg.Storage.Key)
		if err != nil {
			return fail("read %s: %v", cfg.Storage.Key, err)
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "No document stored under %s\n", cfg.Storage.Key)
			return subcommands.ExitFailure
		}
		fmt.Println(string(b))
		return subcommands.ExitSuccess
	}

	out, err := json.MarshalIndent(p.Load(ctx), "", "  ")
	if err != nil {
		return fail("encode document: %v", err)
	}
	fmt.Println(string(out))
	return subcommands.ExitSuccess
}

// --- migrateCmd ---

type migrateCmd struct {
	storeFlags
	dryRun bool
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "rewrites the stored document at the current schema version" }
func (*migrateCmd) Usage() string {
	return `tradeinfoctl migrate [-config <file>] [-dry-run]

Loads the stored document, upgrades and repairs it, then writes it back at the current version.
`
}
func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.BoolVar(&c.dryRun, "dry-run", false, "Report the migration steps without writing.")
}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, kv, p, err := c.open()
	if err != nil {
		return fail("%v", err)
	}
	defer kv.Close()

	b, ok, err := kv.Get(ctx, cfg.Storage.Key)
	if err != nil {
		return fail("read %s: %v", cfg.Storage.Key, err)
	}
	if !ok {
		fmt.Printf("No document stored under %s, nothing to migrate.\n", cfg.Storage.Key)
		return subcommands.ExitSuccess
	}
	res, err := usecase.DecodeStored(b)
	if err != nil {
		return fail("%v", err)
	}
	fmt.Printf("stored version %d, shape %s, steps: %s\n", res.Version, res.Shape, strings.Join(res.Applied, ", "))
	if c.dryRun {
		return subcommands.ExitSuccess
	}
	if err := p.Write(ctx, res.Document); err != nil {
		return fail("write: %v", err)
	}
	fmt.Printf("Document under %s rewritten with %d categories.\n", cfg.Storage.Key, len(res.Document.Categories))
	return subcommands.ExitSuccess
}

// --- exportCmd ---

type exportCmd struct {
	storeFlags
	out string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "writes the stored document as a current-version envelope" }
func (*exportCmd) Usage() string {
	return `tradeinfoctl export [-config <file>] [-out <file>]

Writes the migrated document in the persisted envelope format to a file or stdout.
`
}
func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.StringVar(&c.out, "out", "", "Destination file. Stdout when empty.")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, kv, p, err := c.open()
	if err != nil {
		return fail("%v", err)
	}
	defer kv.Close()

	b, err := usecase.EncodeDocument(p.Load(ctx))
	if err != nil {
		return fail("%v", err)
	}
	if c.out == "" {
		fmt.Println(string(b))
		return subcommands.ExitSuccess
	}
	if err := os.WriteFile(c.out, b, 0o644); err != nil {
		return fail("write %s: %v", c.out, err)
	}
	fmt.Printf("Exported document to %s\n", c.out)
	return subcommands.ExitSuccess
}

// --- importCmd ---

type importCmd struct {
	storeFlags
	in string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "replaces the stored document with an exported envelope" }
func (*importCmd) Usage() string {
	return `tradeinfoctl import -in <file> [-config <file>]

Reads an envelope of any known version (use - for stdin), migrates it, and stores it at the current version.
`
}
func (c *importCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.StringVar(&c.in, "in", "", "Envelope file to import, or - for stdin.")
}

func (c *importCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.in == "" {
		fmt.Fprintln(os.Stderr, "Error: -in flag is required.")
		return subcommands.ExitUsageError
	}
	raw, err := readInput(c.in)
	if err != nil {
		return fail("%v", err)
	}
	res, err := usecase.DecodeStored(raw)
	if err != nil {
		return fail("%v", err)
	}

	cfg, kv, p, err := c.open()
	if err != nil {
		return fail("%v", err)
	}
	defer kv.Close()

	if err := p.Write(ctx, res.Document); err != nil {
		return fail("write: %v", err)
	}
	fmt.Printf("Imported version %d document into %s (%d categories).\n", res.Version, cfg.Storage.Key, len(res.Document.Categories))
	return subcommands.ExitSuccess
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("input file %s does not exist", path)
	}
	return b, err
}
