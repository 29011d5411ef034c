package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hashicorp/go-multierror"

	"github.com/safing/ledgerbase/config"
	"github.com/safing/ledgerbase/info"
	"github.com/safing/ledgerbase/ledger"
	"github.com/safing/ledgerbase/log"
	"github.com/safing/ledgerbase/storage"

	_ "github.com/safing/ledgerbase/storage/badger"
	_ "github.com/safing/ledgerbase/storage/bbolt"
	_ "github.com/safing/ledgerbase/storage/leveldb"
	_ "github.com/safing/ledgerbase/storage/memory"
)

var (
	configPath  string
	showMetrics bool
)

// errUsage is returned for invalid invocations.
var errUsage = errors.New("invalid usage")

func init() {
	flag.StringVar(&configPath, "config", "", "path to the YAML configuration file")
	flag.BoolVar(&showMetrics, "metrics", false, "print storage metrics of the command in Prometheus format")
	flag.Usage = func() { printUsage(flag.CommandLine.Output()) }
}

func main() {
	info.Set("ledgerctl", "", "AGPLv3")
	flag.Parse()

	if info.PrintVersionIfRequested(os.Stdout) {
		return
	}
	if err := info.CheckVersion(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: %s\n", err)
		os.Exit(1)
	}

	log.SetLogLevel(log.ParseLevel(cfg.LogLevel))
	if err := log.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: failed to start logging: %s\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if showMetrics {
		cfg.Metrics = true
	}
	err = run(ctx, cfg, flag.Args(), os.Stdout)
	cancel()
	log.Shutdown()

	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "ledgerctl: %s\n\n", err)
		printUsage(os.Stderr)
		os.Exit(2)
	case err != nil:
		fmt.Fprintf(os.Stderr, "ledgerctl: %s\n", err)
		os.Exit(1)
	}
}

// run executes a single command against the ledger described by cfg. If
// metrics are enabled, the storage metrics of the command are printed after it.
func run(ctx context.Context, cfg *config.Config, args []string, out io.Writer) (err error) {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	command, args := args[0], args[1:]

	if command == "version" {
		fmt.Fprintln(out, info.FullVersion())
		return nil
	}
	if !knownCommand(command) {
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
	if want := commandArgs[command]; len(args) != want {
		return fmt.Errorf("%w: %s takes %d argument(s), got %d", errUsage, command, want, len(args))
	}

	l, err := ledger.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if exporter, ok := l.Storage().(interface{ WritePrometheus(io.Writer) }); ok {
			exporter.WritePrometheus(out)
		}
		if closeErr := l.Close(); closeErr != nil {
			err = multierror.Append(err, fmt.Errorf("failed to close ledger: %w", closeErr)).ErrorOrNil()
		}
	}()
	log.Debugf("ledgerctl: opened %s storage %q at %s", cfg.StorageType, cfg.Name, cfg.Location)

	switch command {
	case "exists":
		exists, err := l.Exists(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, exists)

	case "create":
		return l.Create(ctx, args[0], args[1])

	case "read":
		r, err := l.Read(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, r.Value)

	case "update":
		return l.Update(ctx, args[0], args[1])

	case "delete":
		return l.Delete(ctx, args[0])

	case "list":
		blob, err := l.QueryAll(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(blob))

	case "maintain":
		return l.Maintain(ctx)
	}

	return nil
}

var commandArgs = map[string]int{
	"exists":   1,
	"create":   2,
	"read":     1,
	"update":   2,
	"delete":   1,
	"list":     0,
	"maintain": 0,
}

func knownCommand(command string) bool {
	_, ok := commandArgs[command]
	return ok
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: ledgerctl [flags] <command> [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  exists <key>          report whether a record exists")
	fmt.Fprintln(w, "  create <key> <value>  create a new record")
	fmt.Fprintln(w, "  read <key>            print the value of a record")
	fmt.Fprintln(w, "  update <key> <value>  replace the value of a record")
	fmt.Fprintln(w, "  delete <key>          remove a record")
	fmt.Fprintln(w, "  list                  print all records in the scan range as JSON")
	fmt.Fprintln(w, "  maintain              run storage housekeeping (compaction, garbage collection)")
	fmt.Fprintln(w, "  version               print version information")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Storage types: %s\n", strings.Join(storage.Types(), ", "))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flags:")
	flag.CommandLine.SetOutput(w)
	flag.PrintDefaults()
}
