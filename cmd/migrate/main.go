package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"ping_relay/migrations"
)

func main() {
	dbPath := flag.String("db", envOrDefault("DATABASE_PATH", "./data/bot.db"), "path to sqlite database")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: migrate [-db path] <command>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  up          Apply all pending migrations")
		fmt.Fprintln(os.Stderr, "  up-one      Apply the next migration")
		fmt.Fprintln(os.Stderr, "  down        Roll back the latest migration")
		fmt.Fprintln(os.Stderr, "  status      List migrations and whether they are applied")
		fmt.Fprintln(os.Stderr, "  version     Print the schema version")
		fmt.Fprintln(os.Stderr, "  reset       Roll back every migration")
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Error("open database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	provider, err := migrations.NewProvider(db)
	if err != nil {
		log.Error("create provider", "error", err)
		os.Exit(1)
	}

	cmd := args[0]
	if err := run(context.Background(), provider, cmd, log); err != nil {
		log.Error(cmd, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, p *goose.Provider, cmd string, log *slog.Logger) error {
	switch cmd {
	case "up":
		results, err := p.Up(ctx)
		logResults(log, results)
		return err
	case "up-one":
		res, err := p.UpByOne(ctx)
		if errors.Is(err, goose.ErrNoNextVersion) {
			log.Info("no pending migrations")
			return nil
		}
		logResults(log, []*goose.MigrationResult{res})
		return err
	case "down":
		res, err := p.Down(ctx)
		if errors.Is(err, goose.ErrNoNextVersion) {
			log.Info("nothing to roll back")
			return nil
		}
		logResults(log, []*goose.MigrationResult{res})
		return err
	case "reset":
		results, err := p.DownTo(ctx, 0)
		logResults(log, results)
		return err
	case "status":
		statuses, err := p.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			log.Info("migration", "version", s.Source.Version, "path", s.Source.Path,
				"state", s.State, "applied_at", s.AppliedAt)
		}
		return nil
	case "version":
		v, err := p.GetDBVersion(ctx)
		if err != nil {
			return err
		}
		log.Info("schema version", "version", v)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func logResults(log *slog.Logger, results []*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		log.Info("migration applied", "version", r.Source.Version, "direction", r.Direction, "duration", r.Duration)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
