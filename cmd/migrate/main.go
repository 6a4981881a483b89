package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/cnstrctnetwork/cnstrct/internal/config"
	"github.com/cnstrctnetwork/cnstrct/internal/database"
	"github.com/cnstrctnetwork/cnstrct/internal/migrate"
)

func main() {
	var (
		steps = flag.IntP("steps", "n", 1, "number of migrations to roll back with down")
		dir   = flag.StringP("dir", "d", "", "read migrations from this directory instead of the built-in set")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: migrate [flags] up|down|status|verify\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *dir == "" {
		*dir = cfg.Migrations.Dir
	}

	fsys := migrate.Embedded()
	if *dir != "" {
		fsys = os.DirFS(*dir)
	}

	migrations, err := migrate.Load(fsys)
	if err != nil {
		slog.Error("failed to load migrations", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := run(context.Background(), migrate.NewRunner(db, migrations), flag.Arg(0), *steps); err != nil {
		slog.Error("migration command failed", "command", flag.Arg(0), "error", err)
		db.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, runner *migrate.Runner, command string, steps int) error {
	switch command {
	case "up":
		applied, err := runner.Up(ctx)
		for _, m := range applied {
			slog.Info("applied migration", "migration", m.Label())
		}

		if err == nil && len(applied) == 0 {
			slog.Info("schema is up to date")
		}

		return err
	case "down":
		reverted, err := runner.Down(ctx, steps)
		for _, m := range reverted {
			slog.Info("rolled back migration", "migration", m.Label())
		}

		return err
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")

		for _, s := range statuses {
			applied := "pending"
			if s.AppliedAt != nil {
				applied = s.AppliedAt.Format("2006-01-02 15:04:05")
			}

			fmt.Fprintf(tw, "%04d\t%s\t%s\n", s.Version, s.Name, applied)
		}

		return tw.Flush()
	case "verify":
		return runner.Verify(ctx)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
