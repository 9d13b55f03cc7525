// Package main applies or reports the embedded database migrations.
//
// Usage:
//
//	migrate            apply every pending migration
//	migrate -status    list migrations and whether they are applied
//	migrate -down 1    roll back the latest applied migration
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/internhub/internhub/config"
	"github.com/internhub/internhub/internal/infrastructure/persistence/postgres"
	"github.com/internhub/internhub/pkg/logger"
)

func main() {
	status := flag.Bool("status", false, "print migration status and exit")
	down := flag.Int("down", 0, "roll back the latest N applied migrations")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := run(ctx, *status, *down); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, status bool, down int) error {
	if down < 0 {
		return errors.New("-down must not be negative")
	}

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}
	log := logger.New(logger.Options{Format: logger.FormatText, Service: "internhub-migrate"})

	db, err := postgres.OpenSQL(ctx, dbCfg.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator := postgres.NewSQLMigrator(db)

	switch {
	case status:
		migrations, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED AT")
		for _, m := range migrations {
			applied := "pending"
			if m.IsApplied {
				applied = m.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", m.Version, m.Name, applied)
		}
		return w.Flush()

	case down > 0:
		reverted, err := migrator.Down(ctx, down)
		if err != nil {
			return err
		}
		log.Info("migrations rolled back", "versions", reverted)
		return nil

	default:
		applied, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			log.Info("schema is up to date")
			return nil
		}
		log.Info("migrations applied", "versions", applied)
		return nil
	}
}
