package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

const serviceName = "migrate"

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

// offline commands only touch the migrations directory.
var offline = map[string]func(options) error{
	"create": func(o options) error {
		if o.name == "" {
			return errors.New("-name is required for create")
		}
		path, err := migrate.CreateSQLMigration(o.dir, o.name)
		if err == nil {
			fmt.Println("created", path)
		}
		return err
	},
	"validate": func(o options) error {
		if err := migrate.Validate(migrate.Source(o.dir)); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	},
}

var online = map[string]func(context.Context, *migrate.Runner, options) error{
	"up": func(ctx context.Context, r *migrate.Runner, _ options) error {
		applied, err := r.Up(ctx)
		if err == nil {
			fmt.Printf("applied %d migration(s) %v\n", len(applied), applied)
		}
		return err
	},
	"down": func(ctx context.Context, r *migrate.Runner, _ options) error {
		v, err := r.Down(ctx)
		if err == nil {
			fmt.Println("rolled back", v)
		}
		return err
	},
	"status": printStatus,
	"version": func(ctx context.Context, r *migrate.Runner, o options) error {
		if o.version == "" {
			return errors.New("-version is required for version")
		}
		return r.To(ctx, o.version)
	},
}

func main() {
	var o options
	flag.StringVar(&o.cmd, "cmd", "up", "up|down|status|version|create|validate")
	flag.StringVar(&o.dir, "dir", migrate.DefaultDir, "migrations directory; the default uses the embedded set")
	flag.StringVar(&o.name, "name", "", "migration name (create)")
	flag.StringVar(&o.version, "version", "", "target YYYYMMDDHHMMSS (version)")
	flag.Parse()

	_ = godotenv.Load()
	logg := logger.New(logger.Options{ServiceName: serviceName})
	ctx := context.Background()

	if fn, ok := offline[o.cmd]; ok {
		exitOn(ctx, logg, fn(o))
		return
	}
	fn, ok := online[o.cmd]
	if !ok {
		exitOn(ctx, logg, fmt.Errorf("unknown -cmd %q", o.cmd))
	}

	cfg, err := config.Load()
	exitOn(ctx, logg, err)
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": o.cmd, "dir": o.dir})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOn(ctx, logg, err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	exitOn(ctx, logg, err)
	runner, err := migrate.NewRunner(sqlDB, migrate.Source(o.dir))
	exitOn(ctx, logg, err)

	if err := fn(ctx, runner, o); err != nil {
		_ = dbClient.Close()
		exitOn(ctx, logg, err)
	}
	logg.Info(ctx, "migrate.completed")
}

func printStatus(ctx context.Context, r *migrate.Runner, _ options) error {
	rows, err := r.Status(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, row := range rows {
		applied := "-"
		if !row.AppliedAt.IsZero() {
			applied = row.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", row.Source.Version, row.State, applied, row.Source.Path)
	}
	return tw.Flush()
}

func exitOn(ctx context.Context, logg *logger.Logger, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "migrate.failed", err)
	os.Exit(1)
}
