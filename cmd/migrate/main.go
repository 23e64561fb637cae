package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/askservice/leadmarket-backend/pkg/config"
	"github.com/askservice/leadmarket-backend/pkg/db"
	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/migrate"
)

const usage = "migration command: up|down|status|to|create|validate"

func main() {
	cmd := flag.String("cmd", "up", usage)
	dir := flag.String("dir", "", "migrations directory (defaults to the embedded set; create uses "+migrate.DefaultDir+")")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	_ = godotenv.Load()

	switch *cmd {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name)
		exitOn(err, "create migration")
		fmt.Println("created migration:", path)
		return
	case "validate":
		exitOn(migrate.ValidateFS(migrate.Source(*dir)), "validate migrations")
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	exitOn(err, "load config")
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOn(err, "connect database")
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	exitOn(err, "unwrap sql database")
	runner, err := migrate.NewRunner(sqlDB, migrate.Source(*dir))
	exitOn(err, "build migration runner")

	switch *cmd {
	case "up":
		applied, err := runner.Up(ctx)
		exitOn(err, "goose up")
		logg.Info(logg.WithField(ctx, "applied", applied), "migrate.up_complete")
	case "down":
		exitOn(runner.Down(ctx), "goose down")
		logg.Info(ctx, "migrate.down_complete")
	case "status":
		statuses, err := runner.Status(ctx)
		exitOn(err, "goose status")
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
		for _, st := range statuses {
			applied := "-"
			if !st.AppliedAt.IsZero() {
				applied = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, st.Source.Path)
		}
		w.Flush()
	case "to":
		if *version == "" {
			exitOn(fmt.Errorf("missing -version"), "goose to")
		}
		exitOn(runner.To(ctx, *version), "goose to")
		logg.Info(logg.WithField(ctx, "version", *version), "migrate.to_complete")
	default:
		fmt.Fprintf(os.Stderr, "unknown -cmd %q (%s)\n", *cmd, usage)
		os.Exit(2)
	}
}

func exitOn(err error, step string) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	os.Exit(1)
}
