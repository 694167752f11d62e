package main

// Run attempt log migrations:
//   go run ./cmd/migrate            # up
//   go run ./cmd/migrate down       # revert the latest migration
//   go run ./cmd/migrate version

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"face-auth-backend/internal/shared/config"
	"face-auth-backend/internal/shared/storage/db"
	"face-auth-backend/internal/shared/telemetry"
)

func main() {
	defer telemetry.Sync()
	if err := run(context.Background(), os.Args[1:]); err != nil {
		telemetry.L().Error("migrate failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	action := "up"
	if len(args) > 0 {
		action = args[0]
	}
	switch action {
	case "up", "down", "version":
	default:
		return fmt.Errorf("unknown action %q (want up, down or version)", action)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.DefaultCLIOptions().Merge(db.Options(cfg.DBPool)))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer sqlDB.Close()

	switch action {
	case "down":
		return db.RollbackMigration(ctx, sqlDB)
	case "version":
		v, err := db.MigrationVersion(ctx, sqlDB)
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	default:
		return db.RunMigrations(ctx, sqlDB)
	}
}
