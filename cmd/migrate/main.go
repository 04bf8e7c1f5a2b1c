package main

// Run database migrations:
//   go run ./cmd/migrate [up|down|version]

import (
	"context"
	"os"

	"visioncloud-backend/internal/shared/config"
	"visioncloud-backend/internal/shared/storage/db"
	"visioncloud-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	if cfg.DatabaseURL == "" {
		telemetry.Error("migrate.config", map[string]any{"error": "DATABASE_URL is required"})
		os.Exit(1)
	}

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch cmd {
	case "up":
		err = db.RunMigrations(ctx, sqlDB)
	case "down":
		err = db.RollbackMigration(ctx, sqlDB)
	case "version":
		var v int64
		if v, err = db.MigrationVersion(ctx, sqlDB); err == nil {
			telemetry.Info("migrate.version", map[string]any{"version": v})
		}
	default:
		telemetry.Error("migrate.unknown_command", map[string]any{"command": cmd, "want": "up, down or version"})
		os.Exit(2)
	}
	if err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": cmd, "error": err.Error()})
		os.Exit(1)
	}
}
