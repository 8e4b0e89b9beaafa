package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/richxcame/gigmarket/pkg/config"
	"github.com/richxcame/gigmarket/pkg/database"
	"github.com/richxcame/gigmarket/pkg/logger"
)

func main() {
	down := flag.Int("down", 0, "number of migrations to roll back instead of applying")
	path := flag.String("path", "", "migrations directory (defaults to DB_MIGRATIONS_PATH)")
	flag.Parse()

	cfg, err := config.Load("migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Server.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *path != "" {
		cfg.Database.MigrationsPath = *path
	}

	if *down > 0 {
		if err := database.Rollback(&cfg.Database, *down); err != nil {
			logger.Fatal("Rollback failed", zap.Error(err))
		}
		logger.Info("Rolled back migrations", zap.Int("steps", *down))
		return
	}

	if err := database.Migrate(&cfg.Database); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}
}
