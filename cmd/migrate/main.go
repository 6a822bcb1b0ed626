package main

import (
	"flag"
	"log"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-ranking-api/migrations"
	"github.com/noah-isme/lms-ranking-api/pkg/config"
	"github.com/noah-isme/lms-ranking-api/pkg/database"
	"github.com/noah-isme/lms-ranking-api/pkg/logger"
)

func main() {
	command := flag.String("command", "up", "goose command: up, down, status, version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		logr.Fatal("failed to set goose dialect", zap.Error(err))
	}

	if err := goose.Run(*command, db.DB, "."); err != nil {
		logr.Fatal("migration failed", zap.String("command", *command), zap.Error(err))
	}
	logr.Info("migrations applied", zap.String("command", *command))
}
