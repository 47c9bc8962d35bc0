package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"goldshop/internal/config"
	"goldshop/internal/database"
	"goldshop/internal/logger"
	"goldshop/internal/repository"
	"goldshop/internal/service"

	"go.uber.org/zap"
)

// seed-admin creates the super user from SUPERUSER_USERNAME and
// SUPERUSER_PASSWORD. Running it again is a no-op.
func main() {
	migrate := flag.Bool("migrate", true, "apply pending migrations first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dbService, err := database.New(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbService.Close()

	if *migrate {
		if err := database.RunMigrations(dbService.DB(), log); err != nil {
			log.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	users := service.NewUserService(repository.NewStore(dbService.DB()), cfg.JWT, cfg.Auth, log)

	user, created, err := users.SeedAdmin(ctx, cfg.Auth.SuperuserUsername, cfg.Auth.SuperuserPassword)
	if err != nil {
		log.Fatal("Failed to create superuser", zap.Error(err))
	}

	if !created {
		log.Info("Superuser already exists", zap.String("username", user.Username), zap.String("role", user.Role))
		return
	}
	log.Info("Superuser created", zap.String("user_id", user.ID.String()))
}
