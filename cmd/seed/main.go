package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	products "github.com/angelmondragon/flashback-frames-backend/internal/products"
	"github.com/angelmondragon/flashback-frames-backend/internal/users"
	"github.com/angelmondragon/flashback-frames-backend/pkg/config"
	"github.com/angelmondragon/flashback-frames-backend/pkg/db"
	"github.com/angelmondragon/flashback-frames-backend/pkg/logger"
	"github.com/angelmondragon/flashback-frames-backend/pkg/security"
)

const envSeedAdminPassword = "FLASHBACK_SEED_ADMIN_PASSWORD"

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	email := flag.String("admin-email", "admin@flashback.com", "admin login email")
	name := flag.String("admin-name", "System Admin", "admin display name")
	skipCatalog := flag.Bool("skip-catalog", false, "only ensure the admin user")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	password := os.Getenv(envSeedAdminPassword)
	generated := password == ""
	if generated {
		password, err = security.GenerateTempPassword(16)
		requireResource(ctx, logg, "admin password", err)
	}

	s := &seeder{
		users:    users.NewRepository(dbClient.DB()),
		products: products.NewRepository(dbClient.DB()),
		password: cfg.Password,
		logg:     logg,
	}

	if _, err := s.ensureAdmin(ctx, adminAccount{Email: *email, Name: *name, Password: password}); err != nil {
		logg.Error(ctx, "failed to seed admin", err)
		os.Exit(1)
	}
	if generated {
		fmt.Printf("admin %s password: %s\n", users.NormalizeEmail(*email), password)
	}

	if *skipCatalog {
		return
	}
	if _, err := s.seedCatalog(ctx); err != nil {
		logg.Error(ctx, "failed to seed catalog", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
