package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/krshsl/rentdesk/repository"
	"github.com/krshsl/rentdesk/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:          "rentdesk",
	Short:        "Car rental back-office API",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate, seed and serve the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := services.LoadConfig()
		db, repo, err := openRepository(cfg)
		if err != nil {
			return err
		}
		defer repository.Close(db)
		return migrate(repo)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the admin account and reference data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := services.LoadConfig()
		db, repo, err := openRepository(cfg)
		if err != nil {
			return err
		}
		defer repository.Close(db)
		if err := migrate(repo); err != nil {
			return err
		}
		return seed(cmd.Context(), cfg, repo)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	// Setup structured logging with JSON format
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := services.LoadConfig()
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}

	db, repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repository.Close(db)

	if err := migrate(repo); err != nil {
		return err
	}
	if cfg.Database.Seed {
		if err := seed(cmd.Context(), cfg, repo); err != nil {
			slog.Error("Failed to seed database", "error", err)
		}
	}

	server := services.NewServer(cfg, repo)
	if err := server.InitializeServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	server.Start()
	return nil
}

func openRepository(cfg *services.Config) (*gorm.DB, *repository.GORMRepository, error) {
	db, err := repository.Open(repository.Options{
		Driver:       cfg.Database.Driver,
		URL:          cfg.Database.URL,
		LogLevel:     cfg.Database.LogLevel,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, repository.NewGORMRepository(db), nil
}

func migrate(repo *repository.GORMRepository) error {
	start := time.Now()
	if err := repo.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database migrations completed", "duration", time.Since(start).String())
	return nil
}

func seed(ctx context.Context, cfg *services.Config, repo *repository.GORMRepository) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return services.NewDatabaseSeeder(repo, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword).SeedDatabase(ctx)
}
