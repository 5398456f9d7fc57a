package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"kakehashi/internal/config"
	"kakehashi/internal/repository/postgres"
	postgresCommunity "kakehashi/internal/repository/postgres/community"
	postgresConversation "kakehashi/internal/repository/postgres/conversation"
	"kakehashi/internal/seed"
	serviceCommunity "kakehashi/internal/service/community"

	"github.com/joho/godotenv"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed data")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run --drop-tables in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := postgres.DropTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := postgres.CreateSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	userRepo := postgres.NewUserRepository(repoConfig)
	postRepo := postgresCommunity.NewPostRepository(repoConfig)
	commentRepo := postgresCommunity.NewCommentRepository(repoConfig)
	upvoteRepo := postgresCommunity.NewUpvoteRepository(repoConfig)
	scenarioRepo := postgresConversation.NewScenarioRepository(repoConfig)

	// Seed through the service layer so posts carry real excerpts and
	// normalized tags.
	postService := serviceCommunity.NewPostService(postRepo, commentRepo, upvoteRepo, userRepo, logger)

	seeder := seed.New(userRepo, scenarioRepo, postRepo, postService, logger)

	log.Println("🎭 Seeding conversation scenarios...")
	if err := seeder.Scenarios(ctx); err != nil {
		log.Fatalf("Failed to seed scenarios: %v", err)
	}

	log.Println("📝 Seeding community users and posts...")
	if err := seeder.Community(ctx); err != nil {
		log.Fatalf("Failed to seed community data: %v", err)
	}

	log.Println("✅ Seeding complete")
}
