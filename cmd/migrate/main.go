// Command migrate applies the SQL schema under db/migrations and
// bootstraps the Neo4j fulltext indexes, grounded on the teacher's
// cmd/migration/main.go (sql-migrate against a migrations directory, plus
// an auto-migrate safety net and a separate graph bootstrap step).
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"

	"discogsography/internal/config"
	"discogsography/internal/dbpool"
	"discogsography/internal/graphdriver"
	"discogsography/internal/models"
	"discogsography/pkg/logger"
)

const migrationPath = "db/migrations"

func main() {
	log := logger.New("migrate").Function("main")

	cfg, err := config.New()
	if err != nil {
		log.Er("failed to initialize config", err)
		os.Exit(1)
	}

	direction := migrate.Up
	steps := 1
	if len(os.Args) > 1 && os.Args[1] == "down" {
		direction = migrate.Down
		if len(os.Args) > 2 {
			steps, err = strconv.Atoi(os.Args[2])
			if err != nil {
				log.Er("failed to parse step count", err)
				os.Exit(1)
			}
		}
	}

	if err := runSQLMigrations(cfg, log, direction, steps); err != nil {
		log.Er("failed to run sql migrations", err)
		os.Exit(1)
	}

	if direction == migrate.Down {
		log.Info("migrations rolled back")
		return
	}

	if err := autoMigrate(cfg, log); err != nil {
		log.Er("failed to auto-migrate", err)
		os.Exit(1)
	}

	if err := bootstrapGraph(cfg, log); err != nil {
		log.Er("failed to bootstrap graph indexes", err)
		os.Exit(1)
	}

	log.Info("migrations complete")
}

// runSQLMigrations applies the hand-written SQL under db/migrations, the
// source of truth for table shape (user_collections/user_wantlists,
// catalog tables, sync_history).
func runSQLMigrations(cfg config.Config, log logger.Logger, direction migrate.MigrationDirection, steps int) error {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDatabase)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return log.Err("failed to open database for migrations", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Er("failed to close migration db handle", err)
		}
	}()

	source := &migrate.FileMigrationSource{Dir: migrationPath}

	for i := 0; i < steps; i++ {
		n, err := migrate.Exec(db, "postgres", source, direction)
		if err != nil {
			return log.Err("failed to execute migrations", err)
		}
		if n == 0 {
			log.Info("no migrations to apply")
			break
		}
		log.Info("applied migrations", "count", n)
		if direction == migrate.Up {
			break
		}
	}

	return nil
}

// autoMigrate is a safety net: GORM reconciles any model field that
// drifted from the hand-written SQL (new optional column, new index)
// without requiring a hand-written migration for every change.
func autoMigrate(cfg config.Config, log logger.Logger) error {
	pool, err := dbpool.New(cfg)
	if err != nil {
		return log.Err("failed to open db pool for auto-migrate", err)
	}
	defer func() {
		if err := pool.Close(); err != nil {
			log.Er("failed to close db pool", err)
		}
	}()

	return pool.DB.AutoMigrate(
		&models.User{},
		&models.OAuthToken{},
		&models.AppConfig{},
		&models.SyncHistory{},
		&models.UserCollectionItem{},
		&models.UserWantlistItem{},
		&models.ArtistRecord{},
		&models.LabelRecord{},
		&models.MasterRecord{},
		&models.ReleaseRecord{},
	)
}

func bootstrapGraph(cfg config.Config, log logger.Logger) error {
	graph, err := graphdriver.New(cfg)
	if err != nil {
		return log.Err("failed to connect to graph database", err)
	}
	defer func() {
		if err := graph.Close(context.Background()); err != nil {
			log.Er("failed to close graph driver", err)
		}
	}()

	return graphdriver.Bootstrap(context.Background(), graph)
}
