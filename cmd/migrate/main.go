package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/liquorledger/backend/internal/infrastructure/config"
	"github.com/liquorledger/backend/internal/infrastructure/logger"
	"github.com/liquorledger/backend/internal/infrastructure/migration"
	"github.com/liquorledger/backend/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

func main() {
	var (
		migrationsPath string
		logLevel       string
	)

	flag.StringVar(&migrationsPath, "path", "", "Read migrations from this directory instead of the embedded set")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(config.LogConfig{Level: logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Migration CLI started", zap.String("command", command))

	// create and list work on files only
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name>")
		}
		dir := migrationsPath
		if dir == "" {
			dir = defaultMigrationsPath
		}
		mf, err := migration.CreateMigration(dir, args[1])
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.Uint("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return

	case "list":
		var infos []migration.MigrationInfo
		if migrationsPath != "" {
			infos, err = migration.ListMigrations(os.DirFS(migrationsPath))
		} else {
			infos, err = migration.ListMigrations(migrations.FS)
		}
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		log.Info("Available migrations", zap.Int("count", len(infos)))
		for _, m := range infos {
			fmt.Printf("  %06d %s (down: %t)\n", m.Version, m.Name, m.HasDown)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Database.Driver != config.DriverPostgres {
		log.Fatal("SQL migrations target PostgreSQL; SQLite databases are migrated by the server on startup",
			zap.String("driver", cfg.Database.Driver))
	}

	m, closeDB := openMigrator(cfg, migrationsPath, log)
	defer closeDB()
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil {
			log.Fatal("Migration up failed", zap.Error(err))
		}

	case "down":
		if err := m.Down(); err != nil {
			log.Fatal("Migration down failed", zap.Error(err))
		}

	case "step":
		if len(args) < 2 {
			log.Fatal("Step count required. Usage: migrate step <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid step count", zap.String("value", args[1]))
		}
		if err := m.Steps(n); err != nil {
			log.Fatal("Migration step failed", zap.Error(err))
		}

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatal("Failed to get version", zap.Error(err))
		}
		if version == 0 {
			log.Info("No migrations applied")
		} else {
			log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		}

	case "force":
		if len(args) < 2 {
			log.Fatal("Version required. Usage: migrate force <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		if err := m.Force(version); err != nil {
			log.Fatal("Force version failed", zap.Error(err))
		}

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

// openMigrator uses the embedded migrations unless -path points at a directory
func openMigrator(cfg *config.Config, migrationsPath string, log *zap.Logger) (*migration.Migrator, func()) {
	if migrationsPath != "" {
		abs, err := filepath.Abs(migrationsPath)
		if err != nil {
			log.Fatal("Failed to resolve migrations path", zap.Error(err))
		}
		m, err := migration.NewFromPath(cfg.Database.DSN(), abs, log)
		if err != nil {
			log.Fatal("Failed to create migrator", zap.Error(err))
		}
		return m, func() {}
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}
	m, err := migration.New(db, migrations.FS, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	return m, func() { _ = db.Close() }
}

func printUsage() {
	fmt.Println(`Liquor ledger database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                Apply all pending migrations
  down              Roll back all migrations
  step <n>          Apply n migrations (positive=up, negative=down)
  version           Show current migration version
  force <version>   Force set migration version after a failed migration
  create <name>     Create a new migration file pair
  list              List available migrations

Flags:
  -path string      Read migrations from a directory instead of the embedded set
  -log-level string Log level: debug, info, warn, error (default: info)

Database settings come from config.toml or LIQUOR_DATABASE_* variables.`)
}
