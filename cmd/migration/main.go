package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"github.com/riskibarqy/soccer-registry/internal/app"
	"github.com/riskibarqy/soccer-registry/internal/config"
	"github.com/riskibarqy/soccer-registry/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/soccer-registry/internal/platform/logging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Default().Warn("load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(logging.Default(), "load config", err)
	}
	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel).Named("migration")
	defer func() { _ = logger.Sync() }()

	if cfg.StoreDriver != config.StoreDriverPostgres {
		fatal(logger, "migrations need a postgres store", fmt.Errorf("STORE_DRIVER=%s", cfg.StoreDriver))
	}

	source := cfg.MigrationsDir
	if source == "" {
		source = "embedded"
	}
	m, err := postgres.NewMigrator(app.NormalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary), cfg.MigrationsDir)
	if err != nil {
		fatal(logger, "create migrator", err)
	}
	defer closeMigrator(logger, m)

	switch cmd := strings.ToLower(strings.TrimSpace(os.Args[1])); cmd {
	case "up":
		handleMigrationErr(logger, m.Up())
		logger.Info("migrations applied", "source", source)
	case "down":
		steps, err := parseSteps(os.Args[2:])
		if err != nil {
			fatal(logger, "parse steps", err)
		}
		handleMigrationErr(logger, m.Steps(-steps))
		logger.Info("rolled back migrations", "steps", steps)
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("version: none")
			fmt.Println("dirty: false")
			return
		}
		if err != nil {
			fatal(logger, "read version", err)
		}
		fmt.Printf("version: %d\n", version)
		fmt.Printf("dirty: %t\n", dirty)
	case "force":
		if len(os.Args) < 3 {
			fatal(logger, "force requires a version argument", nil)
		}
		version, err := parseVersion(os.Args[2])
		if err != nil {
			fatal(logger, "parse version", err)
		}
		if err := m.Force(version); err != nil {
			fatal(logger, "force version", err)
		}
		logger.Info("forced version", "version", version)
	case "goto":
		if len(os.Args) < 3 {
			fatal(logger, "goto requires a target version argument", nil)
		}
		target, err := parseTarget(os.Args[2])
		if err != nil {
			fatal(logger, "parse target", err)
		}
		handleMigrationErr(logger, m.Migrate(target))
		logger.Info("migrated", "version", target)
	default:
		printUsage()
		os.Exit(2)
	}
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}

	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid down steps %q: %w", args[0], err)
	}
	if steps <= 0 {
		return 0, fmt.Errorf("down steps must be > 0")
	}
	return steps, nil
}

func parseVersion(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("version must be >= 0")
	}
	return value, nil
}

func parseTarget(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid target version %q: %w", raw, err)
	}
	return uint(value), nil
}

func handleMigrationErr(logger *logging.Logger, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migration changes")
		return
	}
	fatal(logger, "migrate", err)
}

func closeMigrator(logger *logging.Logger, m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logger.Warn("close migration source", "error", srcErr)
	}
	if dbErr != nil {
		logger.Warn("close migration db", "error", dbErr)
	}
}

func fatal(logger *logging.Logger, msg string, err error) {
	if err != nil {
		logger.Error(msg, "error", err)
	} else {
		logger.Error(msg)
	}
	_ = logger.Sync()
	os.Exit(1)
}

func printUsage() {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "usage: %s <up|down|version|force|goto> [args]\n", name)
	fmt.Fprintln(os.Stderr, "migrations come from MIGRATIONS_DIR, or the copy embedded in the binary when unset")
	fmt.Fprintln(os.Stderr, "examples:")
	fmt.Fprintf(os.Stderr, "  %s up\n", name)
	fmt.Fprintf(os.Stderr, "  %s down 1\n", name)
	fmt.Fprintf(os.Stderr, "  %s version\n", name)
	fmt.Fprintf(os.Stderr, "  %s force 2\n", name)
	fmt.Fprintf(os.Stderr, "  %s goto 1\n", name)
}
