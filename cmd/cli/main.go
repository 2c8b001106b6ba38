package main

import (
	"os"
	"strings"

	"github.com/nimasrn/policy-desk/internal/config"
	"github.com/nimasrn/policy-desk/pkg/logger"
	"github.com/nimasrn/policy-desk/pkg/pg"
)

// usage: cli [up|down] [--env=.env] [--dir=./migrations]
func main() {
	err := config.Load(getEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dir := getMigrationPath(config.Get().MigrationsDir)
	pgConf := config.Get().PostgresWrite()

	switch command() {
	case "down":
		err = pg.Rollback(pgConf, dir)
	case "up":
		err = pg.Migrate(pgConf, dir)
	default:
		logger.Error("unknown command, expected up or down", "command", command())
		os.Exit(2)
	}
	if err != nil {
		logger.Error("migration: error running migrations", "error", err)
		os.Exit(1)
	}
}

func command() string {
	for _, v := range os.Args[1:] {
		if !strings.HasPrefix(v, "--") {
			return v
		}
	}
	return "up"
}

func getEnvPath() string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, "--env=") {
			path := strings.TrimPrefix(v, "--env=")
			if _, err := os.Stat(path); err != nil {
				logger.Error("failed to open the passed env file", "error", err)
				return ""
			}
			return path
		}
	}
	if _, err := os.Stat(".env"); err != nil {
		return ""
	}
	return ".env"
}

func getMigrationPath(fallback string) string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, "--dir=") {
			return strings.TrimPrefix(v, "--dir=")
		}
	}
	return fallback
}
