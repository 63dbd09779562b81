// Package main is the entry point for the social auto-posting engine: the
// cron scheduler plus the admin API in one process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/dealwire/social-engine/internal/app"
)

// version can be set at build time via -ldflags
var version = "dev"

func main() {
	var configPath string
	var runOnce bool
	flag.StringVar(&configPath, "config", "config.yml", "Path to configuration file")
	flag.BoolVar(&runOnce, "once", false, "Run a single manual cycle and exit")
	flag.Parse()

	// Optional .env for local development; ignored when absent.
	_ = godotenv.Load()

	ctx := context.Background()

	application, err := app.New(ctx, app.Options{
		ConfigPath:    configPath,
		Version:       version,
		WithScheduler: !runOnce,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := application.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to close application: %v\n", closeErr)
		}
	}()

	if runOnce {
		if err := application.RunCycleOnce(ctx); err != nil {
			application.Logger().Error("One-shot cycle failed")
			os.Exit(1)
		}
		return
	}

	if err := application.Run(ctx); err != nil {
		application.Logger().Error("Application error")
		os.Exit(1)
	}
}
