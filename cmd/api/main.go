// Package main runs the admin API without the cron scheduler. Useful when
// the scheduler runs in a separate deployment and the dashboard only needs
// read access plus manual triggers.
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
	flag.StringVar(&configPath, "config", "config.yml", "Path to configuration file")
	flag.Parse()

	_ = godotenv.Load()

	ctx := context.Background()

	application, err := app.New(ctx, app.Options{
		ConfigPath:    configPath,
		Version:       version,
		WithScheduler: false,
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

	if err := application.Run(ctx); err != nil {
		application.Logger().Error("Application error")
		os.Exit(1)
	}
}
