package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/webcapsule/webcapsule/internal/config"
	"github.com/webcapsule/webcapsule/internal/logger"
)

func main() {
	flags := parseFlags()

	if flags.Mode != "onetime" && flags.Mode != "automated" {
		log.Fatalf("[FATAL] invalid -mode %q (expected onetime or automated)", flags.Mode)
	}

	cfg, err := config.LoadGlobalConfig(flags.ConfigFile)
	if err != nil {
		log.Fatalf("[FATAL] could not load config: %v", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	zLogger, err := logger.New(cfg.LogConfig)
	if err != nil {
		log.Fatalf("[FATAL] could not initialize logger: %v", err)
	}
	zLogger.Info().Str("mode", flags.Mode).Msg("webcapsule starting")

	app, err := newApplication(cfg, zLogger)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Failed to build application")
	}

	if err := app.start(); err != nil {
		zLogger.Fatal().Err(err).Msg("Failed to start application")
	}
	defer app.shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch flags.Mode {
	case "onetime":
		urls := append([]string{}, cfg.CaptureConfig.AutoCaptureURLs...)
		urls = append(urls, flags.URLs...)
		if len(urls) == 0 {
			zLogger.Fatal().Msg("No URLs to capture: pass them as arguments or configure auto_capture_urls")
		}
		app.capturePages(ctx, urls)
	case "automated":
		app.runAutomated(ctx)
	}

	zLogger.Info().Msg("webcapsule finished")
}
