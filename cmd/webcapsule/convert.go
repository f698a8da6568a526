package main

import (
	"time"

	"github.com/webcapsule/webcapsule/internal/bridge"
	"github.com/webcapsule/webcapsule/internal/capture"
	"github.com/webcapsule/webcapsule/internal/config"
	"github.com/webcapsule/webcapsule/internal/ratequeue"
	"github.com/webcapsule/webcapsule/internal/rslimiter"
	"github.com/webcapsule/webcapsule/internal/stability"
)

// The config file speaks in integer seconds and milliseconds; the packages
// speak time.Duration. These converters bridge the two.

func queueConfigFrom(cfg config.QueueConfig) ratequeue.ActionQueueConfig {
	return ratequeue.ActionQueueConfig{
		MinDelay: time.Duration(cfg.MinDelayMs) * time.Millisecond,
	}
}

func bridgeConfigFrom(cfg config.BridgeConfig) bridge.BridgeConfig {
	return bridge.BridgeConfig{
		ProbeTimeout:   time.Duration(cfg.ProbeTimeoutMs) * time.Millisecond,
		SettleDelay:    time.Duration(cfg.SettleDelayMs) * time.Millisecond,
		BackoffUnit:    time.Duration(cfg.BackoffUnitMs) * time.Millisecond,
		MaxAttempts:    cfg.MaxAttempts,
		RequestTimeout: time.Duration(cfg.RequestTimeoutMs) * time.Millisecond,
	}
}

func stabilityConfigFrom(cfg config.StabilityConfig) stability.StabilityConfig {
	return stability.StabilityConfig{
		DimensionTimeout:     time.Duration(cfg.DimensionTimeoutMs) * time.Millisecond,
		FallbackHeight:       cfg.FallbackHeight,
		ScrollStep:           cfg.ScrollStep,
		ScrollInterval:       time.Duration(cfg.ScrollIntervalMs) * time.Millisecond,
		SettleTimeout:        time.Duration(cfg.SettleTimeoutMs) * time.Millisecond,
		ScrollRequestTimeout: time.Duration(cfg.ScrollRequestTimeoutMs) * time.Millisecond,
	}
}

func captureConfigFrom(cfg config.CaptureConfig) capture.CaptureConfig {
	return capture.CaptureConfig{
		BaseDir:            cfg.BaseDir,
		ContentTimeout:     time.Duration(cfg.ContentTimeoutSecs) * time.Second,
		RestrictedSchemes:  cfg.RestrictedSchemes,
		StitchScrollSettle: time.Duration(cfg.StitchScrollSettleMs) * time.Millisecond,
		RecentLogCapacity:  cfg.RecentLogCapacity,
	}
}

func limiterConfigFrom(cfg config.ResourceLimiterConfig) rslimiter.ResourceLimiterConfig {
	return rslimiter.ResourceLimiterConfig{
		MaxMemoryMB:        cfg.MaxMemoryMB,
		MaxGoroutines:      cfg.MaxGoroutines,
		CheckInterval:      time.Duration(cfg.CheckIntervalSecs) * time.Second,
		MemoryThreshold:    cfg.MemoryThreshold,
		SystemMemThreshold: cfg.SystemMemThreshold,
		CPUThreshold:       cfg.CPUThreshold,
		PauseAutoCapture:   cfg.PauseAutoCapture,
	}
}
