package rslimiter

import "time"

// ResourceLimiterConfig holds configuration for the resource limiter
type ResourceLimiterConfig struct {
	MaxMemoryMB        int64         // Maximum application memory in MB
	MaxGoroutines      int           // Maximum number of goroutines
	CheckInterval      time.Duration // How often to check resource usage
	MemoryThreshold    float64       // Percentage of max memory to trigger warning (0.8 = 80%)
	SystemMemThreshold float64       // Percentage of system memory to trigger pause (0.5 = 50%)
	CPUThreshold       float64       // Percentage of CPU usage to trigger pause (0.5 = 50%)
	PauseAutoCapture   bool          // Pause automatic captures when thresholds are exceeded
}

// DefaultResourceLimiterConfig returns default configuration
func DefaultResourceLimiterConfig() ResourceLimiterConfig {
	return ResourceLimiterConfig{
		MaxMemoryMB:        512,
		MaxGoroutines:      5000,
		CheckInterval:      15 * time.Second,
		MemoryThreshold:    0.7,
		SystemMemThreshold: 0.4,
		CPUThreshold:       0.4,
		PauseAutoCapture:   true,
	}
}
