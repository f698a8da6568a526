package rslimiter

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceLimiter watches memory, CPU, and goroutine usage and pauses
// automatic captures while the host is under pressure. Manual captures are
// never blocked.
type ResourceLimiter struct {
	config          ResourceLimiterConfig
	logger          zerolog.Logger
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	memoryThreshold int64
	isRunning       bool
	paused          bool
	mu              sync.RWMutex
	pauseCallback   func(paused bool)
}

// NewResourceLimiter creates a new resource limiter
func NewResourceLimiter(config ResourceLimiterConfig, logger zerolog.Logger) *ResourceLimiter {
	ctx, cancel := context.WithCancel(context.Background())

	if config.CheckInterval == 0 {
		config.CheckInterval = 15 * time.Second
	}
	if config.MemoryThreshold == 0 {
		config.MemoryThreshold = 0.7
	}
	if config.SystemMemThreshold == 0 {
		config.SystemMemThreshold = 0.4
	}
	if config.CPUThreshold == 0 {
		config.CPUThreshold = 0.4
	}

	return &ResourceLimiter{
		config:          config,
		logger:          logger.With().Str("component", "ResourceLimiter").Logger(),
		ctx:             ctx,
		cancel:          cancel,
		memoryThreshold: int64(float64(config.MaxMemoryMB) * config.MemoryThreshold),
	}
}

// SetPauseCallback sets the callback invoked on pause and resume transitions
func (rl *ResourceLimiter) SetPauseCallback(callback func(paused bool)) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.pauseCallback = callback
}

// IsPaused reports whether automatic captures are currently paused
func (rl *ResourceLimiter) IsPaused() bool {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.paused
}

// Start begins monitoring resource usage
func (rl *ResourceLimiter) Start() {
	rl.mu.Lock()
	if rl.isRunning {
		rl.mu.Unlock()
		return
	}
	rl.isRunning = true
	rl.mu.Unlock()

	rl.wg.Add(1)
	go rl.monitorResources()

	rl.logger.Info().
		Int64("max_memory_mb", rl.config.MaxMemoryMB).
		Int("max_goroutines", rl.config.MaxGoroutines).
		Dur("check_interval", rl.config.CheckInterval).
		Float64("system_mem_threshold", rl.config.SystemMemThreshold).
		Float64("cpu_threshold", rl.config.CPUThreshold).
		Bool("pause_auto_capture", rl.config.PauseAutoCapture).
		Msg("Resource limiter started")
}

// Stop stops the resource monitor
func (rl *ResourceLimiter) Stop() {
	rl.mu.Lock()
	if !rl.isRunning {
		rl.mu.Unlock()
		return
	}
	rl.isRunning = false
	rl.mu.Unlock()

	rl.cancel()
	rl.wg.Wait()
	rl.logger.Info().Msg("Resource limiter stopped")
}

// CheckMemoryLimit checks if current memory usage exceeds the limit
func (rl *ResourceLimiter) CheckMemoryLimit() error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	currentMB := int64(m.Alloc / 1024 / 1024)
	if currentMB > rl.config.MaxMemoryMB {
		return fmt.Errorf("memory limit exceeded: current %dMB > limit %dMB", currentMB, rl.config.MaxMemoryMB)
	}
	return nil
}

// CheckSystemMemoryLimit checks if system memory usage exceeds the threshold
func (rl *ResourceLimiter) CheckSystemMemoryLimit() (bool, error) {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		return false, fmt.Errorf("failed to get system memory stats: %w", err)
	}

	usedPercent := vmStat.UsedPercent / 100.0
	if usedPercent > rl.config.SystemMemThreshold {
		rl.logger.Warn().
			Float64("used_percent", usedPercent*100).
			Float64("threshold_percent", rl.config.SystemMemThreshold*100).
			Uint64("used_mb", vmStat.Used/1024/1024).
			Uint64("total_mb", vmStat.Total/1024/1024).
			Msg("System memory usage exceeded threshold")
		return true, nil
	}
	return false, nil
}

// CheckCPULimit checks if CPU usage exceeds the threshold
func (rl *ResourceLimiter) CheckCPULimit() (bool, error) {
	cpuPercents, err := cpu.Percent(time.Second, false)
	if err != nil {
		return false, fmt.Errorf("failed to get CPU usage: %w", err)
	}
	if len(cpuPercents) == 0 {
		return false, fmt.Errorf("no CPU usage data available")
	}

	cpuUsage := cpuPercents[0] / 100.0
	if cpuUsage > rl.config.CPUThreshold {
		rl.logger.Warn().
			Float64("cpu_usage_percent", cpuUsage*100).
			Float64("threshold_percent", rl.config.CPUThreshold*100).
			Msg("CPU usage exceeded threshold")
		return true, nil
	}
	return false, nil
}

// CheckGoroutineLimit checks if the goroutine count exceeds the limit
func (rl *ResourceLimiter) CheckGoroutineLimit() error {
	current := runtime.NumGoroutine()
	if current > rl.config.MaxGoroutines {
		return fmt.Errorf("goroutine limit exceeded: current %d > limit %d", current, rl.config.MaxGoroutines)
	}
	return nil
}

// ForceGC forces garbage collection and logs the results
func (rl *ResourceLimiter) ForceGC() {
	var m1, m2 runtime.MemStats
	runtime.ReadMemStats(&m1)
	before := m1.Alloc / 1024 / 1024

	runtime.GC()
	runtime.GC()

	runtime.ReadMemStats(&m2)
	after := m2.Alloc / 1024 / 1024

	rl.logger.Info().
		Uint64("before_mb", before).
		Uint64("after_mb", after).
		Int64("freed_mb", int64(before-after)).
		Msg("Forced garbage collection completed")
}

// monitorResources runs the resource monitoring loop
func (rl *ResourceLimiter) monitorResources() {
	defer rl.wg.Done()

	ticker := time.NewTicker(rl.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.ctx.Done():
			return
		case <-ticker.C:
			rl.checkAndApplyPressure()
		}
	}
}

// checkAndApplyPressure checks current resource usage and toggles the
// auto-capture pause state accordingly.
func (rl *ResourceLimiter) checkAndApplyPressure() {
	usage := GetResourceUsage()

	if usage.AllocMB > rl.memoryThreshold {
		rl.logger.Warn().
			Int64("current_mb", usage.AllocMB).
			Int64("threshold_mb", rl.memoryThreshold).
			Int64("limit_mb", rl.config.MaxMemoryMB).
			Msg("Memory usage approaching limit")
	}

	if !rl.config.PauseAutoCapture {
		return
	}

	exceeded, reason := rl.checkPressureConditions()
	if exceeded {
		rl.logger.Warn().
			Str("reason", reason).
			Int64("alloc_mb", usage.AllocMB).
			Int("goroutines", usage.Goroutines).
			Float64("system_mem_percent", usage.SystemMemUsedPercent).
			Float64("cpu_percent", usage.CPUUsagePercent).
			Msg("Resource limits exceeded, pausing automatic captures")
		rl.setPaused(true)
		rl.ForceGC()
		return
	}

	rl.setPaused(false)

	rl.logger.Debug().
		Int64("alloc_mb", usage.AllocMB).
		Int64("sys_mb", usage.SysMB).
		Int("goroutines", usage.Goroutines).
		Float64("system_mem_percent", usage.SystemMemUsedPercent).
		Float64("cpu_percent", usage.CPUUsagePercent).
		Msg("Current resource usage")
}

// checkPressureConditions checks all pressure conditions in order
func (rl *ResourceLimiter) checkPressureConditions() (bool, string) {
	type checkFunc func() (bool, string)

	checks := []checkFunc{
		rl.systemMemoryChecker,
		rl.cpuChecker,
		rl.appMemoryChecker,
		rl.goroutineChecker,
	}

	for _, check := range checks {
		if exceeded, reason := check(); exceeded {
			return true, reason
		}
	}
	return false, ""
}

func (rl *ResourceLimiter) systemMemoryChecker() (bool, string) {
	exceeded, err := rl.CheckSystemMemoryLimit()
	if err != nil {
		rl.logger.Error().Err(err).Msg("Failed to check system memory limit")
		return false, ""
	}
	if exceeded {
		return true, "System memory threshold exceeded"
	}
	return false, ""
}

func (rl *ResourceLimiter) cpuChecker() (bool, string) {
	exceeded, err := rl.CheckCPULimit()
	if err != nil {
		rl.logger.Error().Err(err).Msg("Failed to check CPU limit")
		return false, ""
	}
	if exceeded {
		return true, "CPU usage threshold exceeded"
	}
	return false, ""
}

func (rl *ResourceLimiter) appMemoryChecker() (bool, string) {
	if err := rl.CheckMemoryLimit(); err != nil {
		return true, fmt.Sprintf("Application memory limit exceeded: %v", err)
	}
	return false, ""
}

func (rl *ResourceLimiter) goroutineChecker() (bool, string) {
	if err := rl.CheckGoroutineLimit(); err != nil {
		return true, fmt.Sprintf("Goroutine limit exceeded: %v", err)
	}
	return false, ""
}

// setPaused updates the pause state and fires the callback on transitions
func (rl *ResourceLimiter) setPaused(paused bool) {
	rl.mu.Lock()
	changed := rl.paused != paused
	rl.paused = paused
	callback := rl.pauseCallback
	rl.mu.Unlock()

	if changed && callback != nil {
		callback(paused)
	}
	if changed && !paused {
		rl.logger.Info().Msg("Resource pressure cleared, resuming automatic captures")
	}
}
