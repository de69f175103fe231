package monitoring

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 5 * time.Second

type Metrics struct {
	RequestCount    int64            `json:"request_count"`
	RequestDuration time.Duration    `json:"avg_request_duration_ns"`
	ActiveRequests  int64            `json:"active_requests"`
	ErrorCount      int64            `json:"error_count"`
	StatusCodes     map[string]int64 `json:"status_codes"`
	Endpoints       map[string]int64 `json:"endpoint_calls"`
	StartTime       time.Time        `json:"start_time"`
	LastRequest     time.Time        `json:"last_request"`
}

type HealthCheck struct {
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	Critical bool      `json:"critical"`
	Message  string    `json:"message,omitempty"`
	LastRun  time.Time `json:"last_run"`
}

type registeredCheck struct {
	fn       HealthCheckFunc
	critical bool
}

type HealthCheckFunc func(ctx context.Context) error

// Registry collects request metrics and the health checks of the
// server's dependencies (database, cache).
type Registry struct {
	mu            sync.RWMutex
	metrics       Metrics
	totalDuration time.Duration

	checksMu sync.RWMutex
	checks   map[string]registeredCheck
}

func NewRegistry() *Registry {
	return &Registry{
		metrics: Metrics{
			StatusCodes: make(map[string]int64),
			Endpoints:   make(map[string]int64),
			StartTime:   time.Now(),
		},
		checks: make(map[string]registeredCheck),
	}
}

func (r *Registry) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		r.mu.Lock()
		r.metrics.ActiveRequests++
		r.mu.Unlock()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()
		endpoint := c.Request.Method + " " + c.FullPath()

		r.mu.Lock()
		defer r.mu.Unlock()

		r.metrics.RequestCount++
		r.metrics.ActiveRequests--
		r.totalDuration += duration
		r.metrics.RequestDuration = r.totalDuration / time.Duration(r.metrics.RequestCount)
		r.metrics.LastRequest = time.Now()

		if statusCode >= 400 {
			r.metrics.ErrorCount++
		}
		r.metrics.StatusCodes[strconv.Itoa(statusCode)]++
		r.metrics.Endpoints[endpoint]++
	}
}

// Snapshot returns a copy of the counters that is safe to serialize.
func (r *Registry) Snapshot() Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := r.metrics
	snapshot.StatusCodes = make(map[string]int64, len(r.metrics.StatusCodes))
	snapshot.Endpoints = make(map[string]int64, len(r.metrics.Endpoints))
	for k, v := range r.metrics.StatusCodes {
		snapshot.StatusCodes[k] = v
	}
	for k, v := range r.metrics.Endpoints {
		snapshot.Endpoints[k] = v
	}
	return snapshot
}

type SystemMetrics struct {
	Uptime         string      `json:"uptime"`
	MemoryUsage    MemoryStats `json:"memory"`
	GoroutineCount int         `json:"goroutine_count"`
	CPUCount       int         `json:"cpu_count"`
	GoVersion      string      `json:"go_version"`
}

type MemoryStats struct {
	Alloc        uint64 `json:"alloc_mb"`
	TotalAlloc   uint64 `json:"total_alloc_mb"`
	Sys          uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
	NextGC       uint64 `json:"next_gc_mb"`
	GCPauseTotal string `json:"gc_pause_total"`
}

func (r *Registry) SystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		Uptime: r.uptime().String(),
		MemoryUsage: MemoryStats{
			Alloc:        bToMb(m.Alloc),
			TotalAlloc:   bToMb(m.TotalAlloc),
			Sys:          bToMb(m.Sys),
			NumGC:        m.NumGC,
			NextGC:       bToMb(m.NextGC),
			GCPauseTotal: time.Duration(m.PauseTotalNs).String(),
		},
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
	}
}

func (r *Registry) uptime() time.Duration {
	return time.Since(r.metrics.StartTime).Round(time.Second)
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

// RegisterHealthCheck adds a check for a dependency the service cannot work
// without. A failing critical check fails both /health and /health/ready.
// Registering the same name twice replaces the earlier check.
func (r *Registry) RegisterHealthCheck(name string, checkFunc HealthCheckFunc) {
	r.register(name, checkFunc, true)
}

// RegisterOptionalCheck adds a check that is reported by /health but never
// takes the instance out of rotation.
func (r *Registry) RegisterOptionalCheck(name string, checkFunc HealthCheckFunc) {
	r.register(name, checkFunc, false)
}

func (r *Registry) register(name string, checkFunc HealthCheckFunc, critical bool) {
	r.checksMu.Lock()
	defer r.checksMu.Unlock()
	r.checks[name] = registeredCheck{fn: checkFunc, critical: critical}
}

// RunHealthChecks executes every registered check concurrently, each bounded
// by its own timeout.
func (r *Registry) RunHealthChecks(ctx context.Context) map[string]HealthCheck {
	return r.runChecks(ctx, false)
}

func (r *Registry) runChecks(ctx context.Context, criticalOnly bool) map[string]HealthCheck {
	r.checksMu.RLock()
	names := make([]string, 0, len(r.checks))
	checks := make([]registeredCheck, 0, len(r.checks))
	for name, check := range r.checks {
		if criticalOnly && !check.critical {
			continue
		}
		names = append(names, name)
		checks = append(checks, check)
	}
	r.checksMu.RUnlock()

	results := make([]HealthCheck, len(names))
	var wg sync.WaitGroup
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = runCheck(ctx, names[i], checks[i])
		}(i)
	}
	wg.Wait()

	byName := make(map[string]HealthCheck, len(results))
	for _, check := range results {
		byName[check.Name] = check
	}
	return byName
}

func runCheck(ctx context.Context, name string, registered registeredCheck) HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	check := HealthCheck{Name: name, Status: "healthy", Critical: registered.critical, LastRun: time.Now()}
	if err := registered.fn(ctx); err != nil {
		check.Status = "unhealthy"
		check.Message = err.Error()
		slog.Warn("health check failed", "check", name, "error", err)
	}
	return check
}

// overallStatus is "unhealthy" when a critical check fails and "degraded"
// when only optional checks fail.
func overallStatus(checks map[string]HealthCheck) string {
	status := "healthy"
	for _, check := range checks {
		if check.Status == "healthy" {
			continue
		}
		if check.Critical {
			return "unhealthy"
		}
		status = "degraded"
	}
	return status
}

func (r *Registry) MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"application": r.Snapshot(),
			"system":      r.SystemMetrics(),
			"timestamp":   time.Now(),
		})
	}
}

func (r *Registry) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := r.RunHealthChecks(c.Request.Context())

		overall := overallStatus(checks)
		status := http.StatusOK
		if overall == "unhealthy" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"status":    overall,
			"timestamp": time.Now(),
			"checks":    checks,
			"uptime":    r.uptime().String(),
		})
	}
}

func (r *Registry) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := r.runChecks(c.Request.Context(), true)

		if overallStatus(checks) == "healthy" {
			c.JSON(http.StatusOK, gin.H{
				"status":    "ready",
				"timestamp": time.Now(),
			})
			return
		}

		failing := make([]string, 0, len(checks))
		for name, check := range checks {
			if check.Status != "healthy" {
				failing = append(failing, name)
			}
		}
		sort.Strings(failing)

		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not ready",
			"failing":   failing,
			"timestamp": time.Now(),
		})
	}
}

func (r *Registry) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"timestamp": time.Now(),
			"uptime":    r.uptime().String(),
		})
	}
}
