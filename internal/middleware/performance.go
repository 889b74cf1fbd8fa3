package middleware

import (
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"go-qr-relay/internal/logger"

	"github.com/gin-gonic/gin"
)

// PerformanceMetrics stores request performance metrics
type PerformanceMetrics struct {
	RequestCount  int64            `json:"request_count"`
	ErrorRate     float64          `json:"error_rate"`
	Uptime        string           `json:"uptime"`
	MemoryUsage   MemoryStats      `json:"memory_usage"`
	EndpointStats map[string]Stats `json:"endpoint_stats"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated  string `json:"allocated"`
	TotalAlloc string `json:"total_alloc"`
	Sys        string `json:"sys"`
	GCRuns     uint32 `json:"gc_runs"`
	Goroutines int    `json:"goroutines"`
}

// Stats represents endpoint-specific statistics
type Stats struct {
	Count         int64         `json:"count"`
	TotalDuration time.Duration `json:"total_duration"`
	AverageTime   time.Duration `json:"average_time"`
	ErrorCount    int64         `json:"error_count"`
	SlowCount     int64         `json:"slow_count"`
}

// EndpointSummary represents endpoint performance summary
type EndpointSummary struct {
	Endpoint    string        `json:"endpoint"`
	AverageTime time.Duration `json:"average_time"`
	Count       int64         `json:"count"`
	ErrorRate   float64       `json:"error_rate"`
	SlowRate    float64       `json:"slow_rate"`
}

// PerformanceMonitor tracks per-endpoint latency and errors. Safe for
// concurrent requests.
type PerformanceMonitor struct {
	mu            sync.Mutex
	requestCount  int64
	errorCount    int64
	endpoints     map[string]Stats
	slowThreshold time.Duration
	startTime     time.Time
	log           *logger.StructuredLogger
}

// NewPerformanceMonitor creates a new performance monitor
func NewPerformanceMonitor(slowThreshold time.Duration, log *logger.StructuredLogger) *PerformanceMonitor {
	return &PerformanceMonitor{
		endpoints:     make(map[string]Stats),
		slowThreshold: slowThreshold,
		startTime:     time.Now(),
		log:           log,
	}
}

// PerformanceMiddleware tracks request performance
func (pm *PerformanceMonitor) PerformanceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		// Skip health checks and unmatched routes
		if path == "" || path == "/health" {
			c.Next()
			return
		}

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		endpoint := fmt.Sprintf("%s %s", c.Request.Method, path)

		pm.record(endpoint, duration, status >= http.StatusBadRequest)

		if duration > pm.slowThreshold {
			pm.log.Warn("Slow request", map[string]interface{}{
				"endpoint": endpoint,
				"duration": duration.String(),
				"status":   status,
			})
		}
	}
}

// record updates the counters for one finished request.
func (pm *PerformanceMonitor) record(endpoint string, duration time.Duration, isError bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.requestCount++

	stats := pm.endpoints[endpoint]
	stats.Count++
	stats.TotalDuration += duration
	stats.AverageTime = stats.TotalDuration / time.Duration(stats.Count)

	if isError {
		stats.ErrorCount++
		pm.errorCount++
	}

	if duration > pm.slowThreshold {
		stats.SlowCount++
	}

	pm.endpoints[endpoint] = stats
}

// GetMetrics returns a snapshot of the current metrics.
func (pm *PerformanceMonitor) GetMetrics() PerformanceMetrics {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	endpoints := make(map[string]Stats, len(pm.endpoints))
	for k, v := range pm.endpoints {
		endpoints[k] = v
	}

	var errorRate float64
	if pm.requestCount > 0 {
		errorRate = float64(pm.errorCount) / float64(pm.requestCount) * 100
	}

	return PerformanceMetrics{
		RequestCount:  pm.requestCount,
		ErrorRate:     errorRate,
		Uptime:        time.Since(pm.startTime).Round(time.Second).String(),
		MemoryUsage:   readMemoryStats(),
		EndpointStats: endpoints,
	}
}

// GetTopSlowEndpoints returns the slowest endpoints
func (pm *PerformanceMonitor) GetTopSlowEndpoints(limit int) []EndpointSummary {
	pm.mu.Lock()
	endpoints := make([]EndpointSummary, 0, len(pm.endpoints))
	for endpoint, stats := range pm.endpoints {
		endpoints = append(endpoints, EndpointSummary{
			Endpoint:    endpoint,
			AverageTime: stats.AverageTime,
			Count:       stats.Count,
			ErrorRate:   float64(stats.ErrorCount) / float64(stats.Count) * 100,
			SlowRate:    float64(stats.SlowCount) / float64(stats.Count) * 100,
		})
	}
	pm.mu.Unlock()

	sort.Slice(endpoints, func(i, j int) bool {
		return endpoints[i].AverageTime > endpoints[j].AverageTime
	})

	if limit > 0 && limit < len(endpoints) {
		endpoints = endpoints[:limit]
	}

	return endpoints
}

func readMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemoryStats{
		Allocated:  formatBytes(m.Alloc),
		TotalAlloc: formatBytes(m.TotalAlloc),
		Sys:        formatBytes(m.Sys),
		GCRuns:     m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
}

// RequestSizeLimitMiddleware limits request body size
func RequestSizeLimitMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request entity too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)

		c.Next()
	}
}

// formatBytes formats byte count as human readable string
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
