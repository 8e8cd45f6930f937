package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// Check is one dependency probed by the health endpoint.
type Check struct {
	Name  string
	Ping  func(ctx context.Context) error
	Stats func() any
}

// PoolCheck probes a Postgres pool.
func PoolCheck(pool *pgxpool.Pool) Check {
	return Check{
		Name:  "database",
		Ping:  pool.Ping,
		Stats: func() any { return GetPoolStats(pool) },
	}
}

// CheckResult is the outcome of one Check.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Stats  any    `json:"stats,omitempty"`
}

// HealthHandler reports every check. Any failing check makes the whole
// response 503. With no checks configured the service reports healthy.
func HealthHandler(checks ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]CheckResult, len(checks))
		for _, chk := range checks {
			res := CheckResult{Status: "healthy"}
			if err := chk.Ping(ctx); err != nil {
				res.Status = "unhealthy"
				res.Error = err.Error()
				status = http.StatusServiceUnavailable
			}
			if chk.Stats != nil {
				res.Stats = chk.Stats()
			}
			results[chk.Name] = res
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}
		return c.JSON(status, map[string]interface{}{
			"status": overall,
			"checks": results,
		})
	}
}
