package http

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse is the liveness report. It always carries status "ok":
// the relay has no degraded mode, and the endpoint must answer
// regardless of relay load.
type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	AllocBytes    uint64 `json:"alloc_bytes"`
	SysBytes      uint64 `json:"sys_bytes"`
	Goroutines    int    `json:"goroutines"`
}

func healthHandler() gin.HandlerFunc {
	start := time.Now()
	return func(c *gin.Context) {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		c.JSON(http.StatusOK, HealthResponse{
			Status:        "ok",
			UptimeSeconds: int64(time.Since(start).Seconds()),
			AllocBytes:    mem.Alloc,
			SysBytes:      mem.Sys,
			Goroutines:    runtime.NumGoroutine(),
		})
	}
}
