// Package status implements Charon's read-only HTTP status surface — a
// supplemented feature (SPEC_FULL.md §4): a loopback-bound Gin server
// exposing health and statistics, grounded on HydraDNS's internal/api
// package but stripped to read-only endpoints so it can never become a
// second mutator of the Store: ControlPlane alone mutates LocalRecords,
// Engine alone mutates CacheEntries.
package status

import (
	"context"
	"embed"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/jroosing/charon/internal/store"

	_ "github.com/jroosing/charon/internal/status/docs" // swagger docs
)

//go:embed dist/*
var embeddedUI embed.FS

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// MemoryStats is a point-in-time system memory snapshot.
type MemoryStats struct {
	TotalMB     float64 `json:"total_mb"`
	FreeMB      float64 `json:"free_mb"`
	UsedMB      float64 `json:"used_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// CPUStats is a point-in-time system CPU snapshot.
type CPUStats struct {
	NumCPU      int     `json:"num_cpu"`
	UsedPercent float64 `json:"used_percent"`
	IdlePercent float64 `json:"idle_percent"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	UptimeSeconds int64       `json:"uptime_seconds"`
	CacheCount    int         `json:"cache_count"`
	CPU           CPUStats    `json:"cpu"`
	Memory        MemoryStats `json:"memory"`
}

// Server is the status HTTP server. It never calls a Store method that
// mutates state.
type Server struct {
	store      *store.Store
	logger     *slog.Logger
	startTime  time.Time
	httpServer *http.Server
}

// New builds a status server bound to addr (expected to be a loopback
// address per spec.md §4.4's security posture for the control surface).
func New(addr string, st *store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	s := &Server{store: st, logger: logger, startTime: time.Now()}
	engine.GET("/healthz", s.handleHealth)
	engine.GET("/stats", s.handleStats)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if distFS, err := static.EmbedFolder(embeddedUI, "dist"); err == nil {
		engine.Use(static.Serve("/", distFS))
	} else {
		logger.Warn("status: embedded UI unavailable", "error", err)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections, waiting up to ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleHealth godoc
// @Summary Health check
// @Description Reports that the status server is reachable.
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleStats godoc
// @Summary Server statistics
// @Description Returns cache size plus a point-in-time CPU/memory snapshot.
// @Produce json
// @Success 200 {object} StatsResponse
// @Router /stats [get]
func (s *Server) handleStats(c *gin.Context) {
	count, err := s.store.CacheCount()
	if err != nil {
		s.logger.Warn("stats: cache count failed", "error", err)
	}

	memStats := MemoryStats{}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		memStats.TotalMB = float64(vmStat.Total) / 1024 / 1024
		memStats.FreeMB = float64(vmStat.Available) / 1024 / 1024
		memStats.UsedMB = float64(vmStat.Used) / 1024 / 1024
		memStats.UsedPercent = vmStat.UsedPercent
	}

	cpuStats := CPUStats{NumCPU: runtime.NumCPU()}
	if cpuPercent, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		cpuStats.UsedPercent = cpuPercent[0]
		cpuStats.IdlePercent = 100.0 - cpuPercent[0]
	}

	c.JSON(http.StatusOK, StatsResponse{
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		CacheCount:    count,
		CPU:           cpuStats,
		Memory:        memStats,
	})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.Info("status request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}
