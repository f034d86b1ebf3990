// Package api exposes the advisor features over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Skufu/vitreos/internal/advisor"
	"github.com/Skufu/vitreos/internal/gate"
	"github.com/Skufu/vitreos/internal/kv"
	"github.com/Skufu/vitreos/internal/profile"
	"github.com/Skufu/vitreos/internal/symptoms"
)

// Deps is everything the router serves. Health and StaticRoot are optional.
type Deps struct {
	Profile      *profile.Store
	Gate         *gate.Policy
	Advisor      *advisor.Service
	Refresher    *advisor.Refresher
	Keywords     *symptoms.KeywordSet
	Health       kv.HealthChecker
	Logger       zerolog.Logger
	MaxBodyBytes int64
	StaticRoot   string
}

func NewRouter(d Deps) *gin.Engine {
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = 10 << 20
	}
	h := &handler{Deps: d}

	router := gin.New()
	router.Use(
		requestID(),
		requestLogger(d.Logger),
		recovery(d.Logger),
		instrument(),
		limitBodySize(d.MaxBodyBytes),
		cors.New(cors.Config{
			AllowOrigins:  []string{"*"},
			AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders: []string{"X-Request-ID", "Content-Disposition"},
			MaxAge:        12 * time.Hour,
		}),
	)

	if d.StaticRoot != "" {
		router.Static("/static", d.StaticRoot)
		router.StaticFile("/", filepath.Join(d.StaticRoot, "index.html"))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", h.ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/profile", h.getProfile)
		api.POST("/profile", h.submitProfile)
		api.DELETE("/profile", h.clearProfile)

		api.GET("/history", h.listHistory)
		api.DELETE("/history", h.clearHistory)
		api.GET("/history/export", h.exportHistory)

		api.GET("/features", h.features)

		api.POST("/advisor", h.runAdvisor)

		api.POST("/voice/transcript", h.observeTranscript)
		api.GET("/voice/keywords", h.listKeywords)
		api.DELETE("/voice/keywords", h.clearKeywords)
		api.POST("/voice", h.runVoice)

		api.POST("/allergy", h.runAllergy)
		api.POST("/drug", h.runDrug)
		api.POST("/consult", h.runConsult)
		api.POST("/nutrition", h.runNutrition)

		api.GET("/dashboard/insights", h.runDashboard)
		api.GET("/dashboard/latest", h.latestDashboard)
		api.POST("/navigate/:page", h.navigate)

		api.POST("/scan", h.runScan)
		api.POST("/scan/apply", h.applyScan)
	}

	return router
}

func (h *handler) ready(c *gin.Context) {
	if h.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": "no health check"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.Health.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"store":  fmt.Sprintf("unhealthy: %v", err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": "ok"})
}
