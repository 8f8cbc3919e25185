package app

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rxsched/internal/history"
	"rxsched/pkg/pool"
)

// newRouter builds the inspection API: a liveness endpoint plus
// read-only views over run history and pool state.
func newRouter(env string, store history.Store, p *pool.Pool) *gin.Engine {
	if env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/runs", func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit <= 0 || limit > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be 1..1000"})
			return
		}
		runs, err := store.Recent(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
			return
		}
		if runs == nil {
			runs = []history.Run{}
		}
		c.JSON(http.StatusOK, runs)
	})
	api.GET("/stats", func(c *gin.Context) {
		counts, err := store.Counts(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"pool":    p.Stats(),
			"history": counts,
		})
	})

	return r
}
