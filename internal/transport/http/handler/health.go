package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health handles GET /api/health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC().Format(time.RFC3339Nano)})
}
