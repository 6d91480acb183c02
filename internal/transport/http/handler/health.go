package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"data-extractor/internal/bootstrap"
)

type HealthHandler struct {
	app *bootstrap.App
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

// Check reports process liveness. The inference service is only reached
// during an extraction run, so it is not probed here.
func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(200, gin.H{
		"app":        h.app.Config.App.Name,
		"env":        h.app.Config.App.Env,
		"model":      h.app.Config.LLM.Model,
		"uptime_sec": int(time.Since(h.app.StartedAt).Seconds()),
	})
}
