package http

import (
	"github.com/gin-gonic/gin"

	appsvc "data-extractor/internal/app"
	"data-extractor/internal/bootstrap"
	"data-extractor/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	extractService := appsvc.NewExtractService(app.AIClient, app.Config.LLM.Model, app.Log)
	extractHandler := handler.NewExtractHandler(extractService)

	v1 := router.Group("/api/v1")
	v1.POST("/extract", extractHandler.Extract)

	return router
}
