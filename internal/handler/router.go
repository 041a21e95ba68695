package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/webrecap/webrecap/internal/middleware"
)

type RouterDeps struct {
	Summaries *SummaryHandler
	Progress  *ProgressHandler
	JWTSecret []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.Use(middleware.OptionalAuth(deps.JWTSecret))

	api.POST("/summarize", middleware.RateLimit(time.Second), deps.Summaries.Submit)
	api.GET("/summary/:docId", deps.Summaries.Get)
	api.GET("/progress/:docId", deps.Progress.Stream)
}
