package handler

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	C "custseg/config"
	mid "custseg/middleware"
	"custseg/service"
)

func InitRoutes(r *gin.Engine, s *service.Service) {
	// CORS
	if C.GetConfig() != nil && C.IsDevelopment() {
		log.Info("Running in development.")
		config := cors.DefaultConfig()
		config.AllowOrigins = []string{"http://localhost:8080",
			"http://localhost:3000", "http://localhost:8501"}
		r.Use(cors.New(config))
	}
	r.Use(mid.RequestID(), mid.Logger())

	r.GET("/status", GetStatusHandler(s))
	r.GET("/years", GetYearsHandler(s))
	r.GET("/clusters", GetClustersHandler(s))
	r.GET("/insights", GetInsightsHandler(s))
	r.GET("/insights/summary", GetSummaryHandler(s))
	r.GET("/insights/export", ExportInsightsHandler(s))
	r.POST("/insights/recommendations", RecommendationsHandler(s))
}
