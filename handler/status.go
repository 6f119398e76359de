package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	M "custseg/model"
	"custseg/service"
)

// Test command.
// curl -i -X GET http://localhost:8080/status
func GetStatusHandler(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := s.Status()
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func GetYearsHandler(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"years": s.Years()})
	}
}

// GetClustersHandler returns the cluster centers in raw feature units.
func GetClustersHandler(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		clusters, err := s.Clusters()
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"clusters": clusters})
	}
}

func respondModelError(c *gin.Context, err error) {
	if M.IsModelNotLoaded(err) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	log.WithError(err).Error("Failed to read segmentation model.")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
