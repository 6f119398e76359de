package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"custseg/datefilter"
	mid "custseg/middleware"
	"custseg/service"
	U "custseg/util"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// getRangeFromQuery reads start_year, start_month, end_year and end_month.
// A start after the end is a valid, empty range.
func getRangeFromQuery(c *gin.Context) (datefilter.Range, error) {
	names := []string{"start_year", "start_month", "end_year", "end_month"}
	values := make([]int, len(names))
	for i, name := range names {
		param := c.Query(name)
		if param == "" {
			return datefilter.Range{}, fmt.Errorf("missing query param %s", name)
		}
		value, err := strconv.Atoi(param)
		if err != nil {
			return datefilter.Range{}, fmt.Errorf("invalid query param %s", name)
		}
		values[i] = value
	}

	r, ok := datefilter.NewRange(values[0], values[1], values[2], values[3])
	if !ok {
		return datefilter.Range{}, fmt.Errorf("months must be between 1 and 12")
	}
	return r, nil
}

func getRangeOrAbort(c *gin.Context) (datefilter.Range, bool) {
	r, err := getRangeFromQuery(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return datefilter.Range{}, false
	}
	return r, true
}

// Test command.
// curl -i -X GET 'http://localhost:8080/insights?start_year=2013&start_month=1&end_year=2014&end_month=6'
func GetInsightsHandler(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := getRangeOrAbort(c)
		if !ok {
			return
		}
		period := s.Period(r)
		c.JSON(http.StatusOK, gin.H{
			"period":             period.Key,
			"empty":              period.Empty,
			"customer_count":     period.NumCustomers,
			"product_preference": period.Insights.ProductPreference,
			"channel_usage":      period.Insights.ChannelUsage,
			"spend_by_age":       period.Insights.SpendByAge,
			"cluster_summary":    period.Insights.ClusterSummary,
		})
	}
}

func GetSummaryHandler(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := getRangeOrAbort(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, s.Period(r).Summary)
	}
}

func ExportInsightsHandler(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := getRangeOrAbort(c)
		if !ok {
			return
		}

		buf, err := s.Export(r)
		if err != nil {
			log.WithFields(log.Fields{"period": r.Key()}).WithError(err).Error("Failed to export insights.")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to export insights"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=insights_%s.xlsx", r.Key()))
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	}
}

// RecommendationsHandler asks the recommender for sales advice on the period.
func RecommendationsHandler(s *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := getRangeOrAbort(c)
		if !ok {
			return
		}

		logCtx := log.WithFields(log.Fields{
			"period":    r.Key(),
			"requestId": U.GetScopeByKeyAsString(c, mid.SCOPE_REQUEST_ID),
		})

		text, err := s.Recommend(c.Request.Context(), r)
		if err == service.ErrRecommenderDisabled {
			c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			logCtx.WithError(err).Error("Failed to generate recommendations.")
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "failed to generate recommendations"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"period": r.Key(), "recommendations": text})
	}
}
