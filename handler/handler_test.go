package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custseg/insights"
	M "custseg/model"
	"custseg/segment"
	"custseg/service"
	serviceDisk "custseg/services/disk"
)

type stubRecommender struct{}

func (stubRecommender) Recommend(ctx context.Context, summary insights.Summary) (string, error) {
	return "- push " + summary.TopProduct, nil
}

func testCustomer(year int, month time.Month, age int, income, wines, meat float64) M.Customer {
	c := M.Customer{
		EnrolledAt: time.Date(year, month, 10, 0, 0, 0, 0, time.UTC),
		Age:        age,
		Income:     income,
		Recency:    float64(age % 7),
		Spend:      [M.NumProducts]float64{wines, 0, meat, 0, 0, 0},
		Purchases:  [M.NumChannels]float64{2, 1, 5},
	}
	c.TotalSpend = wines + meat
	c.Frequency = 8
	return c
}

func newTestRouter(t *testing.T, loaded bool, recommender service.Recommender) *gin.Engine {
	customers := []M.Customer{
		testCustomer(2012, time.October, 30, 20000, 10, 5),
		testCustomer(2013, time.February, 34, 24000, 30, 2),
		testCustomer(2013, time.June, 61, 80000, 900, 300),
		testCustomer(2014, time.March, 58, 76000, 700, 500),
		testCustomer(2014, time.April, 45, 52000, 200, 450),
	}

	registry := segment.NewRegistry()
	if loaded {
		model, labelled, err := segment.Fit(customers, segment.Config{K: 2})
		require.Nil(t, err)
		registry.Set(model, segment.Manifest{Stamp: "stamp", Name: "test", K: 2})
		customers = labelled
	}

	s, err := service.New(customers, registry, serviceDisk.New(t.TempDir()), "test", 8, recommender)
	require.Nil(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	InitRoutes(r, s)
	return r
}

func sendRequest(r *gin.Engine, method, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, url, nil)
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestStatusYearsAndClusters(t *testing.T) {
	r := newTestRouter(t, true, nil)

	w := sendRequest(r, http.MethodGet, "/status")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(5), body["customer_count"])
	assert.Equal(t, "stamp", body["model"].(map[string]interface{})["stamp"])

	w = sendRequest(r, http.MethodGet, "/years")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{float64(2012), float64(2013), float64(2014)}, decode(t, w)["years"])

	w = sendRequest(r, http.MethodGet, "/clusters")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["clusters"], 2)
}

func TestModelNotLoaded(t *testing.T) {
	r := newTestRouter(t, false, nil)

	w := sendRequest(r, http.MethodGet, "/status")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotEmpty(t, decode(t, w)["error"])

	w = sendRequest(r, http.MethodGet, "/clusters")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetInsights(t *testing.T) {
	r := newTestRouter(t, true, nil)

	w := sendRequest(r, http.MethodGet, "/insights?start_year=2013&start_month=1&end_year=2014&end_month=3")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["empty"])
	assert.Equal(t, float64(3), body["customer_count"])
	assert.Equal(t, "2013-01_2014-03", body["period"])
	products := body["product_preference"].([]interface{})
	assert.Len(t, products, M.NumProducts)
	assert.Equal(t, "Wines", products[0].(map[string]interface{})["name"])
	assert.Equal(t, float64(1630), products[0].(map[string]interface{})["total"])
	assert.Len(t, body["channel_usage"], M.NumChannels+1)
	assert.NotEmpty(t, body["cluster_summary"])
}

func TestGetInsightsEmptyPeriod(t *testing.T) {
	r := newTestRouter(t, true, nil)

	for _, url := range []string{
		"/insights?start_year=2020&start_month=1&end_year=2020&end_month=12",
		"/insights?start_year=2014&start_month=5&end_year=2013&end_month=1",
	} {
		w := sendRequest(r, http.MethodGet, url)
		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, true, body["empty"])
		assert.Equal(t, float64(0), body["customer_count"])
		assert.Equal(t, []interface{}{}, body["product_preference"])
		assert.Equal(t, []interface{}{}, body["cluster_summary"])
	}
}

func TestGetInsightsBadParams(t *testing.T) {
	r := newTestRouter(t, true, nil)

	for _, url := range []string{
		"/insights",
		"/insights?start_year=2013&start_month=1&end_year=2014",
		"/insights?start_year=2013&start_month=x&end_year=2014&end_month=3",
		"/insights?start_year=2013&start_month=0&end_year=2014&end_month=3",
		"/insights?start_year=2013&start_month=1&end_year=2014&end_month=13",
		"/insights/summary?start_year=2013",
		"/insights/export?start_month=1",
	} {
		w := sendRequest(r, http.MethodGet, url)
		assert.Equal(t, http.StatusBadRequest, w.Code, url)
		assert.NotEmpty(t, decode(t, w)["error"], url)
	}
}

func TestGetSummary(t *testing.T) {
	r := newTestRouter(t, true, nil)

	w := sendRequest(r, http.MethodGet, "/insights/summary?start_year=2014&start_month=1&end_year=2014&end_month=12")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2), body["customer_count"])
	assert.Equal(t, float64(64000), body["avg_income"])
	assert.Equal(t, "Meat Products", body["top_product"])
	assert.Equal(t, "Store Purchases", body["top_channel"])
}

func TestExportInsights(t *testing.T) {
	r := newTestRouter(t, true, nil)

	w := sendRequest(r, http.MethodGet, "/insights/export?start_year=2012&start_month=1&end_year=2014&end_month=12")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "insights_2012-01_2014-12.xlsx")
	assert.True(t, w.Body.Len() > 0)
}

func TestRecommendations(t *testing.T) {
	r := newTestRouter(t, true, stubRecommender{})
	w := sendRequest(r, http.MethodPost, "/insights/recommendations?start_year=2013&start_month=1&end_year=2013&end_month=12")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "- push Wines", decode(t, w)["recommendations"])

	r = newTestRouter(t, true, nil)
	w = sendRequest(r, http.MethodPost, "/insights/recommendations?start_year=2013&start_month=1&end_year=2013&end_month=12")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
