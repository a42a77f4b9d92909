package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_LabelsUseRouteTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/v1/patients/:name/messages", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"messages": []string{}, "count": 0})
	})
	r.DELETE("/api/v1/catalog/events/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	const tmpl = "/api/v1/patients/:name/messages"
	before := map[string]float64{
		"route":     testutil.ToFloat64(httpReqs.WithLabelValues("GET", tmpl, "200")),
		"delete":    testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/api/v1/catalog/events/:id", "204")),
		"unmatched": testutil.ToFloat64(httpReqs.WithLabelValues("GET", UnmatchedPath, "404")),
	}

	for _, path := range []string{
		"/api/v1/patients/John%20Doe/messages",
		"/api/v1/patients/Jane%20Smith/messages",
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s -> %d", path, w.Code)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/catalog/events/evt-def-001", nil))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/patients/MRN-12345", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unmatched -> %d", w.Code)
	}

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", tmpl, "200")); got != before["route"]+2 {
		t.Fatalf("both patients must share one series: %v", got-before["route"])
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/api/v1/catalog/events/:id", "204")); got != before["delete"]+1 {
		t.Fatalf("delete series = %v", got-before["delete"])
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", UnmatchedPath, "404")); got != before["unmatched"]+1 {
		t.Fatalf("unmatched series = %v", got-before["unmatched"])
	}
	if v := testutil.ToFloat64(httpInflight); v != 0 {
		t.Fatalf("in-flight after completion = %v", v)
	}
}

func TestMetrics_NoPHIInLabelValues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/v1/patients/:name/messages", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/patients/Grace%20Kelly/messages", nil))

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if !strings.HasPrefix(mf.GetName(), "http_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if strings.Contains(lp.GetValue(), "Grace") {
					t.Fatalf("%s carries a patient name in label %s", mf.GetName(), lp.GetName())
				}
			}
		}
	}
}
