package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (s *MetricsTestSuite) TestStatusBucket() {
	cases := map[int]string{200: "2xx", 201: "2xx", 302: "3xx", 404: "4xx", 409: "4xx", 503: "5xx"}
	for code, want := range cases {
		s.Equal(want, statusBucket(code))
	}
}

func (s *MetricsTestSuite) TestEndpointExposesLedgerMetrics() {
	gin.SetMode(gin.TestMode)
	LedgerOpsTotal.WithLabelValues("release", "ok").Inc()

	r := gin.New()
	r.Use(Middleware())
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "escrow_ledger_operations_total")
	s.GreaterOrEqual(testutil.ToFloat64(LedgerOpsTotal.WithLabelValues("release", "ok")), float64(1))
}
