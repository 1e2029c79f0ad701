package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/coursechat-go/internal/adapters/oracle"
)

var _ oracle.Observer = (*Collector)(nil)

func TestCollector_RecordQuery(t *testing.T) {
	c := NewCollector()

	c.RecordQuery("most_open_seats")
	c.RecordQuery("most_open_seats")
	c.RecordQuery("plain")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Queries.WithLabelValues("most_open_seats")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Queries.WithLabelValues("plain")))
}

func TestCollector_ObserveOracle(t *testing.T) {
	c := NewCollector()

	c.ObserveOracle(300*time.Millisecond, nil)
	c.ObserveOracle(2*time.Second, errors.New("timeout"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.OracleFailures))
	assert.Equal(t, 1, testutil.CollectAndCount(c.OracleDuration))
}

func TestCollector_RecordCatalogLoad(t *testing.T) {
	c := NewCollector()

	c.RecordCatalogLoad(120, nil)
	c.RecordCatalogLoad(0, errors.New("bad json"))

	assert.Equal(t, 120.0, testutil.ToFloat64(c.CatalogCourses))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CatalogReloads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CatalogReloads.WithLabelValues("error")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.RecordHTTPRequest(http.MethodPost, "/api/query", http.StatusOK, 10*time.Millisecond)
	c.RecordQuery("grade_threshold")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `coursechat_queries_total{route="grade_threshold"} 1`)
	assert.Contains(t, string(body), `coursechat_http_requests_total{method="POST",route="/api/query",status="200"} 1`)
}

func TestNewCollector_IndependentRegistries(t *testing.T) {
	a := NewCollector()
	b := NewCollector()

	a.RecordQuery("plain")

	assert.Equal(t, 0.0, testutil.ToFloat64(b.Queries.WithLabelValues("plain")))
}
