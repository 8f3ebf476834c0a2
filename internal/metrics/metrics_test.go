package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	LookupFallbacks.WithLabelValues("digits").Inc()
	require.GreaterOrEqual(t, testutil.ToFloat64(LookupFallbacks.WithLabelValues("digits")), 1.0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "laundry_order_lookup_fallback_total")
	require.Contains(t, string(body), "laundry_realtime_peers")
}
