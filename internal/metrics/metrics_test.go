package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveBuild(t *testing.T) {
	before := testutil.ToFloat64(buildsTotal.WithLabelValues(StatusSuccess))
	failedBefore := testutil.ToFloat64(buildsTotal.WithLabelValues(StatusFailed))

	ObserveBuild(StatusSuccess, 0.25)
	ObserveBuild(StatusFailed, 0)

	assert.Equal(t, before+1, testutil.ToFloat64(buildsTotal.WithLabelValues(StatusSuccess)))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(buildsTotal.WithLabelValues(StatusFailed)))
}

func TestObserveThread(t *testing.T) {
	intervals := testutil.ToFloat64(intervalsProcessed)
	threads := testutil.ToFloat64(threadsBuilt)

	ObserveThread(12, 3)

	assert.Equal(t, intervals+12, testutil.ToFloat64(intervalsProcessed))
	assert.Equal(t, threads+1, testutil.ToFloat64(threadsBuilt))
}

func TestHandler(t *testing.T) {
	ObserveBuild(StatusSuccess, 0.1)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "callgraph_builds_total"))
}
