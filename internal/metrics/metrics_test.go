package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
		IncRemote("/seats/", "ok")
		IncPoll("skipped")
		IncSubmission("invalid")
		IncStatusChange("reserved")
	})
}

func TestSetSeatCounts(t *testing.T) {
	SetSeatCounts(map[string]int{"available": 3, "reserved": 1})
	assert.Equal(t, 3.0, testutil.ToFloat64(seats.WithLabelValues("available")))
	assert.Equal(t, 1.0, testutil.ToFloat64(seats.WithLabelValues("reserved")))

	SetSeatCounts(map[string]int{"occupied": 2})
	assert.Equal(t, 1, testutil.CollectAndCount(seats))
}
