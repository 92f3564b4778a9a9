package client

import (
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Per-command instrumentation
// --------------------------------------------------------------------------

// observe records one finished command: request count, latency, and the
// error count when the command failed
func observe(command string, start time.Time, failed bool) {
	metrics.GetOrCreateCounter(
		fmt.Sprintf(`zcached_client_requests_total{command=%q}`, command),
	).Inc()

	metrics.GetOrCreateSummary(
		fmt.Sprintf(`zcached_client_request_duration_seconds{command=%q}`, command),
	).UpdateDuration(start)

	if failed {
		metrics.GetOrCreateCounter(
			fmt.Sprintf(`zcached_client_errors_total{command=%q}`, command),
		).Inc()
	}
}
