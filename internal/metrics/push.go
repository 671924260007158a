package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Pusher sends the collected metrics to a Prometheus Pushgateway once a run
// is over. A batch run is too short-lived to be scraped.
type Pusher struct {
	url      string
	job      string
	gatherer prometheus.Gatherer
}

// NewPusher creates a pusher for the default registry
func NewPusher(url, job string) *Pusher {
	return &Pusher{
		url:      url,
		job:      job,
		gatherer: prometheus.DefaultGatherer,
	}
}

// Push stamps the run completion time and pushes every metric grouped by run ID
func (p *Pusher) Push(ctx context.Context, runID string) error {
	LastRunTimestamp.Set(float64(time.Now().Unix()))

	pusher := push.New(p.url, p.job).Gatherer(p.gatherer)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", p.url, err)
	}
	return nil
}
