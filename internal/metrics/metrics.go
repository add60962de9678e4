package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubmirror_sync_runs_total",
		Help: "Sync runs by trigger source and final status.",
	}, []string{"trigger", "status"})

	PostsImported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hubmirror_posts_imported_total",
		Help: "Posts created from remote records.",
	})

	PostsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hubmirror_posts_updated_total",
		Help: "Posts updated in place from remote records.",
	})

	RecordFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hubmirror_record_failures_total",
		Help: "Per-record upsert failures that did not abort the run.",
	})
)
