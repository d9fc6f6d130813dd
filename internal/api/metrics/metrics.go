// Package metrics defines and registers all custom Prometheus metrics for the
// file vault API. It is the single source of truth for metric names, labels,
// and help strings. Metrics register with the default registry at package
// load; the /metrics endpoint exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vault"

// AuthAttemptsTotal counts registration and login attempts.
// Labels:
//   - operation: "register" or "login"
//   - result: "success" or "failure"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of registration and login attempts, by result.",
	},
	[]string{"operation", "result"},
)

// FilesUploadedTotal counts completed uploads.
// Label:
//   - result: "created" (fresh slot) or "replaced" (overwrite)
var FilesUploadedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_uploaded_total",
		Help:      "Total number of files stored, by outcome.",
	},
	[]string{"result"},
)

// FilesDownloadedTotal counts completed downloads.
var FilesDownloadedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_downloaded_total",
		Help:      "Total number of files streamed back to callers.",
	},
)

// FilesDeletedTotal counts completed deletions.
// Label:
//   - mode: "soft" (flag only) or "hard" (blob removed)
var FilesDeletedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_deleted_total",
		Help:      "Total number of file deletions, by mode.",
	},
	[]string{"mode"},
)

// UploadBytes measures the size distribution of stored files.
var UploadBytes = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upload_bytes",
		Help:      "Size in bytes of uploaded files.",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB … ~256MiB
	},
)
