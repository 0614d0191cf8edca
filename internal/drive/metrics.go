package drive

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drive_uploads_total",
			Help: "Upload attempts by outcome",
		},
		[]string{"result"},
	)

	downloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drive_downloads_total",
			Help: "Download attempts by outcome",
		},
		[]string{"result"},
	)

	transferredBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drive_transferred_bytes_total",
			Help: "Bytes committed to drives (upload) or charged against bandwidth (download)",
		},
		[]string{"direction"},
	)

	quotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drive_quota_rejections_total",
			Help: "Writes or downloads refused by a ledger",
		},
		[]string{"ledger"},
	)

	reconcileDrift = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drive_reconcile_drift_bytes_total",
			Help: "Absolute storage_used drift corrected by reconciliation",
		},
	)
)

// uploadResult maps an upload outcome to its metric label.
func uploadResult(err error, skipped bool) string {
	switch {
	case err == nil && skipped:
		return "skipped"
	case err == nil:
		return "success"
	default:
		return resultLabel(err)
	}
}
