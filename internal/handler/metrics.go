package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/picvault/picvault/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "picvault_users_registered_total %d\n", snap.UsersRegistered)
	writeMetric(w, "picvault_logins_total{status=\"success\"} %d\n", snap.LoginsSucceeded)
	writeMetric(w, "picvault_logins_total{status=\"failure\"} %d\n", snap.LoginsFailed)

	writeMetric(w, "picvault_images_uploaded_total %d\n", snap.ImagesUploaded)
	writeMetric(w, "picvault_images_deleted_total %d\n", snap.ImagesDeleted)

	reasons := make([]string, 0, len(snap.UploadsRejected))
	for reason := range snap.UploadsRejected {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		writeMetric(w, "picvault_uploads_rejected_total{reason=%q} %d\n", reason, snap.UploadsRejected[reason])
	}

	writeMetric(w, "picvault_upload_duration_seconds_count %d\n", snap.UploadDurationCount)
	writeMetric(w, "picvault_upload_duration_seconds_sum %.6f\n", float64(snap.UploadDurationTotalNs)/1e9)
	writeMetric(w, "picvault_upload_bytes_total %d\n", snap.UploadBytesTotal)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
