package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PermissionDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helpdesk",
		Name:      "permission_denials_total",
		Help:      "Access guard denials by the entity type of the failed check.",
	}, []string{"entity_type"})

	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "helpdesk",
		Name:      "audit_write_failures_total",
		Help:      "Audit log appends that failed to commit.",
	})

	AttachmentScans = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helpdesk",
		Name:      "attachment_scans_total",
		Help:      "Attachment scan results by outcome.",
	}, []string{"result"})

	DownloadsBlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helpdesk",
		Name:      "attachment_downloads_blocked_total",
		Help:      "Attachment downloads refused by the scan gate, by reason.",
	}, []string{"reason"})

	RetentionSweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helpdesk",
		Name:      "attachment_retention_sweeps_total",
		Help:      "Retention sweep outcomes per attachment.",
	}, []string{"outcome"})
)

// Handler exposes the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
