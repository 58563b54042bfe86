package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutsCommittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "equiptrack_checkouts_committed_total",
		Help: "Total number of checkout records created by committed sessions.",
	})

	ReturnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "equiptrack_returns_total",
		Help: "Total number of checkouts returned.",
	})

	LossesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "equiptrack_losses_total",
		Help: "Total number of checkouts marked lost.",
	})

	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "equiptrack_resolutions_total",
		Help: "Scanned codes by the tier that resolved them.",
	},
		[]string{"method"},
	)

	ConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "equiptrack_conflicts_total",
		Help: "Stale availability writes, by whether the retry recovered.",
	},
		[]string{"outcome"},
	)

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "equiptrack_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "equiptrack_notifications_total",
		Help: "Notification deliveries by sink and result.",
	},
		[]string{"sink", "result"},
	)

	ReconcileAdjustmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "equiptrack_reconcile_adjustments_total",
		Help: "Availability counters corrected by the reconcile sweep.",
	})

	OverdueMarkedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "equiptrack_overdue_marked_total",
		Help: "Checkouts flipped to overdue.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "equiptrack_active_sessions",
		Help: "Checkout sessions started and not yet committed or cancelled in this process.",
	})
)
