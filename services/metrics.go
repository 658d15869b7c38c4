package services

import (
	"github.com/prometheus/client_golang/prometheus"

	"journal-api/notify"
)

var (
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_workflow_transitions_total",
			Help: "Workflow actions that committed, by action.",
		},
		[]string{"action"},
	)
	rejectedActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_workflow_rejected_total",
			Help: "Workflow actions that failed, by action and error kind.",
		},
		[]string{"action", "kind"},
	)
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_notifications_total",
			Help: "Notification deliveries by sink and result.",
		},
		[]string{"sink", "result"},
	)
	remindersSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_review_reminders_total",
			Help: "Overdue review reminders emitted.",
		},
	)
)

func init() {
	prometheus.MustRegister(transitionsTotal, rejectedActionsTotal, notificationsTotal, remindersSentTotal)
}

func observeAction(action Action, err error) {
	if err == nil {
		transitionsTotal.WithLabelValues(string(action)).Inc()
		return
	}
	rejectedActionsTotal.WithLabelValues(string(action), KindOf(err).String()).Inc()
}

// NotificationObserver counts dispatcher outcomes.
func NotificationObserver() notify.Observer {
	return func(sink, key string, err error) {
		result := "ok"
		if err != nil {
			result = "error"
		}
		notificationsTotal.WithLabelValues(sink, result).Inc()
	}
}
