package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MarksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_marks_total",
			Help: "Attendance marks committed, by classification and method",
		},
		[]string{"status", "method"},
	)

	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_sessions_total",
			Help: "Session lifecycle transitions",
		},
		[]string{"event"},
	)

	ResetRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "password_reset_requests_total",
			Help: "Password reset requests, by delivery outcome",
		},
		[]string{"outcome"},
	)

	AbsenteesReconciled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attendance_absentees_reconciled_total",
			Help: "ABSENT records backfilled by the worker",
		},
	)
)
