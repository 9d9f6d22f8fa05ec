package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var captureCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modgate_edits_captured",
	Help: "Number of tracked edits captured into moderation records",
}, []string{"type"})

var decisionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modgate_decisions",
	Help: "Number of moderation decisions persisted",
}, []string{"type", "status"})

var decisionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "modgate_decision_duration_sec",
	Help: "Total duration of moderation decision processing",
}, []string{"op"})

var notifyErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modgate_notify_errors",
	Help: "Number of user notifications which failed to send",
}, []string{"type"})
