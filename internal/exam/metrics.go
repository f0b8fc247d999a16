package exam

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	examsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exam_generated_total",
		Help: "Exam sessions generated, by exam type.",
	}, []string{"exam_type"})

	examsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exam_submitted_total",
		Help: "Exam submissions scored, by exam type.",
	}, []string{"exam_type"})

	progressSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exam_progress_saves_total",
		Help: "Progress snapshots written.",
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "exam_sessions_active",
		Help: "Live exam sessions currently running.",
	})
)
