// Package metrics exposes Prometheus collectors for sessions and HTTP traffic.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aliskhannn/exam-simulation/internal/domain/entities"
)

var (
	// Counter for started sessions
	sessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_sessions_started_total",
			Help: "Total number of started exam sessions",
		},
		[]string{"mode"},
	)

	// Counter for finished sessions
	sessionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_sessions_finished_total",
			Help: "Total number of sessions that reached a terminal state",
		},
		[]string{"status"}, // status: completed/abandoned
	)

	// Counter for sessions abandoned by the sweeper
	sessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exam_sessions_expired_total",
			Help: "Total number of sessions abandoned after timing out",
		},
	)

	// Counter for submitted answers
	answersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_answers_submitted_total",
			Help: "Total number of recorded answers",
		},
		[]string{"correct"},
	)

	// Histogram for HTTP request duration
	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "exam_http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Recorder implements the service metrics sink on the default registry.
type Recorder struct{}

// NewRecorder creates a Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (*Recorder) SessionStarted(mode entities.Mode) {
	sessionsStarted.WithLabelValues(string(mode)).Inc()
}

func (*Recorder) AnswerSubmitted(correct bool) {
	answersSubmitted.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

func (*Recorder) SessionFinished(status entities.Status) {
	sessionsFinished.WithLabelValues(string(status)).Inc()
}

func (*Recorder) SessionsExpired(n int) {
	sessionsExpired.Add(float64(n))
}

// ObserveHTTP records the duration of one HTTP request.
func ObserveHTTP(method, route string, status int, seconds float64) {
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}
