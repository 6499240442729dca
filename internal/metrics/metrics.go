// Package metrics records game and request counters in Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the game service reports to.
type Recorder interface {
	GameStarted(daily bool)
	AttemptSubmitted(outcome string)
	GameFinished(won bool, attempts int)
	AchievementUnlocked(name string)
	WriteConflict()
}

// Attempt outcomes.
const (
	OutcomeAccepted     = "accepted"
	OutcomeInvalidWord  = "invalid_word"
	OutcomeGameFinished = "game_finished"
	OutcomeError        = "error"
)

// Prometheus is a Recorder backed by its own registry.
type Prometheus struct {
	reg          *prometheus.Registry
	gamesStarted *prometheus.CounterVec
	attempts     *prometheus.CounterVec
	gamesEnded   *prometheus.CounterVec
	guesses      prometheus.Histogram
	achievements *prometheus.CounterVec
	conflicts    prometheus.Counter
	requests     *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New(namespace string) *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		reg: reg,
		gamesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "games_started_total",
			Help: "Games created, split by daily challenge.",
		}, []string{"daily"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "attempts_total",
			Help: "Submitted guesses by outcome.",
		}, []string{"outcome"}),
		gamesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "games_finished_total",
			Help: "Games that reached a terminal state.",
		}, []string{"result"}),
		guesses: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "game_attempts",
			Help:    "Attempts used by finished games.",
			Buckets: []float64{1, 2, 3, 4, 5, 6},
		}),
		achievements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "achievements_unlocked_total",
			Help: "Achievements granted.",
		}, []string{"achievement"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "write_conflicts_total",
			Help: "Optimistic concurrency conflicts on game writes.",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.gamesStarted, p.attempts, p.gamesEnded, p.guesses,
		p.achievements, p.conflicts, p.requests,
	)
	return p
}

func (p *Prometheus) GameStarted(daily bool) {
	p.gamesStarted.WithLabelValues(strconv.FormatBool(daily)).Inc()
}

func (p *Prometheus) AttemptSubmitted(outcome string) {
	p.attempts.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) GameFinished(won bool, attempts int) {
	result := "lost"
	if won {
		result = "won"
	}
	p.gamesEnded.WithLabelValues(result).Inc()
	p.guesses.Observe(float64(attempts))
}

func (p *Prometheus) AchievementUnlocked(name string) {
	p.achievements.WithLabelValues(name).Inc()
}

func (p *Prometheus) WriteConflict() { p.conflicts.Inc() }

// ObserveRequest records one served request.
func (p *Prometheus) ObserveRequest(method, route string, status int, d time.Duration) {
	p.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry { return p.reg }

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

// Noop discards everything.
type Noop struct{}

// NewNoop returns a Recorder for tests.
func NewNoop() Noop { return Noop{} }

func (Noop) GameStarted(bool)           {}
func (Noop) AttemptSubmitted(string)    {}
func (Noop) GameFinished(bool, int)     {}
func (Noop) AchievementUnlocked(string) {}
func (Noop) WriteConflict()             {}
