// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "goodhabits"

var (
	HabitsTracked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "habits_tracked_total",
		Help:      "Successful habit track actions.",
	})
	Milestones = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "milestones_total",
		Help:      "Track actions that landed on a milestone streak.",
	})
	Resets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "habit_resets_total",
		Help:      "Successful habit reset actions.",
	})
	TabIngests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tab_ingests_total",
		Help:      "Tab snapshot uploads by outcome.",
	}, []string{"outcome"})
	ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_requests_total",
		Help:      "Calls to the completion API by outcome.",
	}, []string{"outcome"})
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Handled HTTP requests by method and status code.",
	}, []string{"method", "code"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
