package player

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxplay_player_fetches_total",
		Help: "Blocks served to viewers.",
	})
	metricAnswers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxplay_player_answers_total",
		Help: "Accepted answers and button clicks.",
	})
	metricRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxplay_player_answers_rejected_total",
		Help: "Answers rejected by validation.",
	})
	metricCompletions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxplay_player_completions_total",
		Help: "Runs that reached the end of their script.",
	})
)
