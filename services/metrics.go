package services

import "github.com/prometheus/client_golang/prometheus"

var (
	xpAwardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xp_awarded_total",
		Help: "Total XP awarded across all completions",
	})
	xpRemovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xp_removed_total",
		Help: "Total XP removed by reversals",
	})
	levelUpsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "level_ups_total",
		Help: "Total level-up transitions",
	})
	challengeCompletionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "challenge_completions_total",
		Help: "Total participants reaching a challenge goal",
	})
	verificationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verification_failures_total",
		Help: "Total AI verification calls that failed hard",
	})
)

// InitMetrics registers the domain metrics. Call once from main.go.
func InitMetrics() {
	prometheus.MustRegister(xpAwardedTotal)
	prometheus.MustRegister(xpRemovedTotal)
	prometheus.MustRegister(levelUpsTotal)
	prometheus.MustRegister(challengeCompletionsTotal)
	prometheus.MustRegister(verificationFailuresTotal)
}
