// Package telemetry exposes BBS counters to prometheus.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const namespace = "meshbbs"

var (
	PacketsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Inbound text packets by transport.",
		},
		[]string{"transport"},
	)

	Replies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Replies produced, by the menu context they left the session in.",
		},
		[]string{"menu"},
	)

	DispatchSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_seconds",
			Help:      "Time to route one inbound packet to a reply.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	Fragments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_total",
			Help:      "Outbound fragments by result (sent, failed, cancelled).",
		},
		[]string{"result"},
	)

	Posts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_total",
			Help:      "Messages posted to the board, by topic.",
		},
		[]string{"topic"},
	)

	BoardMessages = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "board_messages",
			Help:      "Messages currently on the board, by topic.",
		},
		[]string{"topic"},
	)

	BoardSaveFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "board_save_failures_total",
			Help:      "Board persistence attempts that failed.",
		},
	)

	HandsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blackjack_hands_total",
			Help:      "Settled blackjack hands by outcome.",
		},
		[]string{"outcome"},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Identities with a live session.",
		},
	)

	SessionsEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_evicted_total",
			Help:      "Sessions removed by the idle sweep.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		PacketsReceived,
		Replies,
		DispatchSeconds,
		Fragments,
		Posts,
		BoardMessages,
		BoardSaveFailures,
		HandsSettled,
		SessionsActive,
		SessionsEvicted,
	)
}

// Handler serves the default registry on fasthttp.
func Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
}
