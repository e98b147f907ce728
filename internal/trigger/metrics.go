package trigger

import "github.com/prometheus/client_golang/prometheus"

var (
	firedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sysbridge",
			Subsystem: "trigger",
			Name:      "fired_total",
			Help:      "Total number of application events fired",
		},
		[]string{"event"},
	)

	suppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sysbridge",
			Subsystem: "trigger",
			Name:      "suppressed_total",
			Help:      "Changes on a watched source that did not fire the event",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(firedTotal, suppressedTotal)
}
