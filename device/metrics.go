package device

import (
	"github.com/prometheus/client_golang/prometheus"
)

var deviceEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ifset",
	Subsystem: "device",
	Name:      "events_total",
	Help:      "The number of device lifecycle events delivered, by type.",
}, []string{"type"})

func init() {
	prometheus.MustRegister(deviceEvents)
}
