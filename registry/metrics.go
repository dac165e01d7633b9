package registry

import (
	metrics "github.com/docker/go-metrics"
)

var (
	ns = metrics.NewNamespace("ifset", "registry", nil)

	entriesGauge   = ns.NewGauge("entries", "The number of interfaces in the managed set", metrics.Unit(""))
	boundGauge     = ns.NewGauge("bound_entries", "The number of managed interfaces bound to a live device", metrics.Unit(""))
	reclaimPending = ns.NewGauge("reclaim_pending", "The number of retired objects waiting for a grace period", metrics.Unit(""))

	operations = ns.NewLabeledCounter("operations", "The number of registry mutations by operation and result", "operation", "result")

	updateLatency = ns.NewTimer("update_latency", "The time the registry update lock is held")
	reclaimDelay  = ns.NewTimer("reclaim_delay", "The time between retiring an object and releasing it")
)

func init() {
	metrics.Register(ns)
}

func observe(operation string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case IsErrDuplicateName(err):
		result = "duplicate"
	case IsErrAllocationFailure(err):
		result = "full"
	case IsErrInvalidName(err):
		result = "invalid"
	default:
		result = "error"
	}
	operations.WithValues(operation, result).Inc(1)
}
