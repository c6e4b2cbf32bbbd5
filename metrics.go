// SPDX-License-Identifier: GPL-3.0-or-later

package svcres

import "github.com/prometheus/client_golang/prometheus"

// failFastMetrics implements the `failfast/*` metrics namespace. The two
// gauges are sampled on read, which maps directly onto
// [prometheus.GaugeFunc]'s pull-based evaluation model.
type failFastMetrics struct {
	markedDead      prometheus.Counter
	markedAvailable prometheus.Counter
	unhealthyForMS  prometheus.GaugeFunc
	unhealthyTries  prometheus.GaugeFunc
}

func newFailFastMetrics(name string, unhealthyForMS func() float64, unhealthyTries func() float64) *failFastMetrics {
	constLabels := prometheus.Labels{"endpoint": name}
	m := &failFastMetrics{
		markedDead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "failfast",
			Name:        "marked_dead",
			Help:        "Number of times this endpoint transitioned from Ok to Retrying.",
			ConstLabels: constLabels,
		}),
		markedAvailable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "failfast",
			Name:        "marked_available",
			Help:        "Number of times this endpoint transitioned from Retrying to Ok.",
			ConstLabels: constLabels,
		}),
	}
	m.unhealthyForMS = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "failfast",
		Name:        "unhealthy_for_ms",
		Help:        "Milliseconds since this endpoint entered Retrying, or 0 when Ok.",
		ConstLabels: constLabels,
	}, unhealthyForMS)
	m.unhealthyTries = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "failfast",
		Name:        "unhealthy_num_tries",
		Help:        "Probe attempts made since entering Retrying, or 0 when Ok.",
		ConstLabels: constLabels,
	}, unhealthyTries)
	return m
}

// cacheMetrics implements the `dtabcache/*`/`namecache/*` metrics
// namespaces.
type cacheMetrics struct {
	size     prometheus.GaugeFunc
	evicted  prometheus.Counter
	oneshots prometheus.Counter
}

func newCacheMetrics(namespace string, size func() float64) *cacheMetrics {
	return &cacheMetrics{
		size: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "size",
			Help:      "Number of entries currently cached.",
		}, size),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evicted",
			Help:      "Number of entries evicted to make room for a new one.",
		}),
		oneshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oneshots",
			Help:      "Number of factories created outside the cache because every entry was pinned.",
		}),
	}
}
