// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

/*
Package metrics exposes Prometheus instrumentation for the realtime core.

All collectors live on a [Set] constructed once at startup and injected
into the components that record them — no default-registry globals.
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set bundles every collector the realtime core records into.
type Set struct {
	registry *prometheus.Registry

	// ConnectionsLive is the number of currently registered sockets.
	ConnectionsLive prometheus.Gauge

	// ConnectionsTotal counts socket registrations since process start.
	ConnectionsTotal prometheus.Counter

	// ConnectionsEvicted counts oldest-socket evictions from the per-user cap.
	ConnectionsEvicted prometheus.Counter

	// FramesInbound counts parsed inbound frames by type.
	FramesInbound *prometheus.CounterVec

	// MessagesDelivered counts messages fanned out to at least one live socket.
	MessagesDelivered prometheus.Counter

	// MessagesQueued counts messages pushed to an offline queue.
	MessagesQueued prometheus.Counter

	// ReplayBatches counts offline-replay batches delivered on connect.
	ReplayBatches prometheus.Counter

	// SlowClientCloses counts sockets dropped because their send buffer filled.
	SlowClientCloses prometheus.Counter
}

// New constructs and registers the full collector set on a private registry.
func New() *Set {
	registry := prometheus.NewRegistry()

	set := &Set{
		registry: registry,
		ConnectionsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pulse", Subsystem: "realtime",
			Name: "connections_live",
			Help: "Number of currently registered websocket connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pulse", Subsystem: "realtime",
			Name: "connections_total",
			Help: "Total websocket registrations since start.",
		}),
		ConnectionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pulse", Subsystem: "realtime",
			Name: "connections_evicted_total",
			Help: "Oldest-socket evictions caused by the per-user connection cap.",
		}),
		FramesInbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse", Subsystem: "realtime",
			Name: "frames_inbound_total",
			Help: "Inbound frames by frame type.",
		}, []string{"type"}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pulse", Subsystem: "realtime",
			Name: "messages_delivered_total",
			Help: "Messages fanned out to at least one live socket.",
		}),
		MessagesQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pulse", Subsystem: "realtime",
			Name: "messages_queued_total",
			Help: "Messages pushed to an offline queue.",
		}),
		ReplayBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pulse", Subsystem: "realtime",
			Name: "replay_batches_total",
			Help: "Offline replay batches delivered on connect.",
		}),
		SlowClientCloses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pulse", Subsystem: "realtime",
			Name: "slow_client_closes_total",
			Help: "Sockets closed because the outbound buffer filled.",
		}),
	}

	registry.MustRegister(
		set.ConnectionsLive,
		set.ConnectionsTotal,
		set.ConnectionsEvicted,
		set.FramesInbound,
		set.MessagesDelivered,
		set.MessagesQueued,
		set.ReplayBatches,
		set.SlowClientCloses,
	)

	return set
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (set *Set) Handler() http.Handler {
	return promhttp.HandlerFor(set.registry, promhttp.HandlerOpts{})
}
