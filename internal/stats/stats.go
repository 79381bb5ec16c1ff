/*
Copyright (c) The open62541-go Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package stats exports the running server's counters as Prometheus
// gauges/counters: one Inc-style method per event, backed by a private
// *prometheus.Registry served over HTTP with promhttp.
package stats

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the counter set threaded through server.Server, the
// SubscriptionEngine and the PubSubEngine. It implements
// subscription.Metrics so the engine can be wired with a *Metrics directly.
type Metrics struct {
	registry *prometheus.Registry

	channelsOpen     prometheus.Gauge
	channelsOpened   prometheus.Counter
	channelsClosed   prometheus.Counter
	securityFailures prometheus.Counter

	sessionsActive  prometheus.Gauge
	sessionsCreated prometheus.Counter
	sessionsExpired prometheus.Counter

	subscriptionsActive prometheus.Gauge
	publishCycles       prometheus.Counter
	lateCycles          prometheus.Counter
	keepalives          prometheus.Counter
	evictions           prometheus.Counter

	writerGroupPublishes prometheus.Counter
	readerGroupReceives  prometheus.Counter
	readerGroupDropped   prometheus.Counter
}

// New constructs a Metrics bound to its own fresh *prometheus.Registry
// rather than the global default one, so tests can construct independent
// instances.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		channelsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "opcua_channels_open", Help: "SecureChannels currently open.",
		}),
		channelsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "opcua_channels_opened_total", Help: "SecureChannels opened since start.",
		}),
		channelsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "opcua_channels_closed_total", Help: "SecureChannels closed since start.",
		}),
		securityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "opcua_security_failures_total", Help: "Chunks rejected by SecureChannel verification.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "opcua_sessions_active", Help: "Sessions currently live.",
		}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "opcua_sessions_created_total", Help: "Sessions created since start.",
		}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "opcua_sessions_expired_total", Help: "Sessions purged for inactivity.",
		}),
		subscriptionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "opcua_subscriptions_active", Help: "Subscriptions currently live.",
		}),
		publishCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "opcua_publish_cycles_total", Help: "SubscriptionEngine publish cycles run.",
		}),
		lateCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "opcua_publish_late_total", Help: "Publish cycles that found a subscription Late.",
		}),
		keepalives: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "opcua_keepalives_total", Help: "Keepalive NotificationMessages sent.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "opcua_retransmission_evictions_total", Help: "Retransmission queue entries evicted before acknowledgement.",
		}),
		writerGroupPublishes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "opcua_pubsub_writer_publishes_total", Help: "WriterGroup publish cycles run.",
		}),
		readerGroupReceives: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "opcua_pubsub_reader_receives_total", Help: "ReaderGroup NetworkMessages received.",
		}),
		readerGroupDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "opcua_pubsub_reader_dropped_total", Help: "ReaderGroup DataSetMessages dropped (unknown writer or out of order).",
		}),
	}
	reg.MustRegister(
		m.channelsOpen, m.channelsOpened, m.channelsClosed, m.securityFailures,
		m.sessionsActive, m.sessionsCreated, m.sessionsExpired,
		m.subscriptionsActive, m.publishCycles, m.lateCycles, m.keepalives, m.evictions,
		m.writerGroupPublishes, m.readerGroupReceives, m.readerGroupDropped,
	)
	return m
}

// ChannelOpened/ChannelClosed/SecurityFailure record SecureChannel lifecycle
// events.
func (m *Metrics) ChannelOpened()   { m.channelsOpen.Inc(); m.channelsOpened.Inc() }
func (m *Metrics) ChannelClosed()   { m.channelsOpen.Dec(); m.channelsClosed.Inc() }
func (m *Metrics) SecurityFailure() { m.securityFailures.Inc() }

// SessionCreated/SessionExpired record Session lifecycle events.
func (m *Metrics) SessionCreated() { m.sessionsActive.Inc(); m.sessionsCreated.Inc() }
func (m *Metrics) SessionExpired() { m.sessionsActive.Dec(); m.sessionsExpired.Inc() }
func (m *Metrics) SessionClosed()  { m.sessionsActive.Dec() }

// SubscriptionCreated/SubscriptionDeleted track live subscription count.
func (m *Metrics) SubscriptionCreated() { m.subscriptionsActive.Inc() }
func (m *Metrics) SubscriptionDeleted() { m.subscriptionsActive.Dec() }

// IncPublishCycle, IncLate, IncKeepalive and IncEviction implement
// subscription.Metrics.
func (m *Metrics) IncPublishCycle() { m.publishCycles.Inc() }
func (m *Metrics) IncLate()         { m.lateCycles.Inc() }
func (m *Metrics) IncKeepalive()    { m.keepalives.Inc() }
func (m *Metrics) IncEviction()     { m.evictions.Inc() }

// IncWriterGroupPublish and IncReaderGroupReceive/Dropped record PubSubEngine
// cycles.
func (m *Metrics) IncWriterGroupPublish()  { m.writerGroupPublishes.Inc() }
func (m *Metrics) IncReaderGroupReceive()  { m.readerGroupReceives.Inc() }
func (m *Metrics) IncReaderGroupDropped(n int) {
	if n > 0 {
		m.readerGroupDropped.Add(float64(n))
	}
}

// Handler returns the HTTP handler to mount at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve starts an HTTP server exposing Handler at /metrics on addr,
// running until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return err
	}
}
