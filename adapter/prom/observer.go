// Package prom exports xframe notices as Prometheus metrics.
//
// Labels are bounded: notice type and, for bus notices, message kind. Entity
// and instance descriptions are never used as labels.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trickstertwo/xframe"
)

// Observer is an xframe.Observer that feeds Prometheus collectors.
type Observer struct {
	events        *prometheus.CounterVec
	messages      *prometheus.CounterVec
	frameDuration prometheus.Histogram
	passDuration  prometheus.Histogram
	dispatch      prometheus.Histogram
	thinks        prometheus.Histogram
	frameMessages prometheus.Gauge
}

var _ xframe.Observer = (*Observer)(nil)

// New registers the xframe collectors on reg (prometheus.DefaultRegisterer
// when nil) under namespace (default "xframe").
func New(reg prometheus.Registerer, namespace string) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "xframe"
	}
	f := promauto.With(reg)

	return &Observer{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Lifecycle notices by type",
		}, []string{"type"}),
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Bus notices by message kind and outcome",
		}, []string{"kind", "outcome"}),
		frameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Time spent in one world frame",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1},
		}),
		passDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_pass_duration_seconds",
			Help:      "Time spent in one scheduler update pass",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1},
		}),
		dispatch: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent delivering one message",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		thinks: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_pass_entities",
			Help:      "Entities updated per pass",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		frameMessages: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frame_messages",
			Help:      "Messages delivered by the last frame",
		}),
	}
}

func (o *Observer) OnEvent(e xframe.Event) {
	o.events.WithLabelValues(string(e.Type)).Inc()

	switch e.Type {
	case xframe.Published, xframe.Dropped, xframe.Delivered, xframe.Undelivered, xframe.ListenerPanic:
		o.messages.WithLabelValues(string(e.Kind), string(e.Type)).Inc()
		if e.Type == xframe.Delivered {
			o.dispatch.Observe(e.Duration.Seconds())
		}
	case xframe.FrameDone:
		o.frameDuration.Observe(e.Duration.Seconds())
		o.frameMessages.Set(float64(e.Count))
	case xframe.TickDone:
		o.passDuration.Observe(e.Duration.Seconds())
		o.thinks.Observe(float64(e.Count))
	}
}
