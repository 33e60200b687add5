package channel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "minichat",
		Subsystem: "channel",
		Name:      "frames_total",
		Help:      "Frames exchanged with the relay.",
	}, []string{"direction", "event"})

	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "minichat",
		Subsystem: "channel",
		Name:      "dropped_total",
		Help:      "Frames dropped because the channel was not connected, the send buffer was full, or the frame was malformed.",
	}, []string{"event"})

	reconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "minichat",
		Subsystem: "channel",
		Name:      "reconnects_total",
		Help:      "Successful automatic reconnects.",
	})

	connectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "minichat",
		Subsystem: "channel",
		Name:      "connected",
		Help:      "1 while connected to the relay.",
	})
)
