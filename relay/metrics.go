package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "minichat",
		Subsystem: "relay",
		Name:      "connections",
		Help:      "Open client connections.",
	})

	inFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "minichat",
		Subsystem: "relay",
		Name:      "frames_in_total",
		Help:      "Frames received from clients by event.",
	}, []string{"event"})

	outFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "minichat",
		Subsystem: "relay",
		Name:      "broadcasts_total",
		Help:      "Presence broadcasts and typing forwards.",
	}, []string{"event"})

	droppedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "minichat",
		Subsystem: "relay",
		Name:      "frames_dropped_total",
		Help:      "Client frames dropped by reason.",
	}, []string{"reason"})

	routedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "minichat",
		Subsystem: "relay",
		Name:      "messages_total",
		Help:      "Routed chat messages by delivery result.",
	}, []string{"result"})

	archiveErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "minichat",
		Subsystem: "relay",
		Name:      "archive_errors_total",
		Help:      "Messages that could not be archived to kafka.",
	})
)
