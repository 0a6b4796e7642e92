package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "installerhub_messages_sent_total",
			Help: "Total chat messages stored",
		},
		[]string{"sender_type"},
	)

	MessagesRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "installerhub_messages_read_total",
			Help: "Total messages transitioned to read",
		},
		[]string{"viewer_type"},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "installerhub_notifications_created_total",
			Help: "Total admin notifications created",
		},
		[]string{"type"},
	)

	ListenerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "installerhub_event_listener_failures_total",
			Help: "Event hub handlers that returned an error or panicked",
		},
		[]string{"event"},
	)

	ConversationsMerged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "installerhub_conversations_merged_total",
			Help: "Duplicate conversations folded into their installer's primary conversation",
		},
	)
)
