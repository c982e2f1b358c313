package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "relay_events_processed",
	Help: "Number of conversation events processed, by outcome",
}, []string{"outcome"})

var alertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "relay_alerts_raised",
	Help: "Number of operator alerts raised, by type",
}, []string{"type"})

var deliveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "relay_delivery_attempts",
	Help: "Number of outbound delivery attempts, by result",
}, []string{"result"})

var messagesClassified = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "relay_messages_classified",
	Help: "Number of messages classified, by sentiment",
}, []string{"sentiment"})
