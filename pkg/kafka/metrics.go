package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Consumer metrics are labeled by topic and consumer group so the order
// completion consumer and any future subscriptions chart separately.
var (
	ConsumerMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_messages_received_total",
			Help: "Kafka messages fetched from the broker, before handling",
		},
		[]string{"topic", "consumer_group"},
	)

	ConsumerMessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_messages_processed_total",
			Help: "Kafka messages whose handler completed successfully",
		},
		[]string{"topic", "consumer_group"},
	)

	ConsumerMessagesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_messages_failed_total",
			Help: "Kafka messages that exhausted handler retries and went to the dead-letter queue or were dropped",
		},
		[]string{"topic", "consumer_group"},
	)

	ConsumerProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_consumer_processing_duration_seconds",
			Help:    "Time spent handling one Kafka message",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic", "consumer_group"},
	)

	// ConsumerMessagesDuplicate is labeled by event type rather than topic;
	// the idempotency guard sits above the transport and sees the envelope,
	// not the Kafka message.
	ConsumerMessagesDuplicate = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_messages_duplicate_total",
			Help: "Duplicate Kafka deliveries skipped by the idempotency guard",
		},
		[]string{"event_type"},
	)

	ConsumerDLQPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_dlq_published_total",
			Help: "Messages routed to a dead-letter queue topic",
		},
		[]string{"topic", "consumer_group"},
	)
)

// Producer metrics cover the ratings.* event topics.
var (
	ProducerMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_producer_messages_published_total",
			Help: "Kafka messages published successfully",
		},
		[]string{"topic"},
	)

	ProducerPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_producer_publish_errors_total",
			Help: "Kafka publish attempts that failed",
		},
		[]string{"topic"},
	)

	ProducerPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_producer_publish_duration_seconds",
			Help:    "Time spent publishing one Kafka message, failures included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
)
