package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDLQTopic(t *testing.T) {
	tests := []struct {
		name     string
		topic    string
		expected string
	}{
		{"order completions", "order.completed", "ratings.dlq.order.completed"},
		{"review events", "ratings.review.submitted", "ratings.dlq.ratings.review.submitted"},
		{"single segment", "orders", "ratings.dlq.orders"},
		{"empty topic", "", "ratings.dlq."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DLQTopic(tt.topic))
		})
	}
}

func TestNewDLQProducer(t *testing.T) {
	p := NewDLQProducer([]string{"localhost:9092"}, testLogger())

	assert.NotNil(t, p)
	assert.NoError(t, p.Close())
}
