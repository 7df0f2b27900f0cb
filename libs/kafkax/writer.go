package kafkax

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter builds a synchronous writer for one topic. The Hash balancer pins
// messages with the same key to one partition, which is what preserves
// per-aggregate ordering downstream.
func NewWriter(brokers []string, topic string, sendTimeout time.Duration) *kafka.Writer {
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: sendTimeout,
		BatchTimeout: 10 * time.Millisecond,
	}
}
