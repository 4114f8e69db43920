// Package messaging publishes loan domain events to Kafka.
package messaging

import (
	"context"

	"github.com/wyfcoding/loanservicing/internal/loan/domain"
	"github.com/wyfcoding/loanservicing/pkg/mq"
)

// KafkaEventPublisher sends events to the loan events topic, keyed by loan id
// so all events of one loan land on the same partition in order.
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

func NewKafkaEventPublisher(producer *mq.KafkaProducer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event domain.Event) error {
	return p.producer.SendMessage(ctx, p.topic, event.LoanID, event)
}
