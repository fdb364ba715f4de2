package repository

import (
	"context"

	"PropRecon/internal/domain/models"
	"PropRecon/internal/domain/repository"
	pkgkafka "PropRecon/pkg/kafka"
)

// KafkaSignalPublisher delivers each run's natural signals to the
// governance topic. Messages are keyed by observed listing id so signals
// for the same listing land in one partition, in order.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalPublisher creates the publisher.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) PublishSignals(ctx context.Context, signals []models.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(signals))
	for i, s := range signals {
		msgs[i] = pkgkafka.Message{
			Key: []byte(s.ObservedListingID),
			Value: map[string]interface{}{
				"id":                  s.ID,
				"type":                string(s.Type),
				"severity":            string(s.Severity),
				"observed_listing_id": s.ObservedListingID,
				"matched_listing_id":  s.MatchedListingID,
				"payload":             s.Payload,
				"status":              string(s.Status),
				"created_at":          s.CreatedAt,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
