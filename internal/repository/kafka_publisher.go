package repository

import (
	"context"
	"errors"
	"fmt"

	"CandleCast/internal/domain/models"
	"CandleCast/internal/domain/repository"
	pkgkafka "CandleCast/pkg/kafka"
)

type messageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}, headers ...pkgkafka.Header) error
	Close() error
}

// KafkaPublisher sends stage messages to the topic named by the address.
type KafkaPublisher struct {
	producer messageProducer
	stage    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer messageProducer, stage string) repository.Publisher {
	return &KafkaPublisher{producer: producer, stage: stage}
}

func (p *KafkaPublisher) Send(ctx context.Context, address, runID string, msg models.Message) error {
	if address == "" {
		return errors.New("no destination address")
	}
	err := p.producer.Publish(ctx, address, []byte(runID), msg,
		pkgkafka.Header{Key: pkgkafka.HeaderRunID, Value: runID},
		pkgkafka.Header{Key: pkgkafka.HeaderType, Value: msg.MessageType()},
		pkgkafka.Header{Key: pkgkafka.HeaderStage, Value: p.stage},
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("publish to %s: %w: %w", address, models.ErrUpstreamTimeout, err)
		}
		return fmt.Errorf("publish to %s: %w", address, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
