package kafka

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"marketplace-admin-svc/marketplace"
	"marketplace-admin-svc/models"
)

func InitConsumer(logger *zap.Logger) (sarama.Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true

	brokers := []string{getEnv("KAFKA_BROKER", "localhost:9092")}

	consumer, err := sarama.NewConsumer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Info("Kafka consumer initialized")
	return consumer, nil
}

// StartConsumer repairs the marketplace mirror from catalog events. Delivery
// is at-least-once and every repair is an idempotent per-product resync, so
// duplicate or reordered events converge on the same mirror state.
func StartConsumer(consumer sarama.Consumer, db *sql.DB, sync *marketplace.Synchronizer, logger *zap.Logger) error {
	topic := getEnv("KAFKA_TOPIC", CatalogTopic)
	partitionConsumer, err := consumer.ConsumePartition(topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer partitionConsumer.Close()

	logger.Info("Kafka consumer started", zap.String("topic", topic))

	return consume(partitionConsumer, db, sync, logger)
}

// consume drains the partition until its message channel closes, which
// happens when the consumer is closed during shutdown. Buffered messages are
// still handled after the close.
func consume(pc sarama.PartitionConsumer, db *sql.DB, sync *marketplace.Synchronizer, logger *zap.Logger) error {
	errorsCh := pc.Errors()
	for {
		select {
		case message, ok := <-pc.Messages():
			if !ok {
				return nil
			}
			if err := handleMessage(message, db, sync, logger); err != nil {
				logger.Error("Failed to handle catalog event", zap.Error(err))
			}
		case err, ok := <-errorsCh:
			if !ok {
				errorsCh = nil
				continue
			}
			logger.Error("Kafka consumer error", zap.Error(err))
		}
	}
}

func handleMessage(message *sarama.ConsumerMessage, db *sql.DB, sync *marketplace.Synchronizer, logger *zap.Logger) error {
	// Extract trace context from Kafka message headers
	var propagator propagation.TextMapPropagator = otel.GetTextMapPropagator()
	carrier := saramaHeaderCarrierConsumer(message.Headers)
	ctx := propagator.Extract(context.Background(), carrier)

	ctx, span := otel.Tracer("marketplace-admin-service").Start(ctx, "RepairMirror")
	defer span.End()

	var event models.CatalogEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to unmarshal catalog event: %w", err)
	}

	span.SetAttributes(
		attribute.Int64("product.id", event.ProductID),
		attribute.String("event.type", event.EventType),
	)

	// ResyncProduct handles created, updated and deleted alike: it upserts
	// when the product row exists and removes the mirror entry when it does
	// not.
	if err := sync.ResyncProduct(ctx, db, event.ProductID); err != nil {
		span.RecordError(err)
		return err
	}

	logger.Info("Mirror repaired from catalog event",
		zap.Int64("product_id", event.ProductID),
		zap.String("event_type", event.EventType),
	)
	return nil
}

// saramaHeaderCarrierConsumer implements the TextMapCarrier interface for Kafka headers (for consumer)
type saramaHeaderCarrierConsumer []*sarama.RecordHeader

func (c saramaHeaderCarrierConsumer) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c saramaHeaderCarrierConsumer) Set(key, value string) {}

func (c saramaHeaderCarrierConsumer) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
