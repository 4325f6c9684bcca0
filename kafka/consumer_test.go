package kafka

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"marketplace-admin-svc/marketplace"
)

func setupConsumerTest(t *testing.T) (sarama.PartitionConsumer, *marketplace.Synchronizer, *zap.Logger) {
	consumer := mocks.NewConsumer(t, nil)
	consumer.ExpectConsumePartition(CatalogTopic, 0, sarama.OffsetNewest)

	pc, err := consumer.ConsumePartition(CatalogTopic, 0, sarama.OffsetNewest)
	if err != nil {
		t.Fatalf("Failed to consume partition: %v", err)
	}

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	return pc, marketplace.NewSynchronizer(nil, logger), logger
}

func TestConsume_StopsWhenPartitionCloses(t *testing.T) {
	pc, sync, logger := setupConsumerTest(t)

	pc.AsyncClose()

	if err := consume(pc, nil, sync, logger); err != nil {
		t.Errorf("Expected clean stop when the partition closes, got %v", err)
	}
}

func TestConsume_RepairsMirrorFromCatalogEvent(t *testing.T) {
	pc, sync, logger := setupConsumerTest(t)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	// Product 7 no longer exists, so the repair removes its mirror row.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM products WHERE id = \\$1").
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("DELETE FROM marketplace_items WHERE product_id = \\$1").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mockPC := pc.(*mocks.PartitionConsumer)
	mockPC.YieldMessage(&sarama.ConsumerMessage{
		Value: []byte(`{"product_id":7,"event_type":"product_deleted"}`),
	})
	// The buffered message is still delivered after the close.
	pc.AsyncClose()

	if err := consume(pc, db, sync, logger); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}
