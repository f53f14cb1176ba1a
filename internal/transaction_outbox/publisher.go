package transaction_outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alekl79/peachtree-bank-poc/internal/config"
	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/models"
)

// KafkaPublisher writes outbox events keyed by transaction id, so every
// event of one transaction lands on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(
	lc fx.Lifecycle,
	cfg *Config,
	globalCFG *config.Config,
	errLogger *logging.KafkaErrorLogger,
	logger *logging.KafkaLogger,
) *KafkaPublisher {
	pub := &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(globalCFG.KafkaBrokers...),
			Topic:        cfg.KafkaTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: time.Duration(cfg.KafkaWriteTimeout) * time.Millisecond,
			ErrorLogger:  errLogger,
			Logger:       logger,
		},
	}

	lc.Append(
		fx.Hook{
			OnStop: func(ctx context.Context) error {
				return pub.writer.Close()
			},
		},
	)

	return pub
}

func (pub *KafkaPublisher) Publish(ctx context.Context, e *models.TransactionEvent) error {
	msg, err := NewMessage(e)
	if err != nil {
		return err
	}

	if err := pub.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("transaction_outbox/publisher: write message error %w", err)
	}

	return nil
}

// NewMessage encodes the event payload as a protobuf Struct.
func NewMessage(e *models.TransactionEvent) (kafka.Message, error) {
	payload, err := structpb.NewStruct(map[string]any{
		"event_uuid":     e.UUID.String(),
		"event_name":     e.Name,
		"transaction_id": e.Meta.TransactionID.String(),
		"from_account":   e.Meta.FromAccount,
		"to_account":     e.Meta.ToAccount,
		"amount":         e.Meta.Amount,
		"state":          e.Meta.State.String(),
		"version":        e.Meta.Version,
		"occurred_at":    e.Meta.OccurredAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("transaction_outbox/publisher: build payload error %w", err)
	}

	value, err := proto.Marshal(payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("transaction_outbox/publisher: marshal payload error %w", err)
	}

	return kafka.Message{
		Key:   []byte(e.Meta.TransactionID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_name", Value: []byte(e.Name)},
			{Key: "event_uuid", Value: []byte(e.UUID.String())},
		},
		Time: e.CreatedAt,
	}, nil
}
