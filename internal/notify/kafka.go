package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaNotifier publishes credential events to a Kafka topic, keyed by
// record ID so one record's events stay ordered within a partition. Produce
// is asynchronous; delivery failures are logged, never surfaced, keeping the
// fire-and-forget contract.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaNotifier connects to the given brokers. The caller owns Close.
func NewKafkaNotifier(brokers []string, topic string, logger *slog.Logger) (*KafkaNotifier, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaNotifier{client: client, topic: topic, logger: logger}, nil
}

func (n *KafkaNotifier) Notify(ctx context.Context, event CredentialEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("marshal credential event", "kind", event.Kind, "error", err)
		return
	}
	record := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(event.RecordID),
		Value: payload,
	}
	n.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			n.logger.Error("publish credential event",
				"kind", event.Kind,
				"record_id", event.RecordID,
				"error", err,
			)
		}
	})
}

// Close flushes buffered records and releases the client.
func (n *KafkaNotifier) Close() {
	n.client.Close()
}
