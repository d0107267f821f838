package publish

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/grid"
)

// Kafka streams every emitted plan to a topic, keyed by symbol so one
// symbol's plans always land on one partition in emission order. A nil
// Kafka publishes nothing.
type Kafka struct {
	writer *kafka.Writer
}

func NewKafka(cfg config.KafkaPublishConfig) *Kafka {
	if !cfg.Enabled {
		return nil
	}
	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: cfg.BatchTimeout,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (k *Kafka) PublishPlans(ctx context.Context, plans []grid.Plan) error {
	if k == nil || len(plans) == 0 {
		return nil
	}
	msgs, err := planMessages(plans)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, msgs...)
}

func (k *Kafka) Close() error {
	if k == nil {
		return nil
	}
	return k.writer.Close()
}

func planMessages(plans []grid.Plan) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(plans))
	for _, p := range plans {
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, kafka.Message{Key: []byte(p.Symbol), Value: raw})
	}
	return msgs, nil
}
