package feed

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/market"
	"github.com/bnzr-team/grinder-sub003/internal/metrics"
)

// Kafka consumes feed records from a topic, one record per message.
// Offsets ride on the consumer group, so a restarted runner resumes
// where it stopped instead of replaying the day.
type Kafka struct {
	reader  *kafka.Reader
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewKafka(cfg config.FeedConfig, log *zap.Logger, m *metrics.Metrics) *Kafka {
	return &Kafka{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1,
			MaxBytes: maxLineBytes,
		}),
		log:     log,
		metrics: m,
	}
}

func (k *Kafka) Run(ctx context.Context, handle func(market.Snapshot)) error {
	for {
		msg, err := k.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		dispatch(k.log, k.metrics, msg.Value, handle)
	}
}

func (k *Kafka) Close() error {
	return k.reader.Close()
}
