package feed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/market"
	"github.com/bnzr-team/grinder-sub003/internal/metrics"
)

// Source delivers parsed snapshots to a handler. Run blocks until the
// stream ends or the context is canceled: the file source returns at
// EOF, the network sources reconnect forever and only return on
// cancellation or a terminal setup error.
type Source interface {
	Run(ctx context.Context, handle func(market.Snapshot)) error
	Close() error
}

// New builds the configured source. Symbols are only needed by the
// websocket source for its subscribe frame.
func New(cfg config.FeedConfig, symbols []string, log *zap.Logger, m *metrics.Metrics) (Source, error) {
	switch cfg.Source {
	case "file":
		return NewFile(cfg.Path, log, m), nil
	case "ws":
		return NewWS(cfg, symbols, log, m), nil
	case "kafka":
		return NewKafka(cfg, log, m), nil
	default:
		return nil, fmt.Errorf("unknown feed source %q", cfg.Source)
	}
}

// dispatch parses one raw line and forwards it. Bad records are
// counted and dropped; a poisoned feed line must never stop the
// stream.
func dispatch(log *zap.Logger, m *metrics.Metrics, line []byte, handle func(market.Snapshot)) {
	snap, err := market.ParseRecord(line)
	if err != nil {
		m.RecordsRejected.Inc()
		log.Debug("feed record rejected", zap.Error(err))
		return
	}
	handle(snap)
}
