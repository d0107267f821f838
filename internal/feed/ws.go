package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/market"
	"github.com/bnzr-team/grinder-sub003/internal/metrics"
)

// WS consumes the live feed over a websocket. The wire contract is one
// JSON record per text frame, the same records the file source reads.
// On connect it sends a subscribe frame for the configured symbols and
// it reconnects with a fixed delay until the context is canceled.
type WS struct {
	url            string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *zap.Logger
	metrics        *metrics.Metrics

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWS(cfg config.FeedConfig, symbols []string, log *zap.Logger, m *metrics.Metrics) *WS {
	return &WS{
		url:            cfg.WSURL,
		symbols:        append([]string(nil), symbols...),
		reconnectDelay: cfg.ReconnectDelay,
		pingInterval:   cfg.PingInterval,
		log:            log,
		metrics:        m,
	}
}

type wsFrame struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols,omitempty"`
}

func (w *WS) Run(ctx context.Context, handle func(market.Snapshot)) error {
	for {
		if err := w.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Warn("feed ws connect failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.reconnectDelay):
			}
			continue
		}

		pingCtx, cancel := context.WithCancel(ctx)
		pingDone := make(chan struct{})
		go func() {
			defer close(pingDone)
			w.pingLoop(pingCtx)
		}()
		err := w.readLoop(ctx, handle)
		cancel()
		<-pingDone
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logReadLoopError(err)
		w.resetConn()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.reconnectDelay):
		}
	}
}

func (w *WS) Close() error {
	w.resetConn()
	return nil
}

// connect dials and resubscribes. Reconnects always replay the
// subscribe frame; the server keeps no memory of us.
func (w *WS) connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return nil
	}
	conn, _, err := websocket.Dial(ctx, w.url, nil)
	if err != nil {
		return err
	}
	if err := writeJSON(ctx, conn, wsFrame{Op: "subscribe", Symbols: w.symbols}); err != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "subscribe failed")
		return err
	}
	w.conn = conn
	return nil
}

func (w *WS) readLoop(ctx context.Context, handle func(market.Snapshot)) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return errors.New("feed ws not connected")
	}
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		dispatch(w.log, w.metrics, data, handle)
	}
}

func (w *WS) pingLoop(ctx context.Context) {
	w.mu.Lock()
	conn := w.conn
	interval := w.pingInterval
	w.mu.Unlock()
	if conn == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := writeJSON(ctx, conn, wsFrame{Op: "ping"}); err != nil {
				return
			}
		}
	}
}

func (w *WS) logReadLoopError(err error) {
	if err == nil {
		return
	}
	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure {
		var closeErr websocket.CloseError
		if errors.As(err, &closeErr) {
			w.log.Info("feed ws closed", zap.Int("status", int(closeErr.Code)), zap.String("reason", closeErr.Reason))
			return
		}
		w.log.Info("feed ws closed", zap.Error(err))
		return
	}
	w.log.Warn("feed ws read failed", zap.Error(err))
}

func (w *WS) resetConn() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		_ = w.conn.Close(websocket.StatusNormalClosure, "reset")
		w.conn = nil
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
