package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bnzr-team/grinder-sub003/internal/metrics"
	"github.com/bnzr-team/grinder-sub003/internal/state"
)

const (
	pausedKey = "ops:paused"
	killKey   = "ops:kill_switch"
)

// auditEvent records one latch transition in the KV store. Events are
// append-only; nothing in the engine reads them back.
type auditEvent struct {
	Time   time.Time `json:"time"`
	Action string    `json:"action"`
	Actor  string    `json:"actor"`
	Before bool      `json:"before"`
	After  bool      `json:"after"`
}

// Latches holds the two global latches every cycle reads: operator
// pause and the kill switch. Both survive restarts through the KV
// store; neither is ever cleared by the engine itself.
type Latches struct {
	log     *zap.Logger
	metrics *metrics.Metrics
	store   state.Store

	mu     sync.RWMutex
	paused bool
	kill   bool
}

func NewLatches(store state.Store, log *zap.Logger, m *metrics.Metrics) *Latches {
	return &Latches{log: log, metrics: m, store: store}
}

// Load restores persisted latch values. Missing keys leave the latch
// released.
func (l *Latches) Load(ctx context.Context) error {
	paused, err := l.loadFlag(ctx, pausedKey)
	if err != nil {
		return err
	}
	kill, err := l.loadFlag(ctx, killKey)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.paused = paused
	l.kill = kill
	l.mu.Unlock()
	if paused || kill {
		l.log.Warn("latches restored engaged", zap.Bool("paused", paused), zap.Bool("kill_switch", kill))
	}
	return nil
}

func (l *Latches) Paused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.paused
}

func (l *Latches) KillSwitch() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.kill
}

// SetPaused flips the pause latch and reports whether the value
// changed. Transitions are persisted, audited and counted.
func (l *Latches) SetPaused(ctx context.Context, on bool, actor string) bool {
	l.mu.Lock()
	before := l.paused
	l.paused = on
	l.mu.Unlock()
	if before == on {
		return false
	}
	action := "pause"
	if on {
		l.metrics.PauseEngaged.Inc()
	} else {
		action = "resume"
		l.metrics.PauseReleased.Inc()
	}
	l.persist(ctx, pausedKey, on)
	l.audit(ctx, auditEvent{Time: time.Now().UTC(), Action: action, Actor: actor, Before: before, After: on})
	l.log.Info("pause latch changed", zap.Bool("paused", on), zap.String("actor", actor))
	return true
}

// SetKillSwitch flips the kill latch and reports whether the value
// changed. Engaging it forces EMERGENCY on every symbol until an
// operator releases it.
func (l *Latches) SetKillSwitch(ctx context.Context, on bool, actor string) bool {
	l.mu.Lock()
	before := l.kill
	l.kill = on
	l.mu.Unlock()
	if before == on {
		return false
	}
	action := "kill"
	if !on {
		action = "unkill"
	}
	l.persist(ctx, killKey, on)
	l.audit(ctx, auditEvent{Time: time.Now().UTC(), Action: action, Actor: actor, Before: before, After: on})
	l.log.Warn("kill switch changed", zap.Bool("engaged", on), zap.String("actor", actor))
	return true
}

func (l *Latches) loadFlag(ctx context.Context, key string) (bool, error) {
	if l.store == nil {
		return false, nil
	}
	raw, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return ok && raw == "1", nil
}

func (l *Latches) persist(ctx context.Context, key string, on bool) {
	if l.store == nil {
		return
	}
	val := "0"
	if on {
		val = "1"
	}
	if err := l.store.Set(ctx, key, val); err != nil {
		l.log.Warn("latch persist failed", zap.String("key", key), zap.Error(err))
	}
}

func (l *Latches) audit(ctx context.Context, event auditEvent) {
	if l.store == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	key := fmt.Sprintf("ops:audit:%d", time.Now().UTC().UnixNano())
	if err := l.store.Set(ctx, key, string(payload)); err != nil {
		l.log.Warn("latch audit failed", zap.Error(err))
	}
}
