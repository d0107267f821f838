// Package app wires the policy engine to its feed, sinks, and operator
// surface and owns the evaluation loop of the live runner.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bnzr-team/grinder-sub003/internal/alerts"
	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/engine"
	"github.com/bnzr-team/grinder-sub003/internal/feed"
	"github.com/bnzr-team/grinder-sub003/internal/history"
	"github.com/bnzr-team/grinder-sub003/internal/market"
	"github.com/bnzr-team/grinder-sub003/internal/metrics"
	"github.com/bnzr-team/grinder-sub003/internal/ops"
	"github.com/bnzr-team/grinder-sub003/internal/publish"
	"github.com/bnzr-team/grinder-sub003/internal/regime"
	"github.com/bnzr-team/grinder-sub003/internal/state"
	"github.com/bnzr-team/grinder-sub003/internal/state/sqlite"
)

const shutdownTimeout = 3 * time.Second

type App struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *sqlite.Store
	prom     *metrics.Prometheus
	metrics  *metrics.Metrics
	engine   *engine.Engine
	feed     feed.Source
	latches  *ops.Latches
	operator *ops.Operator
	telegram *alerts.Telegram
	kafka    *publish.Kafka
	redis    *publish.Redis
	history  *history.Writer

	session string

	mu         sync.Mutex
	cycles     uint64
	lastTS     int64
	lastPlans  int
	lastDigest string
	lastRegime map[string]regime.Regime
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}
	prom := metrics.NewPrometheus()
	eng, err := engine.New(cfg, log, prom.Metrics)
	if err != nil {
		store.Close()
		return nil, err
	}
	source, err := feed.New(cfg.Feed, eng.Symbols(), log, prom.Metrics)
	if err != nil {
		store.Close()
		return nil, err
	}
	session := uuid.NewString()
	hist, err := history.New(cfg.History, session, log)
	if err != nil {
		store.Close()
		return nil, err
	}
	telegram := alerts.NewTelegram(cfg.Telegram, log)
	latches := ops.NewLatches(store, log, prom.Metrics)
	a := &App{
		cfg:        cfg,
		log:        log,
		store:      store,
		prom:       prom,
		metrics:    prom.Metrics,
		engine:     eng,
		feed:       source,
		latches:    latches,
		telegram:   telegram,
		kafka:      publish.NewKafka(cfg.Publish.Kafka),
		redis:      publish.NewRedis(cfg.Publish.Redis),
		history:    hist,
		session:    session,
		lastRegime: make(map[string]regime.Regime),
	}
	a.operator = ops.NewOperator(cfg.Telegram, telegram, latches, store, a.status, log)
	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	defer a.closeSinks()

	if err := a.latches.Load(ctx); err != nil {
		a.log.Warn("latch restore failed", zap.Error(err))
	}
	a.restoreCheckpoint(ctx)

	if srv := a.startMetricsServer(); srv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}
	if a.history != nil {
		a.history.Start(ctx)
	}
	if a.operator.Start(ctx) {
		a.log.Info("operator commands enabled")
	}

	feedErr := make(chan error, 1)
	go func() { feedErr <- a.feed.Run(ctx, a.ingest) }()
	defer a.feed.Close()

	a.log.Info("engine running",
		zap.String("session", a.session),
		zap.Strings("symbols", a.engine.Symbols()),
		zap.String("feed", a.cfg.Feed.Source),
		zap.Duration("eval_interval", a.cfg.Engine.EvalInterval),
	)
	a.notify(ctx, fmt.Sprintf("grinder up: session %s, %d symbols, feed %s",
		a.session, len(a.engine.Symbols()), a.cfg.Feed.Source))

	ticker := time.NewTicker(a.cfg.Engine.EvalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.finalCheckpoint()
			return ctx.Err()
		case err := <-feedErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				a.log.Warn("feed stopped", zap.Error(err))
			} else {
				a.log.Info("feed drained")
			}
			// A dead feed is not fatal: cycles keep running and the
			// stale gate suppresses plans until data returns.
			feedErr = nil
		case <-ticker.C:
			a.cycle(ctx)
		}
	}
}

func (a *App) ingest(snap market.Snapshot) {
	if err := a.engine.Ingest(snap); err != nil {
		a.metrics.RecordsRejected.Inc()
		a.log.Debug("snapshot dropped", zap.String("symbol", snap.Symbol), zap.Error(err))
	}
}

func (a *App) cycle(ctx context.Context) {
	res := a.engine.Cycle(engine.CycleInput{
		NowMS:      time.Now().UnixMilli(),
		Paused:     a.latches.Paused(),
		KillSwitch: a.latches.KillSwitch(),
		Account:    a.account(),
	})
	digest := engine.NewDigest()
	for _, p := range res.Plans {
		if err := digest.Add(p); err != nil {
			a.log.Warn("digest update failed", zap.String("symbol", p.Symbol), zap.Error(err))
		}
	}
	sum := digest.Sum()

	if a.kafka != nil {
		if err := a.kafka.PublishPlans(ctx, res.Plans); err != nil {
			a.log.Warn("kafka publish failed", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.PublishCycle(ctx, res.TS, res.Plans, sum); err != nil {
			a.log.Warn("redis publish failed", zap.Error(err))
		}
	}
	a.recordHistory(res)
	a.alertEscalations(ctx, res)

	a.mu.Lock()
	a.cycles++
	a.lastTS = res.TS
	a.lastPlans = len(res.Plans)
	a.lastDigest = sum
	cycles := a.cycles
	a.mu.Unlock()

	if every := a.cfg.Engine.CheckpointEvery; every > 0 && cycles%uint64(every) == 0 {
		a.saveCheckpoint(ctx, res.TS)
	}
}

// account reports the engine's view of the book. The runner carries no
// execution, so telemetry reduces to configured equity over a flat book;
// the execution collaborator owns live inventory.
func (a *App) account() engine.AccountState {
	return engine.AccountState{EquityUSD: a.cfg.Budget.EquityUSD}
}

// alertEscalations pushes one Telegram message per symbol entering
// TOXIC or EMERGENCY; re-classifications into the same regime stay
// silent until the symbol has left it.
func (a *App) alertEscalations(ctx context.Context, res engine.CycleResult) {
	symbols := make([]string, 0, len(res.Decisions))
	for sym := range res.Decisions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		dec := res.Decisions[sym]
		escalated := dec.Regime == regime.Toxic || dec.Regime == regime.Emergency
		if escalated && a.lastRegime[sym] != dec.Regime {
			a.notify(ctx, fmt.Sprintf("%s %s: %s", dec.Regime, sym, strings.Join(dec.Reasons, ",")))
		}
		a.lastRegime[sym] = dec.Regime
	}
}

func (a *App) notify(ctx context.Context, message string) {
	if err := a.telegram.Send(ctx, message); err != nil {
		a.log.Warn("telegram send failed", zap.Error(err))
	}
}

func (a *App) restoreCheckpoint(ctx context.Context) {
	cp, ok, err := state.LoadCheckpoint(ctx, a.store)
	if err != nil {
		a.log.Warn("checkpoint load failed", zap.Error(err))
		return
	}
	if !ok {
		a.log.Info("no checkpoint, starting cold")
		return
	}
	a.engine.RestoreStates(cp.Pipelines)
	a.log.Info("checkpoint restored",
		zap.Int64("checkpoint_ts", cp.TS),
		zap.Int("pipelines", len(cp.Pipelines)),
	)
}

func (a *App) saveCheckpoint(ctx context.Context, ts int64) {
	cp := state.Checkpoint{TS: ts, Pipelines: a.engine.States()}
	if err := state.SaveCheckpoint(ctx, a.store, cp); err != nil {
		a.log.Warn("checkpoint save failed", zap.Error(err))
		return
	}
	a.metrics.CheckpointsSaved.Inc()
}

// finalCheckpoint runs after the run context is canceled, so it gets a
// fresh deadline of its own.
func (a *App) finalCheckpoint() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.mu.Lock()
	ts := a.lastTS
	a.mu.Unlock()
	a.saveCheckpoint(ctx, ts)
	a.log.Info("final checkpoint saved", zap.Int64("ts", ts))
}

func (a *App) startMetricsServer() *http.Server {
	if !a.cfg.Metrics.EnabledValue() {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, a.prom.Handler())
	srv := &http.Server{Addr: a.cfg.Metrics.Address, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	a.log.Info("metrics server listening",
		zap.String("address", a.cfg.Metrics.Address),
		zap.String("path", a.cfg.Metrics.Path),
	)
	return srv
}

func (a *App) closeSinks() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.Warn("history close failed", zap.Error(err))
		}
	}
	if err := a.kafka.Close(); err != nil {
		a.log.Warn("kafka close failed", zap.Error(err))
	}
	if err := a.redis.Close(); err != nil {
		a.log.Warn("redis close failed", zap.Error(err))
	}
}

func (a *App) status(context.Context) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fmt.Sprintf("session %s\ncycles %d\nlast cycle ts %d\nplans %d\ndigest %s\npaused %v\nkill switch %v",
		a.session, a.cycles, a.lastTS, a.lastPlans, a.lastDigest,
		a.latches.Paused(), a.latches.KillSwitch())
}
