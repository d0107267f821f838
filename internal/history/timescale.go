package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/features"
	"github.com/bnzr-team/grinder-sub003/internal/grid"
)

const writeTimeout = 3 * time.Second

// Writer streams emitted plans and per-symbol feature vectors into
// TimescaleDB for later analysis. Everything is best-effort: the
// engine's cycle never waits on the database, full queues drop rows
// and inserts that fail are logged and forgotten.
type Writer struct {
	db       *sql.DB
	log      *zap.Logger
	schema   string
	session  string
	plans    chan grid.Plan
	vectors  chan features.Vector
	started  atomic.Bool
	dropPlan atomic.Uint64
	dropVec  atomic.Uint64
}

// New returns nil without error when history is disabled; a nil Writer
// swallows every call. Rows are stamped with the runner session so
// overlapping deployments stay distinguishable.
func New(cfg config.HistoryConfig, session string, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("history dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	writer := &Writer{
		db:      db,
		log:     log,
		schema:  schema,
		session: session,
		plans:   make(chan grid.Plan, queueSize),
		vectors: make(chan features.Vector, queueSize),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) EnqueuePlan(plan grid.Plan) {
	if w == nil {
		return
	}
	select {
	case w.plans <- plan:
		return
	default:
		if w.dropPlan.Add(1) == 1 && w.log != nil {
			w.log.Warn("history plan queue full")
		}
	}
}

func (w *Writer) EnqueueVector(v features.Vector) {
	if w == nil {
		return
	}
	select {
	case w.vectors <- v:
		return
	default:
		if w.dropVec.Add(1) == 1 && w.log != nil {
			w.log.Warn("history vector queue full")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case plan := <-w.plans:
			w.writePlan(ctx, plan)
		case v := <-w.vectors:
			w.writeVector(ctx, v)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("history db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		session TEXT NOT NULL DEFAULT '',
		regime TEXT NOT NULL,
		reason_codes TEXT NOT NULL DEFAULT '',
		width_up_bps BIGINT NOT NULL,
		width_down_bps BIGINT NOT NULL,
		step_bps BIGINT NOT NULL,
		levels INTEGER NOT NULL,
		size_schedule TEXT NOT NULL DEFAULT '[]',
		dd_budget_usd TEXT NOT NULL,
		caps_applied TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (ts, symbol)
	)`, w.table("grid_plans"))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		session TEXT NOT NULL DEFAULT '',
		mid DOUBLE PRECISION NOT NULL,
		spread_bps BIGINT NOT NULL,
		imbalance_l1 DOUBLE PRECISION NOT NULL,
		thin_qty_l1 DOUBLE PRECISION NOT NULL,
		natr DOUBLE PRECISION NOT NULL,
		range_score DOUBLE PRECISION NOT NULL,
		trend_strength DOUBLE PRECISION NOT NULL,
		last_bar_return DOUBLE PRECISION NOT NULL,
		impact_buy_bps BIGINT NOT NULL,
		impact_sell_bps BIGINT NOT NULL,
		wall_bid_x1000 BIGINT NOT NULL,
		wall_ask_x1000 BIGINT NOT NULL,
		funding_rate DOUBLE PRECISION NOT NULL,
		has_natr BOOLEAN NOT NULL,
		has_range_trend BOOLEAN NOT NULL,
		has_book BOOLEAN NOT NULL,
		PRIMARY KEY (ts, symbol)
	)`, w.table("feature_vectors"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		if w.log != nil {
			w.log.Warn("timescale extension ensure failed", zap.Error(err))
		}
		return nil
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table("grid_plans"))); err != nil && w.log != nil {
		w.log.Warn("grid_plans hypertable create failed", zap.Error(err))
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table("feature_vectors"))); err != nil && w.log != nil {
		w.log.Warn("feature_vectors hypertable create failed", zap.Error(err))
	}
	return nil
}

func (w *Writer) writePlan(ctx context.Context, plan grid.Plan) {
	if w.db == nil {
		return
	}
	schedule, err := json.Marshal(plan.SizeSchedule)
	if err != nil {
		if w.log != nil {
			w.log.Warn("history plan schedule encode failed", zap.Error(err))
		}
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, session, regime, reason_codes, width_up_bps, width_down_bps,
		step_bps, levels, size_schedule, dd_budget_usd, caps_applied
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
	) ON CONFLICT (ts, symbol) DO NOTHING`, w.table("grid_plans"))
	if _, err := w.db.ExecContext(ctx, query,
		time.UnixMilli(plan.TS).UTC(),
		plan.Symbol,
		w.session,
		plan.Regime,
		strings.Join(plan.ReasonCodes, ","),
		plan.WidthUpBps,
		plan.WidthDownBps,
		plan.StepBps,
		plan.Levels,
		string(schedule),
		plan.DDBudgetUSD,
		strings.Join(plan.CapsApplied, ","),
	); err != nil && w.log != nil {
		w.log.Warn("history plan insert failed", zap.Error(err))
	}
}

func (w *Writer) writeVector(ctx context.Context, v features.Vector) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, session, mid, spread_bps, imbalance_l1, thin_qty_l1, natr,
		range_score, trend_strength, last_bar_return, impact_buy_bps,
		impact_sell_bps, wall_bid_x1000, wall_ask_x1000, funding_rate,
		has_natr, has_range_trend, has_book
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
	) ON CONFLICT (ts, symbol) DO NOTHING`, w.table("feature_vectors"))
	if _, err := w.db.ExecContext(ctx, query,
		time.UnixMilli(v.TS).UTC(),
		v.Symbol,
		w.session,
		v.Mid,
		v.SpreadBps,
		v.ImbalanceL1,
		v.ThinQtyL1,
		v.NATR,
		v.RangeScore,
		v.TrendStrength,
		v.LastBarReturn,
		v.ImpactBuyBps,
		v.ImpactSellBps,
		v.WallBidX1000,
		v.WallAskX1000,
		v.FundingRate,
		v.HasNATR,
		v.HasRangeTrend,
		v.HasBook,
	); err != nil && w.log != nil {
		w.log.Warn("history vector insert failed", zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
