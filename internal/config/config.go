package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      LoggingConfig  `yaml:"log"`
	Engine   EngineConfig   `yaml:"engine"`
	Features FeaturesConfig `yaml:"features"`
	Toxicity ToxicityConfig `yaml:"toxicity"`
	Regime   RegimeConfig   `yaml:"regime"`
	Stress   StressConfig   `yaml:"stress"`
	Grid     GridConfig     `yaml:"grid"`
	Budget   BudgetConfig   `yaml:"budget"`
	Select   SelectConfig   `yaml:"select"`
	Caps     CapsConfig     `yaml:"caps"`
	Feed     FeedConfig     `yaml:"feed"`
	State    StateConfig    `yaml:"state"`
	History  HistoryConfig  `yaml:"history"`
	Publish  PublishConfig  `yaml:"publish"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type EngineConfig struct {
	Symbols         []string      `yaml:"symbols"`
	BarIntervalMin  int           `yaml:"bar_interval_min"`
	LookbackBars    int           `yaml:"lookback_bars"`
	EvalInterval    time.Duration `yaml:"eval_interval"`
	StaleAfter      time.Duration `yaml:"stale_after"`
	CheckpointEvery int           `yaml:"checkpoint_every"`
}

type FeaturesConfig struct {
	ATRPeriod        int     `yaml:"atr_period"`
	EMAFast          int     `yaml:"ema_fast"`
	EMASlow          int     `yaml:"ema_slow"`
	RangeHorizonBars int     `yaml:"range_horizon_bars"`
	TrendNormPct     float64 `yaml:"trend_norm_pct"`
	DepthLevels      int     `yaml:"depth_levels"`
	ImpactQtyRef     string  `yaml:"impact_qty_ref"`
}

type ToxicityConfig struct {
	SpreadCeilingBps int64   `yaml:"spread_ceiling_bps"`
	SpreadSpikeMult  float64 `yaml:"spread_spike_mult"`
	JumpNATRMult     float64 `yaml:"jump_natr_mult"`
	JumpExtremeMult  float64 `yaml:"jump_extreme_mult"`
	ImpactAlertBps   int64   `yaml:"impact_alert_bps"`
}

type RegimeConfig struct {
	NATRShock       float64 `yaml:"natr_shock"`
	ThinNotionalUSD float64 `yaml:"thin_notional_usd"`
	TrendThreshold  float64 `yaml:"trend_threshold"`
}

type StressConfig struct {
	HorizonRangeMin int     `yaml:"horizon_range_min"`
	HorizonTrendMin int     `yaml:"horizon_trend_min"`
	HorizonShockMin int     `yaml:"horizon_shock_min"`
	KTailRange      float64 `yaml:"k_tail_range"`
	KTailTrend      float64 `yaml:"k_tail_trend"`
	KTailShock      float64 `yaml:"k_tail_shock"`
	XMinPct         float64 `yaml:"x_min_pct"`
	XCapPct         float64 `yaml:"x_cap_pct"`
	ImpactRefBps    int64   `yaml:"impact_ref_bps"`
	L2PenaltyMax    float64 `yaml:"l2_penalty_max"`
	TrendPenalty    float64 `yaml:"trend_penalty"`
}

type GridConfig struct {
	StepMinPct     float64 `yaml:"step_min_pct"`
	Alpha          float64 `yaml:"alpha"`
	ShockStepMult  float64 `yaml:"shock_step_mult"`
	ThinStepMult   float64 `yaml:"thin_step_mult"`
	LevelsMin      int     `yaml:"levels_min"`
	LevelsMax      int     `yaml:"levels_max"`
	Sizing         string  `yaml:"sizing"`
	MaxWeightRatio float64 `yaml:"max_weight_ratio"`
	QtyDecimals    int     `yaml:"qty_decimals"`
}

type BudgetConfig struct {
	EquityUSD   float64 `yaml:"equity_usd"`
	DDBudgetPct float64 `yaml:"dd_budget_pct"`
	DDBudgetUSD float64 `yaml:"dd_budget_usd"`
	Allocator   string  `yaml:"allocator"`
}

type SelectConfig struct {
	K                   int     `yaml:"k"`
	WRange              float64 `yaml:"w_range"`
	WLiquidity          float64 `yaml:"w_liquidity"`
	WToxicity           float64 `yaml:"w_toxicity"`
	WTrend              float64 `yaml:"w_trend"`
	RangeCap            float64 `yaml:"range_cap"`
	LiqRefUSD           float64 `yaml:"liq_ref_usd"`
	ThinGateNotionalUSD float64 `yaml:"thin_gate_notional_usd"`
	MaxAbsFunding       float64 `yaml:"max_abs_funding"`
}

type CapsConfig struct {
	MaxInventoryNotionalUSD float64 `yaml:"max_inventory_notional_usd"`
	MaxEffectiveLeverage    float64 `yaml:"max_effective_leverage"`
	MaxOpenOrdersSymbol     int     `yaml:"max_open_orders_symbol"`
	MaxOpenOrdersPortfolio  int     `yaml:"max_open_orders_portfolio"`
	MaxOrdersPerCycle       int     `yaml:"max_orders_per_cycle"`
}

type FeedConfig struct {
	Source         string        `yaml:"source"`
	Path           string        `yaml:"path"`
	WSURL          string        `yaml:"ws_url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	Brokers        []string      `yaml:"brokers"`
	Topic          string        `yaml:"topic"`
	GroupID        string        `yaml:"group_id"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type HistoryConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type PublishConfig struct {
	Kafka KafkaPublishConfig `yaml:"kafka"`
	Redis RedisPublishConfig `yaml:"redis"`
}

type KafkaPublishConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

type RedisPublishConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

func (m MetricsConfig) EnabledValue() bool {
	if m.Enabled == nil {
		return true
	}
	return *m.Enabled
}

type TelegramConfig struct {
	Enabled                bool          `yaml:"enabled"`
	Token                  string        `yaml:"token"`
	ChatID                 string        `yaml:"chat_id"`
	OperatorEnabled        bool          `yaml:"operator_enabled"`
	OperatorPollInterval   time.Duration `yaml:"operator_poll_interval"`
	OperatorAllowedUserIDs []int64       `yaml:"operator_allowed_user_ids"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Engine.BarIntervalMin == 0 {
		cfg.Engine.BarIntervalMin = 1
	}
	if cfg.Engine.EvalInterval == 0 {
		cfg.Engine.EvalInterval = 5 * time.Second
	}
	if cfg.Engine.StaleAfter == 0 {
		cfg.Engine.StaleAfter = 10 * time.Second
	}
	if cfg.Engine.CheckpointEvery == 0 {
		cfg.Engine.CheckpointEvery = 12
	}
	if cfg.Features.ATRPeriod == 0 {
		cfg.Features.ATRPeriod = 14
	}
	if cfg.Features.EMAFast == 0 {
		cfg.Features.EMAFast = 8
	}
	if cfg.Features.EMASlow == 0 {
		cfg.Features.EMASlow = 24
	}
	if cfg.Features.RangeHorizonBars == 0 {
		cfg.Features.RangeHorizonBars = 16
	}
	if cfg.Features.TrendNormPct == 0 {
		cfg.Features.TrendNormPct = 0.02
	}
	if cfg.Features.DepthLevels == 0 {
		cfg.Features.DepthLevels = 10
	}
	if cfg.Features.ImpactQtyRef == "" {
		cfg.Features.ImpactQtyRef = "1"
	}
	// The bar window has to cover every indicator that reads it.
	minLookback := cfg.Features.ATRPeriod + 1
	if cfg.Features.RangeHorizonBars+1 > minLookback {
		minLookback = cfg.Features.RangeHorizonBars + 1
	}
	if cfg.Features.EMASlow+1 > minLookback {
		minLookback = cfg.Features.EMASlow + 1
	}
	if cfg.Engine.LookbackBars < minLookback {
		cfg.Engine.LookbackBars = minLookback
	}
	if cfg.Toxicity.SpreadCeilingBps == 0 {
		cfg.Toxicity.SpreadCeilingBps = 25
	}
	if cfg.Toxicity.SpreadSpikeMult == 0 {
		cfg.Toxicity.SpreadSpikeMult = 2
	}
	if cfg.Toxicity.JumpNATRMult == 0 {
		cfg.Toxicity.JumpNATRMult = 3
	}
	if cfg.Toxicity.JumpExtremeMult == 0 {
		cfg.Toxicity.JumpExtremeMult = 6
	}
	if cfg.Toxicity.ImpactAlertBps == 0 {
		cfg.Toxicity.ImpactAlertBps = 40
	}
	if cfg.Regime.NATRShock == 0 {
		cfg.Regime.NATRShock = 0.004
	}
	if cfg.Regime.ThinNotionalUSD == 0 {
		cfg.Regime.ThinNotionalUSD = 25000
	}
	if cfg.Regime.TrendThreshold == 0 {
		cfg.Regime.TrendThreshold = 0.35
	}
	if cfg.Stress.HorizonRangeMin == 0 {
		cfg.Stress.HorizonRangeMin = 30
	}
	if cfg.Stress.HorizonTrendMin == 0 {
		cfg.Stress.HorizonTrendMin = 45
	}
	if cfg.Stress.HorizonShockMin == 0 {
		cfg.Stress.HorizonShockMin = 60
	}
	if cfg.Stress.KTailRange == 0 {
		cfg.Stress.KTailRange = 2
	}
	if cfg.Stress.KTailTrend == 0 {
		cfg.Stress.KTailTrend = 2.5
	}
	if cfg.Stress.KTailShock == 0 {
		cfg.Stress.KTailShock = 3
	}
	if cfg.Stress.XMinPct == 0 {
		cfg.Stress.XMinPct = 0.004
	}
	if cfg.Stress.XCapPct == 0 {
		cfg.Stress.XCapPct = 0.06
	}
	if cfg.Stress.ImpactRefBps == 0 {
		cfg.Stress.ImpactRefBps = 50
	}
	if cfg.Stress.L2PenaltyMax == 0 {
		cfg.Stress.L2PenaltyMax = 1.5
	}
	if cfg.Stress.TrendPenalty == 0 {
		cfg.Stress.TrendPenalty = 1.3
	}
	if cfg.Grid.StepMinPct == 0 {
		cfg.Grid.StepMinPct = 0.0008
	}
	if cfg.Grid.Alpha == 0 {
		cfg.Grid.Alpha = 0.45
	}
	if cfg.Grid.ShockStepMult == 0 {
		cfg.Grid.ShockStepMult = 1.6
	}
	if cfg.Grid.ThinStepMult == 0 {
		cfg.Grid.ThinStepMult = 2.2
	}
	if cfg.Grid.LevelsMin == 0 {
		cfg.Grid.LevelsMin = 2
	}
	if cfg.Grid.LevelsMax == 0 {
		cfg.Grid.LevelsMax = 12
	}
	if cfg.Grid.Sizing == "" {
		cfg.Grid.Sizing = "tapered"
	}
	if cfg.Grid.MaxWeightRatio == 0 {
		cfg.Grid.MaxWeightRatio = 3
	}
	if cfg.Grid.QtyDecimals == 0 {
		cfg.Grid.QtyDecimals = 8
	}
	if cfg.Budget.EquityUSD == 0 {
		cfg.Budget.EquityUSD = 10000
	}
	if cfg.Budget.DDBudgetPct == 0 && cfg.Budget.DDBudgetUSD == 0 {
		cfg.Budget.DDBudgetPct = 0.02
	}
	if cfg.Budget.Allocator == "" {
		cfg.Budget.Allocator = "weighted"
	}
	if cfg.Select.K == 0 {
		cfg.Select.K = 4
	}
	if cfg.Select.WRange == 0 {
		cfg.Select.WRange = 1
	}
	if cfg.Select.WLiquidity == 0 {
		cfg.Select.WLiquidity = 1
	}
	if cfg.Select.WToxicity == 0 {
		cfg.Select.WToxicity = 1
	}
	if cfg.Select.WTrend == 0 {
		cfg.Select.WTrend = 0.5
	}
	if cfg.Select.RangeCap == 0 {
		cfg.Select.RangeCap = 20
	}
	if cfg.Select.LiqRefUSD == 0 {
		cfg.Select.LiqRefUSD = 50000
	}
	if cfg.Select.ThinGateNotionalUSD == 0 {
		cfg.Select.ThinGateNotionalUSD = 10000
	}
	if cfg.Caps.MaxInventoryNotionalUSD == 0 {
		cfg.Caps.MaxInventoryNotionalUSD = 25000
	}
	if cfg.Caps.MaxEffectiveLeverage == 0 {
		cfg.Caps.MaxEffectiveLeverage = 3
	}
	if cfg.Caps.MaxOpenOrdersSymbol == 0 {
		cfg.Caps.MaxOpenOrdersSymbol = 24
	}
	if cfg.Caps.MaxOpenOrdersPortfolio == 0 {
		cfg.Caps.MaxOpenOrdersPortfolio = 96
	}
	if cfg.Caps.MaxOrdersPerCycle == 0 {
		cfg.Caps.MaxOrdersPerCycle = 48
	}
	if cfg.Feed.Source == "" {
		cfg.Feed.Source = "file"
	}
	if cfg.Feed.Path == "" {
		cfg.Feed.Path = "data/fixture.jsonl"
	}
	if cfg.Feed.ReconnectDelay == 0 {
		cfg.Feed.ReconnectDelay = 3 * time.Second
	}
	if cfg.Feed.PingInterval == 0 {
		cfg.Feed.PingInterval = 15 * time.Second
	}
	if cfg.Feed.GroupID == "" {
		cfg.Feed.GroupID = "grinder"
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/grinder.db"
	}
	if cfg.History.Schema == "" {
		cfg.History.Schema = "public"
	}
	if cfg.History.QueueSize == 0 {
		cfg.History.QueueSize = 256
	}
	if cfg.Publish.Kafka.Topic == "" {
		cfg.Publish.Kafka.Topic = "grinder.plans"
	}
	if cfg.Publish.Kafka.BatchTimeout == 0 {
		cfg.Publish.Kafka.BatchTimeout = 100 * time.Millisecond
	}
	if cfg.Publish.Redis.Addr == "" {
		cfg.Publish.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Publish.Redis.TTL == 0 {
		cfg.Publish.Redis.TTL = time.Hour
	}
	if cfg.Publish.Redis.KeyPrefix == "" {
		cfg.Publish.Redis.KeyPrefix = "grinder:"
	}
	if cfg.Metrics.Enabled == nil {
		enabled := true
		cfg.Metrics.Enabled = &enabled
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "127.0.0.1:9001"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Telegram.OperatorPollInterval == 0 {
		cfg.Telegram.OperatorPollInterval = 3 * time.Second
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("GRINDER_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("GRINDER_FEED_SOURCE")); v != "" {
		cfg.Feed.Source = v
	}
	if v := strings.TrimSpace(os.Getenv("GRINDER_FEED_PATH")); v != "" {
		cfg.Feed.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("GRINDER_FEED_WS_URL")); v != "" {
		cfg.Feed.WSURL = v
	}
	if v := strings.TrimSpace(os.Getenv("GRINDER_KAFKA_BROKERS")); v != "" {
		cfg.Feed.Brokers = splitCSV(v)
		cfg.Publish.Kafka.Brokers = splitCSV(v)
	}
	if v := strings.TrimSpace(os.Getenv("GRINDER_REDIS_ADDR")); v != "" {
		cfg.Publish.Redis.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("GRINDER_HISTORY_DSN")); v != "" {
		cfg.History.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("GRINDER_TELEGRAM_TOKEN")); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("GRINDER_TELEGRAM_CHAT_ID")); v != "" {
		cfg.Telegram.ChatID = v
	}
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func validate(cfg *Config) error {
	if len(cfg.Engine.Symbols) == 0 {
		return errors.New("engine.symbols is required")
	}
	seen := make(map[string]struct{}, len(cfg.Engine.Symbols))
	for _, sym := range cfg.Engine.Symbols {
		if strings.TrimSpace(sym) == "" {
			return errors.New("engine.symbols must not contain empty entries")
		}
		if _, dup := seen[sym]; dup {
			return fmt.Errorf("engine.symbols contains duplicate %q", sym)
		}
		seen[sym] = struct{}{}
	}
	if cfg.Engine.BarIntervalMin < 1 {
		return errors.New("engine.bar_interval_min must be >= 1")
	}
	if cfg.Features.ATRPeriod < 2 {
		return errors.New("features.atr_period must be >= 2")
	}
	if cfg.Features.EMAFast < 1 || cfg.Features.EMASlow <= cfg.Features.EMAFast {
		return errors.New("features.ema_fast must be >= 1 and < features.ema_slow")
	}
	if cfg.Features.RangeHorizonBars < 2 {
		return errors.New("features.range_horizon_bars must be >= 2")
	}
	if cfg.Features.TrendNormPct <= 0 {
		return errors.New("features.trend_norm_pct must be > 0")
	}
	if cfg.Features.DepthLevels < 1 {
		return errors.New("features.depth_levels must be >= 1")
	}
	qtyRef, err := decimal.NewFromString(cfg.Features.ImpactQtyRef)
	if err != nil {
		return fmt.Errorf("features.impact_qty_ref: %w", err)
	}
	if qtyRef.Sign() <= 0 {
		return errors.New("features.impact_qty_ref must be > 0")
	}
	if cfg.Toxicity.SpreadCeilingBps <= 0 {
		return errors.New("toxicity.spread_ceiling_bps must be > 0")
	}
	if cfg.Toxicity.SpreadSpikeMult < 1 {
		return errors.New("toxicity.spread_spike_mult must be >= 1")
	}
	if cfg.Toxicity.JumpNATRMult <= 0 {
		return errors.New("toxicity.jump_natr_mult must be > 0")
	}
	if cfg.Toxicity.JumpExtremeMult <= cfg.Toxicity.JumpNATRMult {
		return errors.New("toxicity.jump_extreme_mult must be > toxicity.jump_natr_mult")
	}
	if cfg.Regime.NATRShock <= 0 {
		return errors.New("regime.natr_shock must be > 0")
	}
	if cfg.Regime.ThinNotionalUSD <= 0 {
		return errors.New("regime.thin_notional_usd must be > 0")
	}
	if cfg.Regime.TrendThreshold <= 0 || cfg.Regime.TrendThreshold > 1 {
		return errors.New("regime.trend_threshold must be in (0, 1]")
	}
	if cfg.Stress.XMinPct <= 0 {
		return errors.New("stress.x_min_pct must be > 0")
	}
	if cfg.Stress.XCapPct < cfg.Stress.XMinPct {
		return errors.New("stress.x_cap_pct must be >= stress.x_min_pct")
	}
	if cfg.Stress.L2PenaltyMax < 1 {
		return errors.New("stress.l2_penalty_max must be >= 1")
	}
	if cfg.Stress.TrendPenalty < 1 {
		return errors.New("stress.trend_penalty must be >= 1")
	}
	if cfg.Stress.ImpactRefBps <= 0 {
		return errors.New("stress.impact_ref_bps must be > 0")
	}
	if cfg.Grid.StepMinPct <= 0 {
		return errors.New("grid.step_min_pct must be > 0")
	}
	if cfg.Grid.Alpha <= 0 {
		return errors.New("grid.alpha must be > 0")
	}
	if cfg.Grid.ShockStepMult < 1 || cfg.Grid.ThinStepMult < 1 {
		return errors.New("grid step multipliers must be >= 1")
	}
	if cfg.Grid.LevelsMin < 1 {
		return errors.New("grid.levels_min must be >= 1")
	}
	if cfg.Grid.LevelsMax < cfg.Grid.LevelsMin {
		return errors.New("grid.levels_max must be >= grid.levels_min")
	}
	if cfg.Grid.Sizing != "equal" && cfg.Grid.Sizing != "tapered" {
		return fmt.Errorf("grid.sizing must be equal or tapered, got %q", cfg.Grid.Sizing)
	}
	if cfg.Grid.MaxWeightRatio < 1 {
		return errors.New("grid.max_weight_ratio must be >= 1")
	}
	if cfg.Grid.QtyDecimals < 0 || cfg.Grid.QtyDecimals > 12 {
		return errors.New("grid.qty_decimals must be in [0, 12]")
	}
	if cfg.Budget.EquityUSD <= 0 {
		return errors.New("budget.equity_usd must be > 0")
	}
	if cfg.Budget.DDBudgetPct < 0 || cfg.Budget.DDBudgetPct > 1 {
		return errors.New("budget.dd_budget_pct must be in [0, 1]")
	}
	if cfg.Budget.DDBudgetUSD < 0 {
		return errors.New("budget.dd_budget_usd must be >= 0")
	}
	if cfg.Budget.DDBudgetPct == 0 && cfg.Budget.DDBudgetUSD == 0 {
		return errors.New("one of budget.dd_budget_pct or budget.dd_budget_usd must be set")
	}
	if cfg.Budget.Allocator != "equal" && cfg.Budget.Allocator != "weighted" {
		return fmt.Errorf("budget.allocator must be equal or weighted, got %q", cfg.Budget.Allocator)
	}
	if cfg.Select.K < 3 || cfg.Select.K > 5 {
		return errors.New("select.k must be in [3, 5]")
	}
	if cfg.Select.RangeCap <= 0 {
		return errors.New("select.range_cap must be > 0")
	}
	if cfg.Select.LiqRefUSD <= 0 {
		return errors.New("select.liq_ref_usd must be > 0")
	}
	if cfg.Select.ThinGateNotionalUSD < 0 {
		return errors.New("select.thin_gate_notional_usd must be >= 0")
	}
	if cfg.Select.MaxAbsFunding < 0 {
		return errors.New("select.max_abs_funding must be >= 0")
	}
	if cfg.Caps.MaxInventoryNotionalUSD < 0 || cfg.Caps.MaxEffectiveLeverage < 0 {
		return errors.New("caps limits must be >= 0")
	}
	if cfg.Caps.MaxOpenOrdersSymbol < 0 || cfg.Caps.MaxOpenOrdersPortfolio < 0 || cfg.Caps.MaxOrdersPerCycle < 0 {
		return errors.New("caps order limits must be >= 0")
	}
	switch cfg.Feed.Source {
	case "file", "ws", "kafka":
	default:
		return fmt.Errorf("feed.source must be file, ws or kafka, got %q", cfg.Feed.Source)
	}
	if cfg.Feed.Source == "file" && cfg.Feed.Path == "" {
		return errors.New("feed.path is required for file source")
	}
	if cfg.Feed.Source == "ws" && cfg.Feed.WSURL == "" {
		return errors.New("feed.ws_url is required for ws source")
	}
	if cfg.Feed.Source == "kafka" && (len(cfg.Feed.Brokers) == 0 || cfg.Feed.Topic == "") {
		return errors.New("feed.brokers and feed.topic are required for kafka source")
	}
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.DSN) == "" {
		return errors.New("history.dsn is required when history is enabled")
	}
	if cfg.Publish.Kafka.Enabled && len(cfg.Publish.Kafka.Brokers) == 0 {
		return errors.New("publish.kafka.brokers is required when kafka publishing is enabled")
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	if cfg.Telegram.Enabled && (strings.TrimSpace(cfg.Telegram.Token) == "" || strings.TrimSpace(cfg.Telegram.ChatID) == "") {
		return errors.New("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	return nil
}
