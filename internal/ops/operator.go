package ops

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bnzr-team/grinder-sub003/internal/alerts"
	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/state"
)

const operatorOffsetKey = "telegram:operator:last_update_id"

// StatusFunc renders the /status reply; the runner injects it so the
// operator package never reaches into the engine.
type StatusFunc func(ctx context.Context) string

// Operator long-polls telegram for latch commands. It is the only
// writer of the pause and kill latches besides the runner's own
// startup restore.
type Operator struct {
	cfg     config.TelegramConfig
	tg      *alerts.Telegram
	latches *Latches
	store   state.Store
	status  StatusFunc
	log     *zap.Logger
	warned  bool
}

func NewOperator(cfg config.TelegramConfig, tg *alerts.Telegram, latches *Latches, store state.Store, status StatusFunc, log *zap.Logger) *Operator {
	return &Operator{cfg: cfg, tg: tg, latches: latches, store: store, status: status, log: log}
}

// Start launches the poll loop and reports whether it actually
// started; a misconfigured operator is a warning, never a crash.
func (o *Operator) Start(ctx context.Context) bool {
	if !o.cfg.Enabled || !o.cfg.OperatorEnabled {
		return false
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(o.cfg.ChatID), 10, 64)
	if err != nil {
		o.log.Warn("telegram operator disabled: invalid chat_id", zap.Error(err))
		return false
	}
	pollInterval := o.cfg.OperatorPollInterval
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	allowed := make(map[int64]struct{}, len(o.cfg.OperatorAllowedUserIDs))
	for _, id := range o.cfg.OperatorAllowedUserIDs {
		allowed[id] = struct{}{}
	}
	go o.loop(ctx, chatID, allowed, pollInterval)
	return true
}

func (o *Operator) loop(ctx context.Context, chatID int64, allowed map[int64]struct{}, pollInterval time.Duration) {
	offset := o.loadOffset(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		updates, err := o.tg.GetUpdates(ctx, offset, pollInterval)
		if err != nil {
			o.logPollError(err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollInterval):
			}
			continue
		}
		if o.warned {
			o.log.Info("telegram operator recovered")
			o.warned = false
		}
		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
				o.saveOffset(ctx, offset)
			}
			o.handleUpdate(ctx, upd, chatID, allowed)
		}
	}
}

func (o *Operator) handleUpdate(ctx context.Context, upd alerts.Update, chatID int64, allowed map[int64]struct{}) {
	if upd.Message == nil || upd.Message.Chat == nil || upd.Message.From == nil {
		return
	}
	msg := upd.Message
	if msg.Chat.ID != chatID {
		return
	}
	if len(allowed) > 0 {
		if _, ok := allowed[msg.From.ID]; !ok {
			return
		}
	}
	cmd, ok := parseCommand(msg.Text)
	if !ok {
		return
	}
	actor := fmt.Sprintf("telegram:%d", msg.From.ID)
	if msg.From.Username != "" {
		actor = fmt.Sprintf("telegram:%d(%s)", msg.From.ID, msg.From.Username)
	}
	resp := o.handleCommand(ctx, cmd, actor)
	if resp == "" {
		return
	}
	if err := o.tg.Send(ctx, resp); err != nil {
		o.log.Warn("operator response failed", zap.Error(err))
	}
}

// parseCommand accepts "/cmd" with optional trailing noise; latch
// commands take no arguments.
func parseCommand(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return "", false
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return "", false
	}
	return strings.ToLower(strings.TrimPrefix(fields[0], "/")), true
}

func (o *Operator) handleCommand(ctx context.Context, cmd, actor string) string {
	switch cmd {
	case "status":
		if o.status == nil {
			return "status unavailable"
		}
		return o.status(ctx)
	case "pause":
		if o.latches.SetPaused(ctx, true, actor) {
			return "engine paused"
		}
		return "engine already paused"
	case "resume":
		if o.latches.SetPaused(ctx, false, actor) {
			return "engine resumed"
		}
		return "engine already running"
	case "kill":
		if o.latches.SetKillSwitch(ctx, true, actor) {
			return "kill switch engaged"
		}
		return "kill switch already engaged"
	case "unkill":
		if o.latches.SetKillSwitch(ctx, false, actor) {
			return "kill switch released"
		}
		return "kill switch not engaged"
	default:
		return helpText()
	}
}

func helpText() string {
	return strings.Join([]string{
		"commands:",
		"/status - engine status and latches",
		"/pause - suppress all plan emission",
		"/resume - release the pause latch",
		"/kill - force EMERGENCY on every symbol",
		"/unkill - release the kill switch",
	}, "\n")
}

func (o *Operator) logPollError(err error) {
	if o.warned {
		return
	}
	o.warned = true
	o.log.Warn("telegram operator poll failed", zap.Error(err))
}

func (o *Operator) loadOffset(ctx context.Context) int64 {
	if o.store == nil {
		return 0
	}
	raw, ok, err := o.store.Get(ctx, operatorOffsetKey)
	if err != nil || !ok {
		return 0
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || val < 0 {
		return 0
	}
	return val
}

func (o *Operator) saveOffset(ctx context.Context, offset int64) {
	if o.store == nil {
		return
	}
	_ = o.store.Set(ctx, operatorOffsetKey, strconv.FormatInt(offset, 10))
}
