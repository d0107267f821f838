package state

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/bnzr-team/grinder-sub003/internal/engine"
)

const CheckpointKey = "engine:checkpoint"

const checkpointVersion = 1

// Checkpoint is the cross-restart engine state: every symbol's bar ring
// plus the timestamp of the cycle that wrote it. It rides through the
// text KV store as base64-wrapped msgpack.
type Checkpoint struct {
	V         int                             `msgpack:"v"`
	TS        int64                           `msgpack:"ts_ms"`
	Pipelines map[string]engine.PipelineState `msgpack:"pipelines"`
}

func SaveCheckpoint(ctx context.Context, store Store, cp Checkpoint) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cp.V = checkpointVersion
	raw, err := msgpack.Marshal(cp)
	if err != nil {
		return err
	}
	return store.Set(ctx, CheckpointKey, base64.StdEncoding.EncodeToString(raw))
}

func LoadCheckpoint(ctx context.Context, store Store) (Checkpoint, bool, error) {
	if store == nil {
		return Checkpoint{}, false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	enc, ok, err := store.Get(ctx, CheckpointKey)
	if err != nil {
		return Checkpoint{}, false, err
	}
	if !ok || strings.TrimSpace(enc) == "" {
		return Checkpoint{}, false, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(enc))
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("checkpoint encoding: %w", err)
	}
	var cp Checkpoint
	if err := msgpack.Unmarshal(raw, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("checkpoint decode: %w", err)
	}
	if cp.V != checkpointVersion {
		return Checkpoint{}, false, fmt.Errorf("checkpoint version %d not supported", cp.V)
	}
	return cp, true, nil
}
