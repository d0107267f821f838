package feed

import (
	"bufio"
	"bytes"
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/bnzr-team/grinder-sub003/internal/market"
	"github.com/bnzr-team/grinder-sub003/internal/metrics"
)

// maxLineBytes bounds one feed line. Depth-50 L2 snapshots sit well
// under this; anything bigger is garbage.
const maxLineBytes = 1 << 20

// File replays a JSONL fixture from disk, one record per line. It is
// the replay and backtest source: Run returns nil at EOF.
type File struct {
	path    string
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewFile(path string, log *zap.Logger, m *metrics.Metrics) *File {
	return &File{path: path, log: log, metrics: m}
}

func (f *File) Run(ctx context.Context, handle func(market.Snapshot)) error {
	fh, err := os.Open(f.path)
	if err != nil {
		return err
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		dispatch(f.log, f.metrics, line, handle)
	}
	return scanner.Err()
}

func (f *File) Close() error {
	return nil
}
