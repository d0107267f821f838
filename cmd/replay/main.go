// Command replay feeds a recorded fixture through the policy engine and
// prints the plans it would have emitted plus the cycle digest. The same
// fixture and config always reproduce the same bytes, so the digest line
// doubles as a regression check.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/engine"
	"github.com/bnzr-team/grinder-sub003/internal/logging"
	"github.com/bnzr-team/grinder-sub003/internal/market"
	"github.com/bnzr-team/grinder-sub003/internal/metrics"
)

const (
	maxLineBytes = 1 << 20
	// cycleLagMS places each evaluation just after its batch head, well
	// inside any sane staleness window.
	cycleLagMS = 1000
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	fixturePath := flag.String("fixture", "", "path to the recorded JSONL fixture")
	outPath := flag.String("out", "", "write plan JSONL here instead of stdout")
	digestOnly := flag.Bool("digest-only", false, "print only the final digest")
	flag.Parse()

	if *fixturePath == "" {
		fatal(errors.New("-fixture is required"))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	out := io.Discard
	if !*digestOnly {
		if *outPath != "" {
			f, err := os.Create(*outPath)
			if err != nil {
				fatal(err)
			}
			defer f.Close()
			out = f
		} else {
			out = os.Stdout
		}
	}

	stats, err := replay(cfg, log, *fixturePath, out)
	if err != nil {
		fatal(err)
	}
	log.Info("replay complete",
		zap.Int("records", stats.records),
		zap.Int("rejected", stats.rejected),
		zap.Int("cycles", stats.cycles),
		zap.Int("plans", stats.plans),
		zap.String("digest", stats.digest),
	)
	if *digestOnly {
		fmt.Println(stats.digest)
	}
}

type replayStats struct {
	records  int
	rejected int
	cycles   int
	plans    int
	digest   string
}

// replay streams the fixture in timestamp order, running one engine
// cycle per timestamp batch: whenever the stream's clock advances, the
// completed batch is evaluated before the next record lands, and the
// final batch is evaluated at EOF.
func replay(cfg *config.Config, log *zap.Logger, fixturePath string, out io.Writer) (replayStats, error) {
	var stats replayStats
	eng, err := engine.New(cfg, log, metrics.NewNoop())
	if err != nil {
		return stats, err
	}
	f, err := os.Open(fixturePath)
	if err != nil {
		return stats, err
	}
	defer f.Close()

	digest := engine.NewDigest()
	account := engine.AccountState{EquityUSD: cfg.Budget.EquityUSD}
	var headTS int64

	runCycle := func() error {
		res := eng.Cycle(engine.CycleInput{NowMS: headTS + cycleLagMS, Account: account})
		stats.cycles++
		for _, p := range res.Plans {
			if err := digest.Add(p); err != nil {
				return err
			}
			stats.plans++
			raw, err := json.Marshal(p)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(out, "%s\n", raw); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.records++
		snap, err := market.ParseRecord(line)
		if err != nil {
			stats.rejected++
			log.Debug("fixture record rejected", zap.Error(err))
			continue
		}
		if headTS != 0 && snap.TS > headTS {
			if err := runCycle(); err != nil {
				return stats, err
			}
		}
		if err := eng.Ingest(snap); err != nil {
			stats.rejected++
			log.Debug("fixture record dropped", zap.String("symbol", snap.Symbol), zap.Error(err))
		}
		if snap.TS > headTS {
			headTS = snap.TS
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, err
	}
	if headTS != 0 {
		if err := runCycle(); err != nil {
			return stats, err
		}
	}
	stats.digest = digest.Sum()
	return stats, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
