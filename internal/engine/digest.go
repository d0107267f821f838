package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"hash"

	"github.com/bnzr-team/grinder-sub003/internal/grid"
)

// Digest fingerprints a replay: SHA-256 over the canonical JSON of
// every emitted plan, one per line, in emission order. Two runs over
// the same fixture and config must produce the same sum.
type Digest struct {
	h hash.Hash
}

func NewDigest() *Digest {
	return &Digest{h: sha256.New()}
}

func (d *Digest) Add(p grid.Plan) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	d.h.Write(raw)
	d.h.Write([]byte{'\n'})
	return nil
}

func (d *Digest) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}
