package service

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// SamplingPolicy decides whether a record needs review beyond Interviewer-A.
// The decision is a pure function of the record's source identity, the salt
// and the current rate.
type SamplingPolicy struct {
	rate atomic.Uint64 // float64 bits
	salt string
}

func NewSamplingPolicy(rate float64, salt string) *SamplingPolicy {
	p := &SamplingPolicy{salt: salt}
	p.SetRate(rate)
	return p
}

func (p *SamplingPolicy) Rate() float64 {
	return math.Float64frombits(p.rate.Load())
}

// SetRate replaces the rate, clamped to [0,1], and returns the stored value.
// Records that already carry a decision are unaffected.
func (p *SamplingPolicy) SetRate(r float64) float64 {
	switch {
	case math.IsNaN(r) || r < 0:
		r = 0
	case r > 1:
		r = 1
	}
	p.rate.Store(math.Float64bits(r))
	return r
}

// Draw maps the record to a uniform value in [0,1).
func (p *SamplingPolicy) Draw(rec types.Record) float64 {
	h := sha256.New()
	h.Write([]byte(p.salt))
	h.Write([]byte{0})
	if rec.SurveyID == "" && rec.ResponseID == "" {
		h.Write([]byte(rec.ID))
	} else {
		h.Write([]byte(rec.SurveyID))
		h.Write([]byte{0})
		h.Write([]byte(rec.ResponseID))
	}
	sum := h.Sum(nil)
	// Top 53 bits give an exactly representable float in [0,1).
	return float64(binary.BigEndian.Uint64(sum[:8])>>11) / (1 << 53)
}

func (p *SamplingPolicy) Decide(rec types.Record) bool {
	return p.Draw(rec) < p.Rate()
}
