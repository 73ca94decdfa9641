// Package eval builds benchmark samples from stored training pairs and scores
// model output against reference answers (ROUGE-1/2/L and BLEU).
package eval

import (
	"math/rand"
	"sync"
	"time"

	"qapipe/internal/storage"
	logx "qapipe/pkg/logx"
)

// Sampler draws a benchmark sample from the pair corpus. When fewer pairs
// exist than requested, all of them are used (with a warning, matching the
// benchmark's best-effort contract).
//
// Safe for concurrent use: a manual trigger and a scheduled firing can run
// evaluations at the same time, and *rand.Rand is not.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
	log logx.Logger
}

func NewSampler(log logx.Logger) *Sampler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sampler{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		log: log,
	}
}

// Sample returns size pairs drawn without replacement; size <= 0 means all.
func (s *Sampler) Sample(pairs []storage.QAPair, size int) []storage.QAPair {
	if size <= 0 || size >= len(pairs) {
		if size > len(pairs) {
			s.log.Warn("not enough pairs for requested benchmark size, using all",
				logx.Int("have", len(pairs)), logx.Int("want", size))
		}
		out := make([]storage.QAPair, len(pairs))
		copy(out, pairs)
		return out
	}

	s.mu.Lock()
	idx := s.rng.Perm(len(pairs))[:size]
	s.mu.Unlock()
	out := make([]storage.QAPair, 0, size)
	for _, i := range idx {
		out = append(out, pairs[i])
	}
	return out
}
