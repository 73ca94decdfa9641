// Package monitor snapshots the health of the pipeline's shared resources
// (document store, model registry, checkpoint artifacts) for the hourly
// monitoring job and the API health endpoint.
package monitor

import (
	"context"
	"fmt"
	"os"
	"time"

	"qapipe/internal/registry"
	"qapipe/internal/storage"
	logx "qapipe/pkg/logx"
)

// staleModelAge flags a registry whose newest model is older than this.
const staleModelAge = 14 * 24 * time.Hour

// Checker implements pipeline.HealthChecker over the concrete collaborators.
type Checker struct {
	store      storage.Store
	reg        *registry.Registry
	checkpoint string

	log logx.Logger
}

func NewChecker(store storage.Store, reg *registry.Registry, checkpointDir string, log logx.Logger) *Checker {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Checker{store: store, reg: reg, checkpoint: checkpointDir, log: log}
}

// Check runs every probe and returns overall health plus per-check findings.
// Findings for passing checks are informational; a failing check flips
// healthy to false.
func (c *Checker) Check(ctx context.Context) (bool, map[string]string) {
	healthy := true
	findings := map[string]string{}

	if c.store != nil {
		docs, err := c.store.Documents(ctx, 1)
		switch {
		case err != nil:
			healthy = false
			findings["document_store"] = "unreachable: " + err.Error()
		case len(docs) == 0:
			findings["document_store"] = "empty (no documents collected yet)"
		default:
			findings["document_store"] = "ok"
		}

		pairs, err := c.store.TrainingPairs(ctx)
		if err != nil {
			healthy = false
			findings["training_pairs"] = "unreachable: " + err.Error()
		} else {
			findings["training_pairs"] = fmt.Sprintf("%d stored", len(pairs))
		}
	}

	if c.reg != nil {
		entries := c.reg.List()
		if len(entries) == 0 {
			findings["model_registry"] = "no models registered"
		} else {
			newest := entries[0].RegisteredAt
			for _, e := range entries[1:] {
				if e.RegisteredAt.After(newest) {
					newest = e.RegisteredAt
				}
			}
			if age := time.Since(newest); age > staleModelAge {
				healthy = false
				findings["model_registry"] = fmt.Sprintf("newest model is stale (%s old)", age.Round(time.Hour))
			} else {
				findings["model_registry"] = fmt.Sprintf("%d versions, newest %s old", len(entries), age.Round(time.Minute))
			}
		}
	}

	if c.checkpoint != "" {
		if _, err := os.Stat(c.checkpoint); err != nil {
			findings["checkpoint"] = "missing: " + c.checkpoint
		} else {
			findings["checkpoint"] = "ok"
		}
	}

	return healthy, findings
}
