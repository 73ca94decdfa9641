package pipeline

import (
	"context"

	"qapipe/internal/storage"
)

// Collector acquires and cleans raw documents for a domain.
// Implementations own scraping, extraction, and filtering; the orchestrator
// only cares about the survivors.
type Collector interface {
	Collect(ctx context.Context, domain string, limit int) ([]storage.Document, error)
}

// PairGenerator produces question/answer training pairs from documents.
type PairGenerator interface {
	Generate(ctx context.Context, docs []storage.Document) ([]storage.QAPair, error)
}

// Trainer fine-tunes a model on the generated pairs. Formatting the pairs
// into the training prompt shape is the trainer's concern.
type Trainer interface {
	Train(ctx context.Context, pairs []storage.QAPair) error
}

// BenchmarkSampler picks an evaluation sample from the stored pairs.
type BenchmarkSampler interface {
	Sample(pairs []storage.QAPair, size int) []storage.QAPair
}

// Evaluator scores a benchmark sample, returning metric name -> score.
// An empty map is meaningless here: implementations return at least one
// metric or an error.
type Evaluator interface {
	Evaluate(ctx context.Context, sample []storage.QAPair) (map[string]float64, error)
}

// ModelRegistry records trained model artifacts under version tags.
type ModelRegistry interface {
	Register(ctx context.Context, name, version, path string, metadata map[string]string) (string, error)
}

// HealthChecker reports the health of the pipeline's shared resources.
type HealthChecker interface {
	Check(ctx context.Context) (healthy bool, findings map[string]string)
}
