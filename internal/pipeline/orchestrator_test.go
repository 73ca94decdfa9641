package pipeline

import (
	"context"
	"errors"
	"testing"

	"qapipe/internal/config"
	"qapipe/internal/storage"
	"qapipe/pkg/logx"
)

type fakeCollector struct {
	calls int
	docs  []storage.Document
	err   error
}

func (f *fakeCollector) Collect(ctx context.Context, domain string, limit int) ([]storage.Document, error) {
	f.calls++
	return f.docs, f.err
}

type fakeStore struct {
	docs  []storage.Document
	pairs []storage.QAPair

	docsErr  error
	pairsErr error

	storedDocs  int
	storedPairs int
}

func (f *fakeStore) StoreDocuments(ctx context.Context, docs []storage.Document) ([]int64, error) {
	f.storedDocs++
	ids := make([]int64, len(docs))
	return ids, f.docsErr
}

func (f *fakeStore) Documents(ctx context.Context, limit int) ([]storage.Document, error) {
	return f.docs, f.docsErr
}

func (f *fakeStore) StoreTrainingPairs(ctx context.Context, pairs []storage.QAPair) ([]int64, error) {
	f.storedPairs++
	ids := make([]int64, len(pairs))
	return ids, f.pairsErr
}

func (f *fakeStore) TrainingPairs(ctx context.Context) ([]storage.QAPair, error) {
	return f.pairs, f.pairsErr
}

func (f *fakeStore) Close() error { return nil }

type fakeGenerator struct {
	calls int
	pairs []storage.QAPair
	err   error
}

func (f *fakeGenerator) Generate(ctx context.Context, docs []storage.Document) ([]storage.QAPair, error) {
	f.calls++
	return f.pairs, f.err
}

type fakeTrainer struct {
	calls int
	err   error
}

func (f *fakeTrainer) Train(ctx context.Context, pairs []storage.QAPair) error {
	f.calls++
	return f.err
}

type fakeSampler struct{ calls int }

func (f *fakeSampler) Sample(pairs []storage.QAPair, size int) []storage.QAPair {
	f.calls++
	if size > 0 && size < len(pairs) {
		return pairs[:size]
	}
	return pairs
}

type fakeEvaluator struct {
	calls   int
	metrics map[string]float64
	err     error
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, sample []storage.QAPair) (map[string]float64, error) {
	f.calls++
	return f.metrics, f.err
}

type fakeRegistry struct {
	calls int
	err   error
}

func (f *fakeRegistry) Register(ctx context.Context, name, version, path string, metadata map[string]string) (string, error) {
	f.calls++
	return name + ":" + version, f.err
}

type fakeHealth struct {
	healthy  bool
	findings map[string]string
}

func (f *fakeHealth) Check(ctx context.Context) (bool, map[string]string) {
	return f.healthy, f.findings
}

type fixture struct {
	collector *fakeCollector
	store     *fakeStore
	generator *fakeGenerator
	trainer   *fakeTrainer
	sampler   *fakeSampler
	evaluator *fakeEvaluator
	registry  *fakeRegistry
}

func newFixture() *fixture {
	return &fixture{
		collector: &fakeCollector{docs: []storage.Document{{Content: "charging basics"}}},
		store: &fakeStore{
			docs:  []storage.Document{{ID: 1, Content: "charging basics"}},
			pairs: []storage.QAPair{{ID: 1, Question: "What is charging?", Answer: "Transfer of energy."}},
		},
		generator: &fakeGenerator{pairs: []storage.QAPair{{Question: "q", Answer: "a"}}},
		trainer:   &fakeTrainer{},
		sampler:   &fakeSampler{},
		evaluator: &fakeEvaluator{metrics: map[string]float64{"rouge1": 0.5}},
		registry:  &fakeRegistry{},
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Collector: f.collector,
		Store:     f.store,
		Generator: f.generator,
		Trainer:   f.trainer,
		Sampler:   f.sampler,
		Evaluator: f.evaluator,
		Registry:  f.registry,
	}
}

func allEnabled() *config.Config {
	cfg := config.Default()
	return cfg
}

func TestRunFullPipelineAllStagesSucceed(t *testing.T) {
	t.Parallel()

	f := newFixture()
	orch := New(allEnabled(), f.deps(), logx.Nop())

	report := orch.RunFullPipeline(context.Background())

	if !report.DataCollection || !report.Training || !report.Deployment {
		t.Fatalf("stage flags = %+v, want all true", report)
	}
	if len(report.Evaluation) == 0 {
		t.Fatal("expected evaluation metrics")
	}
	if !report.Success {
		t.Fatal("expected overall success")
	}
	if report.RunID == "" {
		t.Fatal("expected a run id")
	}
	if report.EndTime.Before(report.StartTime) {
		t.Fatal("end time precedes start time")
	}
}

func TestRunFullPipelineDisabledTrainingSkipsDownstream(t *testing.T) {
	t.Parallel()

	f := newFixture()
	cfg := allEnabled()
	cfg.Training.Enabled = false
	orch := New(cfg, f.deps(), logx.Nop())

	report := orch.RunFullPipeline(context.Background())

	if !report.DataCollection {
		t.Fatal("data collection should still run")
	}
	if report.Training {
		t.Fatal("training ran despite being disabled")
	}
	if f.trainer.calls != 0 || f.generator.calls != 0 {
		t.Fatalf("training collaborators invoked: trainer=%d generator=%d", f.trainer.calls, f.generator.calls)
	}
	if f.evaluator.calls != 0 || f.registry.calls != 0 {
		t.Fatalf("downstream stages attempted: evaluator=%d registry=%d", f.evaluator.calls, f.registry.calls)
	}
	if len(report.Evaluation) != 0 {
		t.Fatal("expected no evaluation metrics")
	}
	// A disabled stage still blocks overall success.
	if report.Success {
		t.Fatal("run reported success with training disabled")
	}
}

func TestRunFullPipelineCollectionFailureSkipsEverything(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.collector.err = errors.New("network down")
	orch := New(allEnabled(), f.deps(), logx.Nop())

	report := orch.RunFullPipeline(context.Background())

	if report.DataCollection || report.Training || report.Deployment || report.Success {
		t.Fatalf("expected all-false report, got %+v", report)
	}
	if f.generator.calls != 0 || f.evaluator.calls != 0 || f.registry.calls != 0 {
		t.Fatal("downstream stages attempted after collection failure")
	}
}

func TestRunDataCollectionZeroDocumentsFails(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.collector.docs = nil
	orch := New(allEnabled(), f.deps(), logx.Nop())

	if orch.RunDataCollection(context.Background()) {
		t.Fatal("expected failure with zero collected documents")
	}
	if f.store.storedDocs != 0 {
		t.Fatal("store should not be called with zero documents")
	}
}

func TestRunTrainingNoDocumentsFailsFast(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.docs = nil
	orch := New(allEnabled(), f.deps(), logx.Nop())

	if orch.RunTraining(context.Background()) {
		t.Fatal("expected training failure with empty store")
	}
	if f.generator.calls != 0 {
		t.Fatal("generator invoked despite empty store")
	}
	if f.trainer.calls != 0 {
		t.Fatal("trainer invoked despite empty store")
	}
}

func TestRunTrainingStoresGeneratedPairs(t *testing.T) {
	t.Parallel()

	f := newFixture()
	orch := New(allEnabled(), f.deps(), logx.Nop())

	if !orch.RunTraining(context.Background()) {
		t.Fatal("expected training to succeed")
	}
	if f.store.storedPairs != 1 {
		t.Fatalf("StoreTrainingPairs calls = %d, want 1", f.store.storedPairs)
	}
	if f.trainer.calls != 1 {
		t.Fatalf("trainer calls = %d, want 1", f.trainer.calls)
	}
}

func TestRunEvaluationNoPairsReturnsEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.store.pairs = nil
	orch := New(allEnabled(), f.deps(), logx.Nop())

	metrics := orch.RunEvaluation(context.Background())
	if len(metrics) != 0 {
		t.Fatalf("metrics = %v, want empty", metrics)
	}
	if f.evaluator.calls != 0 {
		t.Fatal("evaluator invoked with no pairs")
	}
}

func TestRunDeploymentRegistryError(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.registry.err = errors.New("disk full")
	orch := New(allEnabled(), f.deps(), logx.Nop())

	if orch.RunDeployment(context.Background()) {
		t.Fatal("expected deployment failure on registry error")
	}
}

func TestReportSuccessRequiresAllFourStages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		report Report
		want   bool
	}{
		{
			name: "all stages",
			report: Report{
				DataCollection: true, Training: true,
				Evaluation: map[string]float64{"bleu": 0.2}, Deployment: true,
			},
			want: true,
		},
		{
			name: "missing deployment",
			report: Report{
				DataCollection: true, Training: true,
				Evaluation: map[string]float64{"bleu": 0.2},
			},
			want: false,
		},
		{
			name: "empty evaluation",
			report: Report{
				DataCollection: true, Training: true,
				Evaluation: map[string]float64{}, Deployment: true,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tt.report.finish()
			if tt.report.Success != tt.want {
				t.Fatalf("Success = %v, want %v", tt.report.Success, tt.want)
			}
		})
	}
}

func TestRunMonitoring(t *testing.T) {
	t.Parallel()

	f := newFixture()
	deps := f.deps()
	deps.Health = &fakeHealth{healthy: false, findings: map[string]string{"store": "empty"}}
	orch := New(allEnabled(), deps, logx.Nop())

	if orch.RunMonitoring(context.Background()) {
		t.Fatal("expected unhealthy result")
	}

	deps.Health = &fakeHealth{healthy: true}
	orch = New(allEnabled(), deps, logx.Nop())
	if !orch.RunMonitoring(context.Background()) {
		t.Fatal("expected healthy result")
	}
}
