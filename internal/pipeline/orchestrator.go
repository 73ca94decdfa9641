package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"qapipe/internal/config"
	"qapipe/internal/storage"
	logx "qapipe/pkg/logx"
)

// Deps are the external collaborators one orchestrator drives.
type Deps struct {
	Collector Collector
	Store     storage.Store
	Generator PairGenerator
	Trainer   Trainer
	Sampler   BenchmarkSampler
	Evaluator Evaluator
	Registry  ModelRegistry
	Health    HealthChecker
}

// Orchestrator runs the four pipeline stages. The config is captured at
// construction and treated as immutable for the orchestrator's lifetime;
// build a fresh orchestrator to pick up a reloaded config.
type Orchestrator struct {
	cfg  *config.Config
	deps Deps
	log  logx.Logger
}

func New(cfg *config.Config, deps Deps, log logx.Logger) *Orchestrator {
	if cfg == nil {
		cfg = config.Default()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Orchestrator{cfg: cfg, deps: deps, log: log}
}

// RunDataCollection collects documents for the configured domain and stores
// them. Returns true only when at least one document survived cleaning and
// was stored. Collaborator errors are logged and converted to false.
func (o *Orchestrator) RunDataCollection(ctx context.Context) bool {
	o.log.Info("starting data collection",
		logx.String("domain", o.cfg.DataCollection.Domain),
		logx.Int("max_documents", o.cfg.DataCollection.MaxDocuments))

	docs, err := o.deps.Collector.Collect(ctx, o.cfg.DataCollection.Domain, o.cfg.DataCollection.MaxDocuments)
	if err != nil {
		o.log.Error("data collection failed", logx.Err(err))
		return false
	}
	if len(docs) == 0 {
		o.log.Error("data collection produced no documents")
		return false
	}

	ids, err := o.deps.Store.StoreDocuments(ctx, docs)
	if err != nil {
		o.log.Error("storing collected documents failed", logx.Err(err))
		return false
	}

	o.log.Info("data collection completed", logx.Int("documents", len(ids)))
	return true
}

// RunTraining generates training pairs from the stored documents, stores
// them, and fine-tunes the model. Fails fast (without invoking the
// generator) when no documents exist.
func (o *Orchestrator) RunTraining(ctx context.Context) bool {
	o.log.Info("starting model training")

	docs, err := o.deps.Store.Documents(ctx, 0)
	if err != nil {
		o.log.Error("fetching documents failed", logx.Err(err))
		return false
	}
	if len(docs) == 0 {
		o.log.Error("no documents found for training")
		return false
	}

	pairs, err := o.deps.Generator.Generate(ctx, docs)
	if err != nil {
		o.log.Error("training pair generation failed", logx.Err(err))
		return false
	}
	if _, err := o.deps.Store.StoreTrainingPairs(ctx, pairs); err != nil {
		o.log.Error("storing training pairs failed", logx.Err(err))
		return false
	}

	if err := o.deps.Trainer.Train(ctx, pairs); err != nil {
		o.log.Error("training failed", logx.Err(err))
		return false
	}

	o.log.Info("training completed", logx.Int("pairs", len(pairs)))
	return true
}

// RunEvaluation scores a benchmark sample of the stored training pairs.
// An empty map signals failure: no metric is meaningful without data.
func (o *Orchestrator) RunEvaluation(ctx context.Context) map[string]float64 {
	o.log.Info("starting model evaluation")

	pairs, err := o.deps.Store.TrainingPairs(ctx)
	if err != nil {
		o.log.Error("fetching training pairs failed", logx.Err(err))
		return map[string]float64{}
	}
	if len(pairs) == 0 {
		o.log.Error("no training pairs found for evaluation")
		return map[string]float64{}
	}

	sample := o.deps.Sampler.Sample(pairs, o.cfg.Evaluation.BenchmarkSize)
	metrics, err := o.deps.Evaluator.Evaluate(ctx, sample)
	if err != nil {
		o.log.Error("evaluation failed", logx.Err(err))
		return map[string]float64{}
	}

	o.log.Info("evaluation completed", logx.Any("metrics", metrics))
	return metrics
}

// RunDeployment registers the latest trained checkpoint under a timestamped
// version tag, optionally noting auto-deploy. Registry failures become false.
func (o *Orchestrator) RunDeployment(ctx context.Context) bool {
	o.log.Info("starting model deployment")

	version := fmt.Sprintf("v%d", time.Now().Unix())
	checkpoint := filepath.Join(o.cfg.Training.OutputDir, "final_checkpoint")

	modelID, err := o.deps.Registry.Register(ctx, o.cfg.Training.ModelName, version, checkpoint,
		map[string]string{"trained_at": time.Now().Format(time.RFC3339)})
	if err != nil {
		o.log.Error("deployment failed", logx.Err(err))
		return false
	}

	o.log.Info("model registered", logx.String("model_id", modelID))

	if o.cfg.Deployment.AutoDeploy {
		// In production this would kick the serving rollout.
		o.log.Info("auto-deployment triggered", logx.String("model_id", modelID))
	}
	return true
}

// RunFullPipeline runs the four stages in strict order. Each stage runs only
// if it is enabled AND the previous stage succeeded; any guard failure skips
// the remaining stages (not attempted, not retried).
func (o *Orchestrator) RunFullPipeline(ctx context.Context) Report {
	o.log.Info("starting full pipeline execution")

	report := Report{
		RunID:      uuid.NewString(),
		StartTime:  time.Now(),
		Evaluation: map[string]float64{},
	}

	if o.cfg.DataCollection.Enabled {
		report.DataCollection = o.RunDataCollection(ctx)
	}

	if o.cfg.Training.Enabled && report.DataCollection {
		report.Training = o.RunTraining(ctx)
	}

	if o.cfg.Evaluation.Enabled && report.Training {
		report.Evaluation = o.RunEvaluation(ctx)
	}

	if o.cfg.Deployment.Enabled && len(report.Evaluation) > 0 {
		report.Deployment = o.RunDeployment(ctx)
	}

	report.finish()
	o.log.Info("pipeline execution completed",
		logx.String("run_id", report.RunID),
		logx.Bool("success", report.Success),
		logx.Duration("took", report.EndTime.Sub(report.StartTime)))
	return report
}

// RunMonitoring checks shared-resource health and logs findings. Returns
// whether everything looked healthy. Safe to call with no checker wired.
func (o *Orchestrator) RunMonitoring(ctx context.Context) bool {
	if o.deps.Health == nil {
		o.log.Debug("monitoring skipped: no health checker configured")
		return true
	}

	healthy, findings := o.deps.Health.Check(ctx)
	if healthy {
		o.log.Info("monitoring check passed", logx.Int("checks", len(findings)))
		return true
	}
	for name, finding := range findings {
		o.log.Warn("monitoring finding", logx.String("check", name), logx.String("detail", finding))
	}
	return false
}
