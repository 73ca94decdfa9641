package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"qapipe/internal/api"
	"qapipe/internal/collect"
	"qapipe/internal/config"
	"qapipe/internal/eval"
	"qapipe/internal/monitor"
	"qapipe/internal/pipeline"
	"qapipe/internal/registry"
	"qapipe/internal/storage"
	"qapipe/internal/train"
	"qapipe/pkg/logx"
)

type stageName string

const (
	stageCollect  stageName = "data_collection"
	stageTrain    stageName = "training"
	stageEvaluate stageName = "evaluation"
	stageDeploy   stageName = "deployment"
)

var errStageFailed = errors.New("stage failed")

// buildOrchestrator assembles the pipeline from config. The returned cleanup
// closes the store and must run even when construction of later pieces fails.
func buildOrchestrator(cfg *config.Config, log logx.Logger) (*pipeline.Orchestrator, func(), error) {
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.StorageBusyTimeout(),
	}, log.With(logx.String("component", "storage")))
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warn("closing store", logx.Err(err))
		}
	}

	reg, err := registry.New(cfg.Deployment.RegistryPath, log.With(logx.String("component", "registry")))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("open model registry: %w", err)
	}

	trainer := train.NewTrainer(cfg.Training, log.With(logx.String("component", "trainer")))

	deps := pipeline.Deps{
		Collector: collect.NewCollector(cfg.DataCollection, log.With(logx.String("component", "collector"))),
		Store:     store,
		Generator: train.NewQAGenerator(log.With(logx.String("component", "qagen"))),
		Trainer:   trainer,
		Sampler:   eval.NewSampler(log.With(logx.String("component", "sampler"))),
		Evaluator: eval.NewEvaluator(eval.LeadSentence, log.With(logx.String("component", "evaluator"))),
		Registry:  reg,
		Health:    monitor.NewChecker(store, reg, trainer.CheckpointDir(), log.With(logx.String("component", "monitor"))),
	}

	return pipeline.New(cfg, deps, log.With(logx.String("component", "pipeline"))), cleanup, nil
}

func cmdRunPipeline(ctx context.Context, cfg *config.Config, log logx.Logger) error {
	orch, cleanup, err := buildOrchestrator(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	report := orch.RunFullPipeline(ctx)
	writeReport(report, log)

	if b, err := json.Marshal(report); err == nil {
		fmt.Println(string(b))
	}
	if !report.Success {
		return errors.New("pipeline run failed")
	}
	fmt.Println("pipeline run succeeded:", report.RunID)
	return nil
}

func cmdStage(ctx context.Context, cfg *config.Config, log logx.Logger, stage stageName) error {
	orch, cleanup, err := buildOrchestrator(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	switch stage {
	case stageCollect:
		if !orch.RunDataCollection(ctx) {
			return errStageFailed
		}
	case stageTrain:
		if !orch.RunTraining(ctx) {
			return errStageFailed
		}
	case stageEvaluate:
		metrics := orch.RunEvaluation(ctx)
		if len(metrics) == 0 {
			return errStageFailed
		}
		for name, v := range metrics {
			log.Info("metric", logx.String("name", name), logx.Float64("value", v))
		}
	case stageDeploy:
		if !orch.RunDeployment(ctx) {
			return errStageFailed
		}
	}
	return nil
}

func cmdStartAPI(ctx context.Context, cfg *config.Config, log logx.Logger, args []string) error {
	fs := flag.NewFlagSet("start-api", flag.ContinueOnError)
	host := fs.String("host", cfg.API.Host, "listen host")
	port := fs.Int("port", cfg.API.Port, "listen port")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.StorageBusyTimeout(),
	}, log.With(logx.String("component", "storage")))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	reg, err := registry.New(cfg.Deployment.RegistryPath, log.With(logx.String("component", "registry")))
	if err != nil {
		return fmt.Errorf("open model registry: %w", err)
	}

	apiCfg := cfg.API
	apiCfg.Host = *host
	apiCfg.Port = *port

	srv := api.New(apiCfg, reg, store, log.With(logx.String("component", "api")))
	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return srv.Stop(context.Background())
}

// writeReport persists the run report under ./results and logs the summary.
func writeReport(report pipeline.Report, log logx.Logger) {
	log.Info("pipeline run finished",
		logx.String("run_id", report.RunID),
		logx.Bool("success", report.Success),
		logx.Bool("data_collection", report.DataCollection),
		logx.Bool("training", report.Training),
		logx.Int("metrics", len(report.Evaluation)),
		logx.Bool("deployment", report.Deployment),
		logx.Duration("elapsed", report.EndTime.Sub(report.StartTime)))

	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return
	}
	name := fmt.Sprintf("pipeline_report_%s.json", time.Now().Format("20060102_150405"))
	path := filepath.Join("./results", name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		log.Warn("writing run report", logx.String("path", path), logx.Err(err))
	}
}
