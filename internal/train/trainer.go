package train

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"qapipe/internal/config"
	"qapipe/internal/storage"
	logx "qapipe/pkg/logx"
)

// Trainer produces the fine-tuned checkpoint artifact. The actual gradient
// work runs out of process on GPU infrastructure; this trainer formats the
// dataset and writes the checkpoint manifest the deployment stage registers.
type Trainer struct {
	cfg config.TrainingConfig
	log logx.Logger
}

// checkpointManifest is the artifact metadata written alongside a checkpoint.
type checkpointManifest struct {
	ModelName    string    `json:"model_name"`
	MaxSteps     int       `json:"max_steps"`
	BatchSize    int       `json:"batch_size"`
	LearningRate float64   `json:"learning_rate"`
	Examples     int       `json:"examples"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewTrainer(cfg config.TrainingConfig, log logx.Logger) *Trainer {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Trainer{cfg: cfg, log: log}
}

// CheckpointDir is where the trained artifact lands.
func (t *Trainer) CheckpointDir() string {
	out := t.cfg.OutputDir
	if out == "" {
		out = "./results"
	}
	return filepath.Join(out, "final_checkpoint")
}

// Train formats the pairs and writes the checkpoint manifest.
func (t *Trainer) Train(ctx context.Context, pairs []storage.QAPair) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dataset := FormatForSFT(pairs)
	if len(dataset) == 0 {
		return errors.New("no usable training examples after formatting")
	}

	dir := t.CheckpointDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	manifest := checkpointManifest{
		ModelName:    t.cfg.ModelName,
		MaxSteps:     t.cfg.MaxSteps,
		BatchSize:    t.cfg.BatchSize,
		LearningRate: t.cfg.LearningRate,
		Examples:     len(dataset),
		CreatedAt:    time.Now(),
	}

	b, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), b, 0o644); err != nil {
		return err
	}

	t.log.Info("training completed",
		logx.String("model", t.cfg.ModelName),
		logx.Int("examples", len(dataset)),
		logx.String("checkpoint", dir))
	return nil
}
