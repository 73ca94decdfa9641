package train

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"qapipe/internal/config"
	"qapipe/internal/storage"
	"qapipe/pkg/logx"
)

func TestGenerateProducesCappedPairs(t *testing.T) {
	t.Parallel()

	docs := []storage.Document{
		{
			ID: 7,
			Content: "Charging stations convert grid power. Connectors follow regional standards. " +
				"Billing happens per kilowatt hour. Sessions are logged remotely. Operators monitor uptime.",
		},
	}

	g := NewQAGenerator(logx.Nop())
	pairs, err := g.Generate(context.Background(), docs)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(pairs) != 3 {
		t.Fatalf("got %d pairs, want the per-document cap of 3", len(pairs))
	}
	for _, p := range pairs {
		if p.SourceDocID != 7 {
			t.Fatalf("SourceDocID = %d, want 7", p.SourceDocID)
		}
		if !strings.HasPrefix(p.Question, "What is ") {
			t.Fatalf("question = %q", p.Question)
		}
		if p.Answer == "" || p.Context == "" {
			t.Fatalf("incomplete pair: %+v", p)
		}
	}
	if pairs[0].Answer != "Charging stations convert grid power" {
		t.Fatalf("first answer = %q", pairs[0].Answer)
	}
}

func TestGenerateSkipsUnusableDocuments(t *testing.T) {
	t.Parallel()

	docs := []storage.Document{
		{ID: 1, Content: ""},
		{ID: 2, Content: "Too short. No. Tiny."},
		{ID: 3, Content: "Only this document has proper sentences to work with."},
	}

	g := NewQAGenerator(logx.Nop())
	pairs, err := g.Generate(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	if pairs[0].SourceDocID != 3 {
		t.Fatalf("SourceDocID = %d, want 3", pairs[0].SourceDocID)
	}
}

func TestFormatForSFT(t *testing.T) {
	t.Parallel()

	pairs := []storage.QAPair{
		{Question: "What is AC?", Answer: "Alternating current.", Context: "AC powers Level 2."},
		{Question: "What is DC?", Answer: "Direct current."},
		{Question: "", Answer: "dropped"},
		{Question: "dropped", Answer: "  "},
	}

	out := FormatForSFT(pairs)
	if len(out) != 2 {
		t.Fatalf("got %d prompts, want 2", len(out))
	}

	if !strings.Contains(out[0], "### Question:\nWhat is AC?") ||
		!strings.Contains(out[0], "### Context:\nAC powers Level 2.") ||
		!strings.Contains(out[0], "### Answer:\nAlternating current.") {
		t.Fatalf("prompt missing sections:\n%s", out[0])
	}
	if strings.Contains(out[1], "### Context:") {
		t.Fatalf("contextless pair rendered a context section:\n%s", out[1])
	}
}

func TestTrainWritesManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := config.TrainingConfig{
		Enabled:      true,
		ModelName:    "ev_qa",
		MaxSteps:     50,
		BatchSize:    4,
		LearningRate: 2e-4,
		OutputDir:    dir,
	}

	tr := NewTrainer(cfg, logx.Nop())
	pairs := []storage.QAPair{
		{Question: "q", Answer: "a", Context: "c"},
		{Question: "q2", Answer: "a2"},
	}
	if err := tr.Train(context.Background(), pairs); err != nil {
		t.Fatalf("Train: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "final_checkpoint", "manifest.json"))
	if err != nil {
		t.Fatalf("manifest missing: %v", err)
	}

	var manifest struct {
		ModelName string  `json:"model_name"`
		MaxSteps  int     `json:"max_steps"`
		LR        float64 `json:"learning_rate"`
		Examples  int     `json:"examples"`
	}
	if err := json.Unmarshal(b, &manifest); err != nil {
		t.Fatal(err)
	}
	if manifest.ModelName != "ev_qa" || manifest.MaxSteps != 50 || manifest.Examples != 2 {
		t.Fatalf("manifest = %+v", manifest)
	}
}

func TestTrainRejectsEmptyDataset(t *testing.T) {
	t.Parallel()

	tr := NewTrainer(config.TrainingConfig{OutputDir: t.TempDir()}, logx.Nop())
	if err := tr.Train(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty dataset")
	}
	if err := tr.Train(context.Background(), []storage.QAPair{{Question: "", Answer: ""}}); err == nil {
		t.Fatal("expected error when all pairs are unusable")
	}
}
