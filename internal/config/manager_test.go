package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"qapipe/pkg/logx"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	m := NewManager(filepath.Join(t.TempDir(), "absent.yaml"), logx.Nop())
	cfg := m.Load()

	if cfg == nil {
		t.Fatal("Load returned nil")
	}
	if !cfg.DataCollection.Enabled || !cfg.Training.Enabled {
		t.Fatal("defaults should enable all stages")
	}
	if cfg.Training.ModelName != "ev_charging_qa_model" {
		t.Fatalf("ModelName = %q", cfg.Training.ModelName)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestLoadMalformedFileFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.yaml", "training: [not a mapping")
	m := NewManager(path, logx.Nop())
	cfg := m.Load()

	if cfg.Training.MaxSteps != 50 {
		t.Fatalf("MaxSteps = %d, want default 50", cfg.Training.MaxSteps)
	}
}

func TestParseValidYAML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.yaml", `
data_collection:
  enabled: true
  domain: solar inverters
  max_documents: 25
training:
  enabled: false
  model_name: solar_qa
scheduler:
  poll_interval: 5s
`)
	m := NewManager(path, logx.Nop())
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.DataCollection.Domain != "solar inverters" || cfg.DataCollection.MaxDocuments != 25 {
		t.Fatalf("data_collection = %+v", cfg.DataCollection)
	}
	if cfg.Training.Enabled {
		t.Fatal("training should be disabled")
	}
	if got := cfg.PollInterval(); got != 5*time.Second {
		t.Fatalf("PollInterval = %v, want 5s", got)
	}
}

func TestToJSONBytes(t *testing.T) {
	t.Parallel()

	// JSON passes through untouched; YAML is re-marshaled with all map keys
	// coerced to strings (yaml decodes bare scalar keys as non-strings).
	raw := []byte(`{"training": {"enabled": true}}`)
	got, err := toJSONBytes("config.json", raw)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(raw) {
		t.Fatalf("json input rewritten: %s", got)
	}

	got, err = toJSONBytes("config.yaml", []byte("meta:\n  1: one\n  two: 2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"meta":{"1":"one","two":2}}` {
		t.Fatalf("yaml coercion = %s", got)
	}
}

func TestParseValidJSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.json", `{"evaluation": {"enabled": true, "benchmark_size": 10}}`)
	m := NewManager(path, logx.Nop())
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Evaluation.BenchmarkSize != 10 {
		t.Fatalf("BenchmarkSize = %d", cfg.Evaluation.BenchmarkSize)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.yaml", "trainnig:\n  enabled: true\n")
	m := NewManager(path, logx.Nop())
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.json", `{"training": {"enabled": true}}{"extra": 1}`)
	m := NewManager(path, logx.Nop())
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestDurationFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want time.Duration
	}{
		{name: "empty defaults", raw: "", want: 60 * time.Second},
		{name: "valid", raw: "90s", want: 90 * time.Second},
		{name: "invalid defaults", raw: "soon", want: 60 * time.Second},
		{name: "negative defaults", raw: "-5s", want: 60 * time.Second},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Scheduler.PollInterval = tt.raw
			if got := cfg.PollInterval(); got != tt.want {
				t.Fatalf("PollInterval(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestStageChanges(t *testing.T) {
	t.Parallel()

	oldCfg := Default()
	newCfg := Default()
	newCfg.Training.Enabled = false
	newCfg.Deployment.Enabled = false

	changes := StageChanges(oldCfg, newCfg)
	if len(changes) != 2 {
		t.Fatalf("changes = %v, want 2 entries", changes)
	}

	if got := StageChanges(oldCfg, oldCfg); len(got) != 0 {
		t.Fatalf("identical configs produced changes: %v", got)
	}
}
