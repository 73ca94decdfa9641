// Package registry is a JSON-file model registry: versions per model name,
// registered atomically, with "latest" resolved by the max version string.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	logx "qapipe/pkg/logx"
)

// ModelInfo describes one registered model version.
type ModelInfo struct {
	ModelPath    string            `json:"model_path"`
	RegisteredAt time.Time         `json:"registered_at"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Status       string            `json:"status"`
}

// Entry is a flattened (name, version) listing row.
type Entry struct {
	ModelName string `json:"model_name"`
	Version   string `json:"version"`
	ModelInfo
}

// Registry persists model versions in a single registry.json. The file is
// reloaded on every operation and rewritten atomically, so concurrent
// pipeline runs see last-writer-wins rather than corruption.
type Registry struct {
	mu   sync.Mutex
	path string
	log  logx.Logger
}

func New(dir string, log logx.Logger) (*Registry, error) {
	if dir == "" {
		dir = "./model_registry"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Registry{path: filepath.Join(dir, "registry.json"), log: log}, nil
}

type registryFile map[string]map[string]ModelInfo

func (r *Registry) load() registryFile {
	b, err := os.ReadFile(r.path)
	if err != nil {
		return registryFile{}
	}
	var f registryFile
	if err := json.Unmarshal(b, &f); err != nil {
		r.log.Warn("registry file unreadable, treating as empty", logx.Err(err))
		return registryFile{}
	}
	return f
}

func (r *Registry) save(f registryFile) error {
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

// Register records a new model version and returns its model ID
// ("name:version").
func (r *Registry) Register(ctx context.Context, name, version, path string, metadata map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.load()
	if f[name] == nil {
		f[name] = map[string]ModelInfo{}
	}
	f[name][version] = ModelInfo{
		ModelPath:    path,
		RegisteredAt: time.Now(),
		Metadata:     metadata,
		Status:       "registered",
	}
	if err := r.save(f); err != nil {
		return "", err
	}

	id := name + ":" + version
	r.log.Info("model registered", logx.String("model_id", id))
	return id, nil
}

// Get returns model info by name and version. Version "latest" (or "")
// resolves to the greatest version string.
func (r *Registry) Get(name, version string) (ModelInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.load()
	versions, ok := f[name]
	if !ok || len(versions) == 0 {
		return ModelInfo{}, fmt.Errorf("model %s not found in registry", name)
	}

	if version == "" || version == "latest" {
		// "latest" is the greatest version string; v<unix> tags sort correctly.
		latest := ""
		for v := range versions {
			if v > latest {
				latest = v
			}
		}
		version = latest
	}

	info, ok := versions[version]
	if !ok {
		return ModelInfo{}, fmt.Errorf("version %s not found for model %s", version, name)
	}
	return info, nil
}

// List returns every registered (name, version).
func (r *Registry) List() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.load()
	var out []Entry
	for name, versions := range f {
		for version, info := range versions {
			out = append(out, Entry{ModelName: name, Version: version, ModelInfo: info})
		}
	}
	return out
}

// UpdateStatus changes the status of one model version.
func (r *Registry) UpdateStatus(name, version, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.load()
	if f[name] == nil {
		return fmt.Errorf("model %s:%s not found", name, version)
	}
	info, ok := f[name][version]
	if !ok {
		return fmt.Errorf("model %s:%s not found", name, version)
	}
	info.Status = status
	f[name][version] = info
	if err := r.save(f); err != nil {
		return err
	}
	r.log.Info("model status updated",
		logx.String("model_id", name+":"+version), logx.String("status", status))
	return nil
}
