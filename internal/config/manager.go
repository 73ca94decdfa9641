package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	logx "qapipe/pkg/logx"
)

// Manager owns the config file path and the currently committed config.
//
// Load() never fails: a missing or malformed file is logged at warning level
// and replaced by Default(). The committed config is immutable; reloads
// commit a fresh value, so a pipeline run that captured the old pointer keeps
// seeing a consistent snapshot for its whole duration.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	log logx.Logger

	// lastHash tracks the last committed content so watch-triggered reloads
	// skip redundant publishes when the editor rewrites identical bytes.
	lastHash uint64
}

func NewManager(path string, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{path: path, log: log}
}

func (m *Manager) Path() string { return m.path }

// Parse reads and strictly decodes the config file. YAML files are coerced to
// JSON bytes first so both formats go through DisallowUnknownFields.
func (m *Manager) Parse() (*Config, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}
	jb, err := toJSONBytes(m.path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	return &cfg, nil
}

// Load parses the config file, falling back to Default() on any error.
// The fallback is a recovery path, not an error: callers always get a config.
func (m *Manager) Load() *Config {
	cfg, err := m.Parse()
	if err != nil {
		m.log.Warn("config unreadable, using defaults",
			logx.String("path", m.path), logx.Err(err))
		cfg = Default()
	}
	m.Commit(cfg)
	return cfg
}

func (m *Manager) Commit(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.lastHash = hashConfig(cfg)
	m.mu.Unlock()
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func hashConfig(cfg *Config) uint64 {
	if cfg == nil {
		return 0
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

// PollInterval resolves the scheduler poll interval (default 60s).
func (c *Config) PollInterval() time.Duration {
	d, err := parseDurationField("scheduler.poll_interval", c.Scheduler.PollInterval)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// StorageBusyTimeout resolves the sqlite busy timeout ("" means zero).
func (c *Config) StorageBusyTimeout() time.Duration {
	d, err := parseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	if err != nil {
		return 0
	}
	return d
}

func parseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}
