package config

// Config is the full pipeline configuration.
//
// The four stage blocks mirror the orchestrator's stages; everything else is
// ambient (logging, storage, scheduler, API, alerts). Parameter values are
// deliberately not validated here: out-of-range values are each stage
// collaborator's problem to reject.
type Config struct {
	DataCollection DataCollectionConfig `json:"data_collection"`
	Training       TrainingConfig       `json:"training"`
	Evaluation     EvaluationConfig     `json:"evaluation"`
	Deployment     DeploymentConfig     `json:"deployment"`

	Logging   LoggingConfig   `json:"logging,omitempty"`
	Storage   StorageConfig   `json:"storage,omitempty"`
	Scheduler SchedulerConfig `json:"scheduler,omitempty"`
	API       APIConfig       `json:"api,omitempty"`
	Alerts    *AlertsConfig   `json:"alerts,omitempty"`
}

type DataCollectionConfig struct {
	Enabled bool `json:"enabled"`

	// Domain is the topic the collector searches for.
	Domain string `json:"domain,omitempty"`

	// Sources selects the collector kinds: "web" (scraping + domain
	// search) and/or "pdf" (local PDF extraction). Empty means web only.
	Sources      []string `json:"sources,omitempty"`
	MaxDocuments int      `json:"max_documents,omitempty"`

	// SeedURLs are scraped directly in addition to domain search.
	SeedURLs []string `json:"seed_urls,omitempty"`

	// SearchBase is the search endpoint queried with the domain; empty
	// uses the built-in default.
	SearchBase string `json:"search_base,omitempty"`

	// PDFDir is where the "pdf" source looks for files.
	PDFDir string `json:"pdf_dir,omitempty"`

	// RequestsPerSec throttles outbound scraping (0 = default).
	RequestsPerSec float64 `json:"requests_per_sec,omitempty"`
}

type TrainingConfig struct {
	Enabled      bool    `json:"enabled"`
	ModelName    string  `json:"model_name,omitempty"`
	MaxSteps     int     `json:"max_steps,omitempty"`
	BatchSize    int     `json:"batch_size,omitempty"`
	LearningRate float64 `json:"learning_rate,omitempty"`
	OutputDir    string  `json:"output_dir,omitempty"`
}

type EvaluationConfig struct {
	Enabled       bool `json:"enabled"`
	BenchmarkSize int  `json:"benchmark_size,omitempty"`
}

type DeploymentConfig struct {
	Enabled      bool   `json:"enabled"`
	AutoDeploy   bool   `json:"auto_deploy"`
	RegistryPath string `json:"registry_path,omitempty"`
}

type LoggingConfig struct {
	Level   string            `json:"level,omitempty"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file,omitempty"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig selects the document/training-pair store.
//
// Driver values:
//   - "sqlite": SQLite database file (default)
//   - "file":   dependency-free JSONL backend
type StorageConfig struct {
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path,omitempty"`

	// BusyTimeout is a Go duration string (sqlite only; "" means default).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type SchedulerConfig struct {
	// PollInterval is a Go duration string; "" defaults to "60s".
	PollInterval string `json:"poll_interval,omitempty"`
	Timezone     string `json:"timezone,omitempty"` // IANA TZ, e.g. "Asia/Jakarta"
}

type APIConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`

	// Token guards /ask and /models. Empty disables auth (dev only).
	Token string `json:"token,omitempty"`
}

// AlertsConfig configures failure notifications for scheduled runs.
// A pointer so an omitted block means disabled.
type AlertsConfig struct {
	Telegram *TelegramAlertConfig `json:"telegram,omitempty"`
}

type TelegramAlertConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	ChatID  int64  `json:"chat_id,omitempty"`
}

// Default returns the built-in configuration used when the config file is
// missing or malformed. All four stages are enabled.
func Default() *Config {
	return &Config{
		DataCollection: DataCollectionConfig{
			Enabled:      true,
			Domain:       "electric vehicle charging",
			Sources:      []string{"web", "pdf"},
			MaxDocuments: 100,
			PDFDir:       "./data/pdfs",
		},
		Training: TrainingConfig{
			Enabled:      true,
			ModelName:    "ev_charging_qa_model",
			MaxSteps:     50,
			BatchSize:    4,
			LearningRate: 2e-4,
			OutputDir:    "./results",
		},
		Evaluation: EvaluationConfig{
			Enabled:       true,
			BenchmarkSize: 50,
		},
		Deployment: DeploymentConfig{
			Enabled:      true,
			AutoDeploy:   false,
			RegistryPath: "./model_registry",
		},
		Logging: LoggingConfig{
			Level:   "INFO",
			Console: true,
			File:    LoggingFileConfig{Enabled: true, Path: "./logs/qapipe.log"},
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "./data/processed_data.db",
		},
		Scheduler: SchedulerConfig{
			PollInterval: "60s",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
	}
}
