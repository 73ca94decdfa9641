package storage

import "time"

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file (default)
//   - "file":   JSONL files next to Path
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Document is one cleaned source document.
// Keep it compact and schema-stable.
type Document struct {
	ID        int64             `json:"id,omitempty"`
	URL       string            `json:"url,omitempty"`
	Title     string            `json:"title,omitempty"`
	Content   string            `json:"content"`
	Source    string            `json:"source,omitempty"`
	Timestamp time.Time         `json:"timestamp,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// QAPair is one generated question/answer training example.
type QAPair struct {
	ID          int64  `json:"id,omitempty"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Context     string `json:"context,omitempty"`
	SourceDocID int64  `json:"source_doc_id,omitempty"`
}
