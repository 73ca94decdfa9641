package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "qapipe/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) StoreDocuments(ctx context.Context, docs []Document) ([]int64, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]int64, 0, len(docs))
	for _, d := range docs {
		meta := ""
		if len(d.Metadata) > 0 {
			b, err := json.Marshal(d.Metadata)
			if err == nil {
				meta = string(b)
			}
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO documents (url, title, content, source, timestamp, metadata)
			VALUES (?, ?, ?, ?, ?, ?)`,
			d.URL, d.Title, d.Content, d.Source, d.Timestamp.Unix(), meta)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.log.Debug("documents stored", logx.Int("count", len(ids)))
	return ids, nil
}

func (s *sqliteStore) Documents(ctx context.Context, limit int) ([]Document, error) {
	q := `SELECT id, url, title, content, source, timestamp, metadata FROM documents ORDER BY id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var (
			d    Document
			ts   int64
			meta sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.URL, &d.Title, &d.Content, &d.Source, &ts, &meta); err != nil {
			return nil, err
		}
		d.Timestamp = time.Unix(ts, 0)
		if meta.Valid && meta.String != "" {
			_ = json.Unmarshal([]byte(meta.String), &d.Metadata)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *sqliteStore) StoreTrainingPairs(ctx context.Context, pairs []QAPair) ([]int64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]int64, 0, len(pairs))
	for _, p := range pairs {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO training_pairs (question, answer, context, source_doc_id)
			VALUES (?, ?, ?, ?)`,
			p.Question, p.Answer, p.Context, p.SourceDocID)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.log.Debug("training pairs stored", logx.Int("count", len(ids)))
	return ids, nil
}

func (s *sqliteStore) TrainingPairs(ctx context.Context) ([]QAPair, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, context, source_doc_id FROM training_pairs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QAPair
	for rows.Next() {
		var (
			p     QAPair
			docID sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.Question, &p.Answer, &p.Context, &docID); err != nil {
			return nil, err
		}
		if docID.Valid {
			p.SourceDocID = docID.Int64
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
