package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "qapipe/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.documents.jsonl (append-only JSON Lines)
//   - <prefix>.pairs.jsonl     (append-only JSON Lines)
//
// IDs are assigned in memory from the highest ID seen at open time. Suitable
// for small corpora and tests; sqlite is the production driver.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	docFile  *os.File
	pairFile *os.File

	docs  []Document
	pairs []QAPair

	nextDocID  int64
	nextPairID int64
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	docPath := prefix + ".documents.jsonl"
	pairPath := prefix + ".pairs.jsonl"

	s := &fileStore{log: log, nextDocID: 1, nextPairID: 1}

	if err := replayJSONL(docPath, func(b []byte) {
		var d Document
		if json.Unmarshal(b, &d) == nil && d.Content != "" {
			s.docs = append(s.docs, d)
			if d.ID >= s.nextDocID {
				s.nextDocID = d.ID + 1
			}
		}
	}); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err := replayJSONL(pairPath, func(b []byte) {
		var p QAPair
		if json.Unmarshal(b, &p) == nil && p.Question != "" {
			s.pairs = append(s.pairs, p)
			if p.ID >= s.nextPairID {
				s.nextPairID = p.ID + 1
			}
		}
	}); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	df, err := os.OpenFile(docPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	pf, err := os.OpenFile(pairPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		_ = df.Close()
		return nil, err
	}
	s.docFile = df
	s.pairFile = pf
	return s, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err1, err2 error
	if s.docFile != nil {
		err1 = s.docFile.Close()
		s.docFile = nil
	}
	if s.pairFile != nil {
		err2 = s.pairFile.Close()
		s.pairFile = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

func (s *fileStore) StoreDocuments(ctx context.Context, docs []Document) ([]int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docFile == nil {
		return nil, errors.New("document store closed")
	}

	enc := json.NewEncoder(s.docFile)
	ids := make([]int64, 0, len(docs))
	for _, d := range docs {
		d.ID = s.nextDocID
		s.nextDocID++
		if err := enc.Encode(d); err != nil {
			return ids, err
		}
		s.docs = append(s.docs, d)
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (s *fileStore) Documents(ctx context.Context, limit int) ([]Document, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.docs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Document, n)
	copy(out, s.docs[:n])
	return out, nil
}

func (s *fileStore) StoreTrainingPairs(ctx context.Context, pairs []QAPair) ([]int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pairFile == nil {
		return nil, errors.New("pair store closed")
	}

	enc := json.NewEncoder(s.pairFile)
	ids := make([]int64, 0, len(pairs))
	for _, p := range pairs {
		p.ID = s.nextPairID
		s.nextPairID++
		if err := enc.Encode(p); err != nil {
			return ids, err
		}
		s.pairs = append(s.pairs, p)
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (s *fileStore) TrainingPairs(ctx context.Context) ([]QAPair, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]QAPair, len(s.pairs))
	copy(out, s.pairs)
	return out, nil
}

func replayJSONL(path string, fn func([]byte)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fn([]byte(line))
	}
	return sc.Err()
}
