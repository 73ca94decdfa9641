package collect

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"qapipe/internal/storage"
	logx "qapipe/pkg/logx"
)

// PDFExtractor turns local PDF files into raw documents. Files that fail to
// parse are logged and skipped, mirroring the scraper's per-URL tolerance.
type PDFExtractor struct {
	log logx.Logger
}

func NewPDFExtractor(log logx.Logger) *PDFExtractor {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &PDFExtractor{log: log}
}

// ExtractFile reads one PDF and returns its plain text as a document.
func (p *PDFExtractor) ExtractFile(path string) (storage.Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return storage.Document{}, err
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return storage.Document{}, err
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return storage.Document{}, err
	}

	name := filepath.Base(path)
	return storage.Document{
		URL:       path,
		Title:     strings.TrimSuffix(name, filepath.Ext(name)),
		Content:   string(text),
		Source:    "pdf_extraction",
		Timestamp: time.Now(),
		Metadata:  map[string]string{"pages": strconv.Itoa(r.NumPage())},
	}, nil
}

// ExtractDir extracts every .pdf under dir (non-recursive). A missing or
// empty directory is not an error: there is simply nothing to collect.
func (p *PDFExtractor) ExtractDir(ctx context.Context, dir string) []storage.Document {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			p.log.Warn("pdf directory unreadable", logx.String("dir", dir), logx.Err(err))
		}
		return nil
	}

	docs := make([]storage.Document, 0, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			return docs
		}
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		doc, err := p.ExtractFile(path)
		if err != nil {
			p.log.Error("pdf extraction failed", logx.String("path", path), logx.Err(err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}
