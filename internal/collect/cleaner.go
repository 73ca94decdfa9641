package collect

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"

	"qapipe/internal/storage"
	logx "qapipe/pkg/logx"
)

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	charsetRE    = regexp.MustCompile(`[^\w\s.,!?;:\-()]`)
)

// commonEnglishWords is a crude language gate: a document must contain at
// least two of these to survive the quality filter.
var commonEnglishWords = []string{
	"the", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by",
}

// Cleaner normalizes text, drops duplicates, and filters low-quality
// documents. The dedupe set lives for the Cleaner's lifetime.
type Cleaner struct {
	mu   sync.Mutex
	seen map[string]struct{}

	MinLength int
	MaxLength int

	log logx.Logger
}

func NewCleaner(log logx.Logger) *Cleaner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Cleaner{
		seen:      map[string]struct{}{},
		MinLength: 50,
		MaxLength: 10000,
		log:       log,
	}
}

// CleanText collapses whitespace and strips characters outside the allowed set.
func (c *Cleaner) CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = whitespaceRE.ReplaceAllString(text, " ")
	text = charsetRE.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// IsDuplicate records the text's hash and reports whether it was seen before.
func (c *Cleaner) IsDuplicate(text string) bool {
	sum := md5.Sum([]byte(text))
	key := hex.EncodeToString(sum[:])

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[key]; ok {
		return true
	}
	c.seen[key] = struct{}{}
	return false
}

// QualityFilter reports whether the text passes length and language checks.
func (c *Cleaner) QualityFilter(text string) bool {
	if text == "" {
		return false
	}
	if len(text) < c.MinLength || len(text) > c.MaxLength {
		return false
	}

	lower := strings.ToLower(text)
	hits := 0
	for _, w := range commonEnglishWords {
		if strings.Contains(lower, w) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

// Process cleans each document's content and keeps the survivors.
func (c *Cleaner) Process(docs []storage.Document) []storage.Document {
	kept := make([]storage.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.Content == "" {
			continue
		}

		cleaned := c.CleanText(doc.Content)

		if c.IsDuplicate(cleaned) {
			c.log.Debug("skipping duplicate document", logx.String("url", doc.URL))
			continue
		}
		if !c.QualityFilter(cleaned) {
			c.log.Debug("skipping low-quality document", logx.String("url", doc.URL))
			continue
		}

		doc.Content = cleaned
		kept = append(kept, doc)
	}
	c.log.Info("documents processed", logx.Int("in", len(docs)), logx.Int("kept", len(kept)))
	return kept
}
