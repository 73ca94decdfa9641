// Package train turns stored documents into question/answer training pairs,
// formats them for SFT, and produces the trained checkpoint artifact.
package train

import (
	"context"
	"strings"

	"qapipe/internal/storage"
	logx "qapipe/pkg/logx"
)

// QAGenerator synthesizes question/answer pairs from document sentences.
// Question synthesis is heuristic (lead-word prompt over the first sentences
// of each document); the answer is the supporting sentence.
type QAGenerator struct {
	// PerDocument caps how many pairs each document contributes.
	PerDocument int

	log logx.Logger
}

func NewQAGenerator(log logx.Logger) *QAGenerator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &QAGenerator{PerDocument: 3, log: log}
}

// Generate produces pairs for every document with content. Documents that
// yield no usable sentence are skipped, not errors.
func (g *QAGenerator) Generate(ctx context.Context, docs []storage.Document) ([]storage.QAPair, error) {
	var pairs []storage.QAPair
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return pairs, err
		}
		if doc.Content == "" {
			continue
		}
		for _, p := range g.pairsFromContext(doc.Content) {
			p.SourceDocID = doc.ID
			pairs = append(pairs, p)
		}
	}
	g.log.Info("training pairs generated",
		logx.Int("documents", len(docs)), logx.Int("pairs", len(pairs)))
	return pairs, nil
}

func (g *QAGenerator) pairsFromContext(content string) []storage.QAPair {
	sentences := splitSentences(content)
	limit := g.PerDocument
	if limit <= 0 {
		limit = 3
	}

	var pairs []storage.QAPair
	for _, sentence := range sentences {
		if len(pairs) >= limit {
			break
		}
		words := strings.Fields(sentence)
		if len(words) < 3 {
			continue
		}
		pairs = append(pairs, storage.QAPair{
			Question: "What is " + strings.ToLower(words[0]) + "?",
			Answer:   sentence,
			Context:  content,
		})
	}
	return pairs
}

func splitSentences(text string) []string {
	parts := strings.Split(text, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
