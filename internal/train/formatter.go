package train

import (
	"strings"

	"qapipe/internal/storage"
)

// FormatForSFT renders training pairs into instruction-style prompts, one
// string per pair. Pairs missing a question or answer are dropped.
func FormatForSFT(pairs []storage.QAPair) []string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		q := strings.TrimSpace(p.Question)
		a := strings.TrimSpace(p.Answer)
		if q == "" || a == "" {
			continue
		}

		var b strings.Builder
		b.WriteString("### Question:\n")
		b.WriteString(q)
		if ctxText := strings.TrimSpace(p.Context); ctxText != "" {
			b.WriteString("\n\n### Context:\n")
			b.WriteString(ctxText)
		}
		b.WriteString("\n\n### Answer:\n")
		b.WriteString(a)
		out = append(out, b.String())
	}
	return out
}
