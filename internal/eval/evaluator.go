package eval

import (
	"context"
	"errors"
	"math"
	"strings"

	"qapipe/internal/storage"
	logx "qapipe/pkg/logx"
)

// Predictor produces a model answer for a question given its context.
type Predictor func(question, context string) string

// Evaluator scores predictions against reference answers with token-level
// ROUGE-1/2/L f-measures and a corpus BLEU. The metric keys are fixed:
// rouge1, rouge2, rougeL, bleu.
type Evaluator struct {
	predict Predictor
	log     logx.Logger
}

// NewEvaluator builds an evaluator. A nil predictor falls back to the
// lead-sentence baseline (answer with the context's first sentence).
func NewEvaluator(predict Predictor, log logx.Logger) *Evaluator {
	if predict == nil {
		predict = LeadSentence
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Evaluator{predict: predict, log: log}
}

// LeadSentence is the retrieval baseline predictor.
func LeadSentence(question, ctxText string) string {
	if i := strings.IndexByte(ctxText, '.'); i > 0 {
		return strings.TrimSpace(ctxText[:i])
	}
	return strings.TrimSpace(ctxText)
}

// Evaluate runs the predictor over the sample and aggregates metrics.
func (e *Evaluator) Evaluate(ctx context.Context, sample []storage.QAPair) (map[string]float64, error) {
	if len(sample) == 0 {
		return nil, errors.New("empty benchmark sample")
	}

	predictions := make([]string, 0, len(sample))
	references := make([]string, 0, len(sample))
	for _, p := range sample {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		predictions = append(predictions, e.predict(p.Question, p.Context))
		references = append(references, p.Answer)
	}

	metrics := map[string]float64{
		"rouge1": averageRouge(predictions, references, 1),
		"rouge2": averageRouge(predictions, references, 2),
		"rougeL": averageRougeL(predictions, references),
		"bleu":   corpusBLEU(predictions, references),
	}

	e.log.Info("benchmark scored",
		logx.Int("samples", len(sample)),
		logx.Float64("rouge1", metrics["rouge1"]),
		logx.Float64("bleu", metrics["bleu"]))
	return metrics, nil
}

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

func ngrams(tokens []string, n int) map[string]int {
	out := map[string]int{}
	for i := 0; i+n <= len(tokens); i++ {
		out[strings.Join(tokens[i:i+n], " ")]++
	}
	return out
}

func overlap(a, b map[string]int) int {
	total := 0
	for g, ca := range a {
		if cb, ok := b[g]; ok {
			total += min(ca, cb)
		}
	}
	return total
}

// rougeN is the n-gram overlap f-measure for one prediction/reference pair.
func rougeN(pred, ref string, n int) float64 {
	pg := ngrams(tokenize(pred), n)
	rg := ngrams(tokenize(ref), n)

	match := overlap(pg, rg)
	predTotal := count(pg)
	refTotal := count(rg)
	if match == 0 || predTotal == 0 || refTotal == 0 {
		return 0
	}

	precision := float64(match) / float64(predTotal)
	recall := float64(match) / float64(refTotal)
	return 2 * precision * recall / (precision + recall)
}

func averageRouge(preds, refs []string, n int) float64 {
	if len(preds) == 0 {
		return 0
	}
	sum := 0.0
	for i := range preds {
		sum += rougeN(preds[i], refs[i], n)
	}
	return sum / float64(len(preds))
}

// rougeL is the LCS-based f-measure for one pair.
func rougeL(pred, ref string) float64 {
	pt := tokenize(pred)
	rt := tokenize(ref)
	l := lcs(pt, rt)
	if l == 0 || len(pt) == 0 || len(rt) == 0 {
		return 0
	}

	precision := float64(l) / float64(len(pt))
	recall := float64(l) / float64(len(rt))
	return 2 * precision * recall / (precision + recall)
}

func averageRougeL(preds, refs []string) float64 {
	if len(preds) == 0 {
		return 0
	}
	sum := 0.0
	for i := range preds {
		sum += rougeL(preds[i], refs[i])
	}
	return sum / float64(len(preds))
}

func lcs(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// corpusBLEU is a corpus-level BLEU with modified n-gram precision up to
// 4-grams and a brevity penalty.
func corpusBLEU(preds, refs []string) float64 {
	const maxN = 4

	matches := make([]int, maxN+1)
	totals := make([]int, maxN+1)
	predLen, refLen := 0, 0

	for i := range preds {
		pt := tokenize(preds[i])
		rt := tokenize(refs[i])
		predLen += len(pt)
		refLen += len(rt)
		for n := 1; n <= maxN; n++ {
			pg := ngrams(pt, n)
			rg := ngrams(rt, n)
			matches[n] += overlap(pg, rg)
			totals[n] += count(pg)
		}
	}

	logSum := 0.0
	for n := 1; n <= maxN; n++ {
		if matches[n] == 0 || totals[n] == 0 {
			return 0
		}
		logSum += math.Log(float64(matches[n]) / float64(totals[n]))
	}
	score := math.Exp(logSum / maxN)

	if predLen < refLen && predLen > 0 {
		score *= math.Exp(1 - float64(refLen)/float64(predLen))
	}
	return score
}

func count(grams map[string]int) int {
	total := 0
	for _, c := range grams {
		total += c
	}
	return total
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
