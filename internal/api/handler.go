package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"qapipe/internal/registry"
	"qapipe/internal/storage"
	"qapipe/pkg/logx"
)

var errNoRegistry = errors.New("api: model registry not configured")

type handler struct {
	reg   *registry.Registry
	store storage.Store
	log   logx.Logger

	mu     sync.RWMutex
	loaded *loadedModel
}

type loadedModel struct {
	name    string
	version string
	path    string
	pairs   []storage.QAPair
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
	Context  string `json:"context,omitempty"`
}

type askResponse struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Model      string  `json:"model"`
	Confidence float64 `json:"confidence"`
}

func (h *handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "qapipe",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) health(c *gin.Context) {
	h.mu.RLock()
	loaded := h.loaded != nil
	h.mu.RUnlock()

	status := http.StatusOK
	body := gin.H{"status": "ok", "model_loaded": loaded}
	if !loaded {
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

// loadLatest loads the most recently registered model and caches the
// training pairs used for retrieval.
func (h *handler) loadLatest() error {
	if h.reg == nil {
		return errNoRegistry
	}
	var (
		name  string
		when  time.Time
		found bool
	)
	for _, e := range h.reg.List() {
		if !found || e.RegisteredAt.After(when) {
			name, when, found = e.ModelName, e.RegisteredAt, true
		}
	}
	if !found {
		return errors.New("api: registry is empty")
	}
	return h.load(name, "latest")
}

func (h *handler) load(name, version string) error {
	if h.reg == nil {
		return errNoRegistry
	}
	info, err := h.reg.Get(name, version)
	if err != nil {
		return err
	}

	var pairs []storage.QAPair
	if h.store != nil {
		if p, err := h.store.TrainingPairs(context.Background()); err == nil {
			pairs = p
		} else {
			h.log.Warn("loading training pairs for retrieval failed", logx.Err(err))
		}
	}

	h.mu.Lock()
	h.loaded = &loadedModel{
		name:    name,
		version: version,
		path:    info.ModelPath,
		pairs:   pairs,
	}
	h.mu.Unlock()

	h.log.Info("model loaded",
		logx.String("model", name),
		logx.String("version", version),
		logx.Int("retrieval_pairs", len(pairs)))
	return nil
}

func (h *handler) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.RLock()
	model := h.loaded
	h.mu.RUnlock()

	if model == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no model loaded"})
		return
	}

	answer, score := model.answer(req.Question, req.Context)
	c.JSON(http.StatusOK, askResponse{
		Question:   req.Question,
		Answer:     answer,
		Model:      model.path,
		Confidence: score,
	})
}

func (h *handler) models(c *gin.Context) {
	if h.reg == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "registry unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": h.reg.List()})
}

func (h *handler) loadModel(c *gin.Context) {
	name := c.Param("name")
	version := c.DefaultQuery("version", "latest")

	if err := h.load(name, version); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": name, "version": version, "status": "loaded"})
}

// answer retrieves the stored pair whose question best overlaps the query.
// It is a retrieval baseline standing in for real model inference.
func (m *loadedModel) answer(question, ctxText string) (string, float64) {
	qTokens := tokenSet(question + " " + ctxText)
	if len(qTokens) == 0 || len(m.pairs) == 0 {
		return "I don't have enough training data to answer that yet.", 0
	}

	best := -1
	bestScore := 0.0
	for i, p := range m.pairs {
		cand := tokenSet(p.Question + " " + p.Context)
		if len(cand) == 0 {
			continue
		}
		common := 0
		for t := range qTokens {
			if cand[t] {
				common++
			}
		}
		score := float64(common) / float64(len(qTokens))
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 || bestScore == 0 {
		return "I don't have a confident answer for that question.", 0
	}
	return m.pairs[best].Answer, bestScore
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(s)) {
		t = strings.Trim(t, ".,!?;:()\"'")
		if t != "" {
			set[t] = true
		}
	}
	return set
}
