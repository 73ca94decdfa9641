// Package collect acquires raw documents (web scraping and local PDF
// extraction) and filters them into clean, deduplicated survivors for the
// pipeline.
package collect

import (
	"context"
	"strings"

	"qapipe/internal/config"
	"qapipe/internal/storage"
	logx "qapipe/pkg/logx"
)

// Collector is the document-acquisition facade the orchestrator drives. Each
// configured source kind contributes raw documents:
//
//   - "web": scrape the seed URLs plus a domain search page
//   - "pdf": extract text from local PDFs under the configured directory
//
// Everything then goes through the cleaner. An empty sources list means web
// only.
type Collector struct {
	scraper   *Scraper
	extractor *PDFExtractor
	cleaner   *Cleaner

	seedURLs   []string
	sources    []string
	searchBase string
	pdfDir     string

	log logx.Logger
}

func NewCollector(cfg config.DataCollectionConfig, log logx.Logger) *Collector {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Collector{
		scraper:    NewScraper(cfg.RequestsPerSec, log.With(logx.String("comp", "scraper"))),
		extractor:  NewPDFExtractor(log.With(logx.String("comp", "pdf"))),
		cleaner:    NewCleaner(log.With(logx.String("comp", "cleaner"))),
		seedURLs:   cfg.SeedURLs,
		sources:    cfg.Sources,
		searchBase: cfg.SearchBase,
		pdfDir:     cfg.PDFDir,
		log:        log,
	}
}

// Collect gathers documents from the enabled sources for the domain and
// returns at most limit cleaned documents (limit <= 0 means no cap). It does
// not persist anything; storage is the caller's concern.
func (c *Collector) Collect(ctx context.Context, domain string, limit int) ([]storage.Document, error) {
	web, pdf := c.enabledSources()

	var raw []storage.Document
	if web {
		urls := make([]string, 0, len(c.seedURLs)+1)
		urls = append(urls, c.seedURLs...)
		if domain != "" {
			urls = append(urls, SearchURL(c.searchBase, domain))
		}
		c.log.Info("collecting web data",
			logx.String("domain", domain), logx.Int("urls", len(urls)))
		raw = append(raw, c.scraper.ScrapeURLs(ctx, urls)...)
	}
	if pdf {
		docs := c.extractor.ExtractDir(ctx, c.pdfDir)
		c.log.Info("collecting pdf data",
			logx.String("dir", c.pdfDir), logx.Int("files", len(docs)))
		raw = append(raw, docs...)
	}

	cleaned := c.cleaner.Process(raw)

	if limit > 0 && len(cleaned) > limit {
		cleaned = cleaned[:limit]
	}
	return cleaned, ctx.Err()
}

// enabledSources resolves the configured source kinds. Unknown kinds are
// logged and ignored rather than failing the run.
func (c *Collector) enabledSources() (web, pdf bool) {
	if len(c.sources) == 0 {
		return true, false
	}
	for _, src := range c.sources {
		switch strings.ToLower(strings.TrimSpace(src)) {
		case "web":
			web = true
		case "pdf":
			pdf = true
		default:
			c.log.Warn("unknown data source, skipping", logx.String("source", src))
		}
	}
	return web, pdf
}
