package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"qapipe/internal/storage"
	logx "qapipe/pkg/logx"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Scraper fetches pages and extracts title, description, and visible text.
// Outbound requests share one rate limiter so a long URL list stays polite.
type Scraper struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	log       logx.Logger
}

// NewScraper builds a scraper throttled to rps requests per second
// (rps <= 0 defaults to 1).
func NewScraper(rps float64, log logx.Logger) *Scraper {
	if rps <= 0 {
		rps = 1
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scraper{
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		userAgent: defaultUserAgent,
		log:       log,
	}
}

// ScrapeURL fetches and extracts a single page.
func (s *Scraper) ScrapeURL(ctx context.Context, pageURL string) (storage.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return storage.Document{}, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return storage.Document{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return storage.Document{}, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return storage.Document{}, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	title, description, text := extractPage(root)
	return storage.Document{
		URL:       pageURL,
		Title:     title,
		Content:   text,
		Source:    "web_scraping",
		Timestamp: time.Now(),
		Metadata:  map[string]string{"description": description},
	}, nil
}

// ScrapeURLs fetches each URL in order, waiting on the rate limiter between
// requests. Failed fetches are logged and skipped.
func (s *Scraper) ScrapeURLs(ctx context.Context, urls []string) []storage.Document {
	docs := make([]storage.Document, 0, len(urls))
	for _, u := range urls {
		if err := s.limiter.Wait(ctx); err != nil {
			return docs
		}
		doc, err := s.ScrapeURL(ctx, u)
		if err != nil {
			s.log.Error("scrape failed", logx.String("url", u), logx.Err(err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

// SearchURL renders a search-results URL for the query.
func SearchURL(base, query string) string {
	if strings.TrimSpace(base) == "" {
		base = "https://example.com/search"
	}
	return base + "?q=" + url.QueryEscape(query)
}

// extractPage walks the DOM once, collecting <title>, meta description, and
// visible text (script/style subtrees are skipped).
func extractPage(root *html.Node) (title, description, text string) {
	var b strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "title":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				var name, content string
				for _, a := range n.Attr {
					switch a.Key {
					case "name":
						name = a.Val
					case "content":
						content = a.Val
					}
				}
				if strings.EqualFold(name, "description") {
					description = content
				}
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return title, description, b.String()
}
