package content

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/mcoot/partygames/internal/dependencies/clock"
	"github.com/mcoot/partygames/internal/model"
)

// DefaultRequestInterval is the minimum spacing between outbound requests
const DefaultRequestInterval = 2 * time.Second

const userAgent = "Mozilla/5.0 (compatible; partygames-content/1.0)"

// Source describes one scraped listing page
type Source struct {
	GameType model.GameType
	URL      string
	Category string
	// ItemSelector matches one listing entry, TitleSelector its title within it
	ItemSelector  string
	TitleSelector string
	// MetaSelectors maps a metadata key to a selector within the entry
	MetaSelectors map[string]string
}

// HTMLFetcher scrapes titles from listing pages. Requests are rate limited
// across all sources.
type HTMLFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	sources []Source
	clock   clock.Clock
	logger  *slog.Logger
}

// NewHTMLFetcher creates a scraper over the given sources
func NewHTMLFetcher(client *http.Client, sources []Source, interval time.Duration, clk clock.Clock, logger *slog.Logger) *HTMLFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if interval <= 0 {
		interval = DefaultRequestInterval
	}
	return &HTMLFetcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		sources: sources,
		clock:   clk,
		logger:  logger.With(slog.String("component", "html-fetcher")),
	}
}

func (f *HTMLFetcher) Name() string { return "html" }

// Fetch scrapes every source registered for the game type until count
// items are collected. A failing source is logged and skipped.
func (f *HTMLFetcher) Fetch(ctx context.Context, gameType model.GameType, count int) ([]*model.Item, error) {
	var items []*model.Item
	var lastErr error
	for _, src := range f.sources {
		if src.GameType != gameType {
			continue
		}
		if count > 0 && len(items) >= count {
			break
		}
		scraped, err := f.scrape(ctx, src)
		if err != nil {
			f.logger.Warn("scrape failed",
				slog.String("url", src.URL),
				slog.String("error", err.Error()))
			lastErr = err
			continue
		}
		items = append(items, scraped...)
	}
	if count > 0 && len(items) > count {
		items = items[:count]
	}
	if len(items) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return items, nil
}

func (f *HTMLFetcher) scrape(ctx context.Context, src Source) ([]*model.Item, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, src.URL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", src.URL, err)
	}

	now := f.clock.Now()
	var items []*model.Item
	seen := make(map[string]bool)
	doc.Find(src.ItemSelector).Each(func(_ int, sel *goquery.Selection) {
		title := sel
		if src.TitleSelector != "" {
			title = sel.Find(src.TitleSelector).First()
		}
		prompt := strings.TrimSpace(title.Text())
		if prompt == "" || seen[prompt] {
			return
		}
		seen[prompt] = true

		var meta map[string]string
		for key, metaSel := range src.MetaSelectors {
			if v := strings.TrimSpace(sel.Find(metaSel).First().Text()); v != "" {
				if meta == nil {
					meta = make(map[string]string)
				}
				meta[key] = v
			}
		}

		items = append(items, &model.Item{
			ID:        itemID(src.GameType, prompt),
			GameType:  src.GameType,
			Category:  src.Category,
			Prompt:    prompt,
			Metadata:  meta,
			Source:    src.URL,
			CreatedAt: now,
		})
	})
	return items, nil
}

var _ Fetcher = (*HTMLFetcher)(nil)
