// Package scraper harvests the public assessment product catalog into a catalog file.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/skillrec/internal/config"
	"github.com/hyperjump/skillrec/internal/models"
)

// Assessment is one scraped catalog row.
type Assessment struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	Duration      string `json:"duration"`
	TestType      string `json:"test_type"`
	RemoteTesting string `json:"remote_testing"`
	AdaptiveIRT   string `json:"adaptive_irt"`
}

// Entry converts a scraped assessment into a catalog entry.
func (a Assessment) Entry() *models.CatalogEntry {
	e := &models.CatalogEntry{
		Name:            a.Name,
		URL:             a.URL,
		Duration:        a.Duration,
		TestType:        a.TestType,
		RemoteSupport:   a.RemoteTesting,
		AdaptiveSupport: a.AdaptiveIRT,
	}
	if e.Duration == "" {
		e.Duration = models.NotAvailable
	}
	e.Finalize()
	return e
}

// Result summarizes a full scrape.
type Result struct {
	Listed   int
	Saved    int
	Complete bool
}

// Scraper fetches listing and detail pages.
type Scraper struct {
	cfg        config.ScraperConfig
	logger     *zap.Logger
	HTTPClient *http.Client
}

// New returns a scraper for cfg.
func New(cfg config.ScraperConfig, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Run scrapes listings, saves the links file, fetches details and saves the catalog.
func (s *Scraper) Run(ctx context.Context) (*Result, error) {
	items, err := s.ScrapeListings(ctx)
	if err != nil {
		return nil, err
	}
	if err := SaveLinks(s.cfg.LinksPath, items); err != nil {
		return nil, err
	}
	s.logger.Info("saved links", zap.Int("count", len(items)), zap.String("path", s.cfg.LinksPath))
	return s.complete(ctx, items)
}

// Resume skips the listing walk and fetches details for a links file saved by an earlier run.
func (s *Scraper) Resume(ctx context.Context) (*Result, error) {
	items, err := LoadLinks(s.cfg.LinksPath)
	if err != nil {
		return nil, err
	}
	s.logger.Info("loaded links", zap.Int("count", len(items)), zap.String("path", s.cfg.LinksPath))
	return s.complete(ctx, items)
}

func (s *Scraper) complete(ctx context.Context, items []Assessment) (*Result, error) {
	detailed, err := s.FetchDetails(ctx, items)
	if err != nil {
		return nil, err
	}
	if err := SaveCatalog(s.cfg.CatalogPath, detailed); err != nil {
		return nil, err
	}
	complete := Validate(len(detailed), s.cfg.MinEntries)
	s.logger.Info("saved catalog",
		zap.Int("count", len(detailed)),
		zap.String("path", s.cfg.CatalogPath),
		zap.Bool("complete", complete))
	return &Result{Listed: len(items), Saved: len(detailed), Complete: complete}, nil
}

// ScrapeListings walks MaxPages listing pages and returns every parsed row.
// Pages that fail or have no table are skipped; scraping never stops early.
func (s *Scraper) ScrapeListings(ctx context.Context) ([]Assessment, error) {
	var all []Assessment
	for page := 0; page < s.cfg.MaxPages; page++ {
		url := fmt.Sprintf("%s?start=%d&type=%d", s.cfg.BaseURL, page*s.cfg.PageSize, s.cfg.Type)
		s.logger.Debug("scraping listing", zap.String("url", url))

		table, err := s.listingTable(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("skipping listing page", zap.String("url", url), zap.Error(err))
			continue
		}
		items := ParseTable(table, s.cfg.SiteRoot)
		if len(items) == 0 {
			s.logger.Info("no rows found, continuing", zap.String("url", url))
		}
		all = append(all, items...)

		if err := sleep(ctx, s.cfg.PageDelay); err != nil {
			return nil, err
		}
	}
	return all, nil
}

var errNoTable = errors.New("listing has no table")

// listingTable fetches url and returns its first table, retrying once when the page has none.
func (s *Scraper) listingTable(ctx context.Context, url string) (*goquery.Selection, error) {
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			s.logger.Info("empty table, retrying", zap.String("url", url))
			if err := sleep(ctx, s.cfg.ListingDelay); err != nil {
				return nil, err
			}
		}
		html, err := s.fetch(ctx, url, s.cfg.ListingAttempts, s.cfg.ListingDelay)
		if err != nil {
			return nil, err
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("failed to parse listing: %w", err)
		}
		if table := doc.Find("table").First(); table.Length() > 0 {
			return table, nil
		}
	}
	return nil, errNoTable
}

// ParseTable extracts assessments from a listing table. The header row, rows with
// fewer than four cells and rows without a link are skipped.
func ParseTable(table *goquery.Selection, siteRoot string) []Assessment {
	var items []Assessment
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		link := cells.Eq(0).Find("a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		keys := make([]string, 0)
		cells.Eq(3).Find("span.product-catalogue__key").Each(func(_ int, k *goquery.Selection) {
			keys = append(keys, strings.TrimSpace(k.Text()))
		})
		items = append(items, Assessment{
			Name:          strings.TrimSpace(link.Text()),
			URL:           siteRoot + href,
			Duration:      "N/A",
			TestType:      strings.Join(keys, ", "),
			RemoteTesting: yesNo(cells.Eq(1)),
			AdaptiveIRT:   yesNo(cells.Eq(2)),
		})
	})
	return items
}

func yesNo(cell *goquery.Selection) string {
	if cell.Find("span.catalogue__circle.-yes").Length() > 0 {
		return "Yes"
	}
	return "No"
}

// FetchDetails fills in durations from each assessment's detail page using a bounded
// worker pool. Entries whose page cannot be fetched are kept unchanged. The result is
// in completion order.
func (s *Scraper) FetchDetails(ctx context.Context, items []Assessment) ([]Assessment, error) {
	var (
		mu  sync.Mutex
		out = make([]Assessment, 0, len(items))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.Workers, 1))
	for _, item := range items {
		g.Go(func() error {
			detailed := s.fetchDetail(gctx, item)
			mu.Lock()
			out = append(out, detailed)
			n := len(out)
			mu.Unlock()
			if n%20 == 0 {
				s.logger.Info("detail progress", zap.Int("done", n), zap.Int("total", len(items)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Scraper) fetchDetail(ctx context.Context, a Assessment) Assessment {
	html, err := s.fetch(ctx, a.URL, s.cfg.DetailAttempts, s.cfg.DetailDelay)
	if err != nil {
		s.logger.Warn("skipping detail page", zap.String("url", a.URL), zap.Error(err))
		return a
	}
	if d, ok := ParseDuration(html); ok {
		a.Duration = d
	}
	return a
}

// fetch GETs url, retrying failures with a constant delay up to attempts tries.
func (s *Scraper) fetch(ctx context.Context, url string, attempts int, delay time.Duration) (string, error) {
	var body string
	try := 0
	b := retry.WithMaxRetries(uint64(max(attempts-1, 0)), retry.NewConstant(max(delay, time.Millisecond)))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		try++
		text, err := s.get(ctx, url)
		if err != nil {
			s.logger.Debug("fetch failed", zap.String("url", url), zap.Int("attempt", try), zap.Int("attempts", attempts), zap.Error(err))
			return retry.RetryableError(err)
		}
		body = text
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s after %d attempts: %w", url, try, err)
	}
	return body, nil
}

func (s *Scraper) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
