package autotrader

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"car-scout/config"
	"car-scout/models"
	"car-scout/utils"
)

const platform = "autotrader"

// Scraper collects raw used-car listings from search result pages and
// their detail pages.
type Scraper struct {
	cfg        *config.Config
	logger     *utils.Logger
	pool       *utils.WorkerPool
	visitedURL *utils.StringSet
	retry      *utils.RetryConfig

	mu       sync.Mutex
	listings []*models.RawListing
}

// New creates a ready-to-use Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:        cfg,
		logger:     logger,
		pool:       utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		visitedURL: utils.NewStringSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		listings: make([]*models.RawListing, 0),
	}
}

type cardData struct {
	Title    string `json:"title"`
	Price    string `json:"price"`
	Mileage  string `json:"mileage"`
	Year     string `json:"year"`
	Location string `json:"location"`
	URL      string `json:"url"`
}

type detailData struct {
	Title        string   `json:"title"`
	Price        string   `json:"price"`
	Mileage      string   `json:"mileage"`
	Year         string   `json:"year"`
	Make         string   `json:"make"`
	Model        string   `json:"model"`
	Engine       string   `json:"engine"`
	Transmission string   `json:"transmission"`
	Drivetrain   string   `json:"drivetrain"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Features     []string `json:"features"`
}

// Scrape drives pagination and detail-page scraping until the configured
// page count is reached or a page comes back empty.
func (s *Scraper) Scrape(ctx context.Context) ([]*models.RawListing, error) {
	s.logger.Info("[autotrader] Starting scrape, target: %d pages, %d listings/page",
		s.cfg.PagesToScrape, s.cfg.ListingsPerPage)

	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	s.logger.Info("[autotrader] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	for page := 1; page <= s.cfg.PagesToScrape; page++ {
		if err := ctx.Err(); err != nil {
			return s.listings, err
		}

		pageURL, err := searchPageURL(s.cfg.SearchURL, page)
		if err != nil {
			return nil, fmt.Errorf("invalid search url: %w", err)
		}
		s.logger.Info("[autotrader] Scraping page %d, URL: %s", page, pageURL)

		pageListings, err := s.scrapePage(browserCtx, pageURL, page)
		if err != nil {
			s.logger.Error("[autotrader] Page %d failed: %v", page, err)
			break
		}
		if len(pageListings) == 0 {
			s.logger.Warn("[autotrader] Page %d returned 0 listings, stopping", page)
			break
		}

		s.enrichListings(browserCtx, pageListings)

		s.mu.Lock()
		s.listings = append(s.listings, pageListings...)
		s.mu.Unlock()

		s.logger.Info("[autotrader] Page %d done, collected %d listings so far", page, len(s.listings))
	}

	s.logger.Info("[autotrader] Scrape complete, total raw listings: %d", len(s.listings))
	return s.listings, nil
}

// searchPageURL sets the page query parameter on the search URL.
func searchPageURL(base string, page int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%q is not an absolute url", base)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// scrapePage loads a search results page and extracts listing cards.
func (s *Scraper) scrapePage(browserCtx context.Context, pageURL string, pageNum int) ([]*models.RawListing, error) {
	var rawListings []*models.RawListing

	err := s.retry.Do(browserCtx, fmt.Sprintf("scrape-page-%d", pageNum), func() error {
		ctx, cancel := chromedp.NewContext(browserCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 90*time.Second)
		defer cancelTimeout()

		var cards []cardData
		err := chromedp.Run(ctx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(5*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
			chromedp.Sleep(2*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(2*time.Second),
			chromedp.Evaluate(fmt.Sprintf(cardScript, s.cfg.ListingsPerPage), &cards),
		)
		if err != nil {
			return fmt.Errorf("chromedp page scrape: %w", err)
		}

		s.logger.Debug("[autotrader] Page %d, found %d cards", pageNum, len(cards))

		rawListings = rawListings[:0]
		for _, c := range cards {
			if c.URL == "" {
				continue
			}
			if !s.visitedURL.Add(c.URL) {
				s.logger.Debug("[autotrader] Skipping duplicate: %s", c.URL)
				continue
			}
			rawListings = append(rawListings, &models.RawListing{
				Title:      c.Title,
				RawPrice:   c.Price,
				RawMileage: c.Mileage,
				RawYear:    c.Year,
				Location:   c.Location,
				URL:        c.URL,
				ScrapedAt:  time.Now(),
				Platform:   platform,
			})
		}
		return nil
	})

	return rawListings, err
}

// enrichListings visits every detail page for the description, equipment
// list and specification fields the result cards do not show.
func (s *Scraper) enrichListings(ctx context.Context, listings []*models.RawListing) {
	for _, l := range listings {
		if l.URL == "" {
			continue
		}
		submitted := s.pool.Submit(ctx, func() {
			details, err := s.scrapeDetailPage(ctx, l.URL)
			if err != nil {
				s.logger.Warn("[autotrader] Detail page failed for %s: %v", l.URL, err)
				return
			}
			mergeDetail(l, details)
			s.logger.Debug("[autotrader] Enriched: %s", l.Title)
		})
		if !submitted {
			break
		}
	}
	s.pool.Wait()
}

// mergeDetail fills card fields that were blank and always takes the
// detail-only fields.
func mergeDetail(l *models.RawListing, d *detailData) {
	fill := func(dst *string, v string) {
		v = strings.TrimSpace(v)
		if v != "" && (*dst == "" || *dst == "N/A") {
			*dst = v
		}
	}
	fill(&l.Title, d.Title)
	fill(&l.RawPrice, d.Price)
	fill(&l.RawMileage, d.Mileage)
	fill(&l.RawYear, d.Year)
	fill(&l.Location, d.Location)
	fill(&l.Make, d.Make)
	fill(&l.Model, d.Model)
	fill(&l.Engine, d.Engine)
	fill(&l.Transmission, d.Transmission)
	fill(&l.Drivetrain, d.Drivetrain)

	l.Description = strings.TrimSpace(d.Description)
	for _, f := range d.Features {
		if f = strings.TrimSpace(f); f != "" {
			l.Features = append(l.Features, f)
		}
	}
}

// scrapeDetailPage visits a listing detail page and extracts full information.
func (s *Scraper) scrapeDetailPage(browserCtx context.Context, pageURL string) (*detailData, error) {
	var details detailData

	err := s.retry.Do(browserCtx, "detail-page", func() error {
		ctx, cancel := chromedp.NewContext(browserCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
		defer cancelTimeout()

		return chromedp.Run(ctx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(4*time.Second),
			chromedp.Evaluate(detailScript, &details),
		)
	})
	if err != nil {
		return nil, err
	}
	return &details, nil
}

// findChromeBinary locates a Chrome/Chromium binary. An explicit path wins.
func findChromeBinary(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
