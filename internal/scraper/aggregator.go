// internal/scraper/aggregator.go
package scraper

import (
	"context"
	"fmt"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/promoscout/promoscout/internal/monitoring"
	"github.com/promoscout/promoscout/internal/utils"
)

// Aggregator runs the page scanner across a configured list of source URLs
// and returns the unique candidate set. Fetches may run in parallel, but
// results are restored to configured URL order before deduplication so
// "first occurrence wins" stays deterministic.
type Aggregator struct {
	fetcher     DocumentFetcher
	scanner     *PageScanner
	logger      utils.Logger
	metrics     *monitoring.Metrics
	concurrency int
}

// AggregatorOptions tunes the aggregator. Zero values fall back to defaults.
type AggregatorOptions struct {
	Concurrency int
	Metrics     *monitoring.Metrics
}

// NewAggregator creates an aggregator over the given fetcher and scanner.
func NewAggregator(fetcher DocumentFetcher, scanner *PageScanner, logger utils.Logger, opts AggregatorOptions) *Aggregator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	if logger == nil {
		logger = utils.NewLogger()
	}

	return &Aggregator{
		fetcher:     fetcher,
		scanner:     scanner,
		logger:      logger,
		metrics:     opts.Metrics,
		concurrency: opts.Concurrency,
	}
}

// Collect scans every source URL and returns candidates deduplicated by
// normalized campaign name, preserving URL order then discovery order. A
// name seen on an earlier URL suppresses any later duplicate. Per-URL
// failures are logged and contribute zero candidates; they never abort the
// remaining URLs.
func (a *Aggregator) Collect(ctx context.Context, competitor string, urls []string) []CandidateRecord {
	perURL := make([][]CandidateRecord, len(urls))

	var wg sync.WaitGroup
	sem := make(chan struct{}, a.concurrency)

	for i, pageURL := range urls {
		wg.Add(1)
		go func(idx int, pageURL string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			perURL[idx] = a.scanOne(ctx, competitor, pageURL)
		}(i, pageURL)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	var unique []CandidateRecord

	for _, candidates := range perURL {
		for _, rec := range candidates {
			key := NormalizeText(rec.Name)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			unique = append(unique, rec)
		}
	}

	a.logger.WithFields(map[string]interface{}{
		"competitor": competitor,
		"urls":       len(urls),
		"campaigns":  len(unique),
	}).Info("scan pass complete")
	a.metrics.CandidatesExtracted(len(unique))

	return unique
}

// scanOne fetches and scans a single source URL, absorbing all failures
// into an empty contribution.
func (a *Aggregator) scanOne(ctx context.Context, competitor, pageURL string) []CandidateRecord {
	role := RoleForURL(pageURL)

	doc, err := a.fetch(ctx, pageURL)
	if err != nil {
		a.logger.WithField("url", pageURL).Warnf("fetch failed: %v", err)
		a.metrics.FetchError()
		return nil
	}

	candidates := a.scanner.Scan(doc, pageURL, competitor, role)
	a.metrics.PageScanned(role.String())
	a.logger.WithFields(map[string]interface{}{
		"url":  pageURL,
		"role": role.String(),
	}).Debugf("extracted %d candidates", len(candidates))

	return candidates
}

// fetch guards the fetcher call so a panicking implementation is treated
// the same as an unreachable page.
func (a *Aggregator) fetch(ctx context.Context, pageURL string) (doc *goquery.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, &scanPanicError{value: r}
		}
	}()
	return a.fetcher.Fetch(ctx, pageURL)
}

type scanPanicError struct {
	value interface{}
}

func (e *scanPanicError) Error() string {
	return fmt.Sprintf("scan panicked: %v", e.value)
}
