// internal/tracker/pipeline.go
package tracker

import (
	"context"
	"strings"
	"sync"

	"github.com/promoscout/promoscout/internal/monitoring"
	"github.com/promoscout/promoscout/internal/scraper"
	"github.com/promoscout/promoscout/internal/store"
	"github.com/promoscout/promoscout/internal/utils"
)

// Collector produces one batch of candidates from the configured sources.
type Collector interface {
	Collect(ctx context.Context, competitor string, urls []string) []scraper.CandidateRecord
}

// Pipeline is the run-once entry point: scan all sources, reconcile the
// batch, report. Callers (CLI, scheduler, API trigger) decide when it runs;
// the pipeline itself only guarantees that runs never overlap.
type Pipeline struct {
	collector  Collector
	reconciler *Reconciler
	logger     utils.Logger
	metrics    *monitoring.Metrics

	competitor string
	sourceURLs []string

	mu sync.Mutex
}

// PipelineOptions configures a pipeline.
type PipelineOptions struct {
	Competitor string
	SourceURLs []string
	Metrics    *monitoring.Metrics
}

// NewPipeline wires a collector and reconciler into a runnable pipeline.
func NewPipeline(collector Collector, reconciler *Reconciler, logger utils.Logger, opts PipelineOptions) *Pipeline {
	if logger == nil {
		logger = utils.NewLogger()
	}

	return &Pipeline{
		collector:  collector,
		reconciler: reconciler,
		logger:     logger,
		metrics:    opts.Metrics,
		competitor: opts.Competitor,
		sourceURLs: opts.SourceURLs,
	}
}

// RunOnce executes one full scan-and-reconcile cycle. Concurrent callers
// serialize: a second trigger waits for the in-flight run to finish rather
// than racing it against the same store.
func (p *Pipeline) RunOnce(ctx context.Context) (*RunSummary, error) {
	return p.run(ctx, false)
}

// RunOnceWithSeed executes one cycle using the built-in demonstration
// dataset instead of live pages. Useful for smoke-testing a deployment
// before pointing it at real sources.
func (p *Pipeline) RunOnceWithSeed(ctx context.Context) (*RunSummary, error) {
	return p.run(ctx, true)
}

func (p *Pipeline) run(ctx context.Context, useSeed bool) (*RunSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var batch []scraper.CandidateRecord
	if useSeed {
		batch = scraper.SeedCampaigns(p.competitor, p.reconciler.now())
		p.logger.Infof("using seed dataset: %d campaigns", len(batch))
	} else {
		batch = p.collector.Collect(ctx, p.competitor, p.sourceURLs)
	}

	summary, err := p.reconciler.Reconcile(ctx, p.competitor, strings.Join(p.sourceURLs, ","), batch)

	status := store.RunStatusSuccess
	if err != nil {
		status = store.RunStatusFailed
	}
	if summary != nil {
		p.metrics.RunCompleted(status, summary.New, summary.Updated, summary.Deactivated, summary.Duration.Seconds())
	}

	return summary, err
}
