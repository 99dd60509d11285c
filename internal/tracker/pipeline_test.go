// internal/tracker/pipeline_test.go
package tracker

import (
	"context"
	"sync"
	"testing"

	"github.com/promoscout/promoscout/internal/scraper"
)

type stubCollector struct {
	mu    sync.Mutex
	calls int
	batch []scraper.CandidateRecord
}

func (c *stubCollector) Collect(ctx context.Context, competitor string, urls []string) []scraper.CandidateRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.batch
}

func TestPipelineRunOnce(t *testing.T) {
	st := newMemStore()
	collector := &stubCollector{batch: []scraper.CandidateRecord{
		candidate("管道测试活动名称", "通过采集器进入的活动。"),
	}}

	p := NewPipeline(collector, newTestReconciler(st), nil, PipelineOptions{
		Competitor: "Marriott",
		SourceURLs: []string{"https://example.com/a", "https://example.com/b"},
	})

	summary, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if collector.calls != 1 {
		t.Errorf("collector called %d times", collector.calls)
	}
	if summary.New != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.SourceURL != "https://example.com/a,https://example.com/b" {
		t.Errorf("source url = %q", summary.SourceURL)
	}
}

func TestPipelineRunOnceWithSeed(t *testing.T) {
	st := newMemStore()
	collector := &stubCollector{}

	p := NewPipeline(collector, newTestReconciler(st), nil, PipelineOptions{
		Competitor: "Marriott",
	})

	summary, err := p.RunOnceWithSeed(context.Background())
	if err != nil {
		t.Fatalf("seed run failed: %v", err)
	}
	if collector.calls != 0 {
		t.Error("seed run must not hit the collector")
	}
	if summary.New == 0 {
		t.Errorf("seed dataset created no campaigns: %+v", summary)
	}
	if len(st.campaigns) != summary.New {
		t.Errorf("store holds %d campaigns, summary says %d", len(st.campaigns), summary.New)
	}
}

func TestPipelineRunsSerialize(t *testing.T) {
	st := newMemStore()
	collector := &stubCollector{batch: []scraper.CandidateRecord{
		candidate("串行化测试活动名称", "并发触发也只能逐个运行。"),
	}}

	p := NewPipeline(collector, newTestReconciler(st), nil, PipelineOptions{
		Competitor: "Marriott",
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.RunOnce(context.Background()); err != nil {
				t.Errorf("concurrent run failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if collector.calls != 5 {
		t.Errorf("collector called %d times, want 5", collector.calls)
	}
	if len(st.campaigns) != 1 {
		t.Errorf("got %d campaigns, want 1", len(st.campaigns))
	}
	if len(st.runLogs) != 5 {
		t.Errorf("got %d run logs, want 5", len(st.runLogs))
	}
}
