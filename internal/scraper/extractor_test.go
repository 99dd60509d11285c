// internal/scraper/extractor_test.go
package scraper

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse test document: %v", err)
	}
	return doc
}

func newTestExtractor() *ElementExtractor {
	return NewElementExtractor(NewClassifier(DefaultCategoryRules()), ExtractorOptions{
		Now: func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
}

func TestExtractCompleteCard(t *testing.T) {
	doc := parseDoc(t, `
		<div class="offer-card">
			<h2>万豪旅享家亲子主题房</h2>
			<p>为家庭旅客打造的专属主题房体验，包含儿童欢迎礼品及家庭套餐。</p>
			<a href="/specials/family.mi">了解更多</a>
		</div>`)

	e := newTestExtractor()
	rec, ok := e.Extract(doc.Find(".offer-card"), "https://www.example.com.cn/specials/", "Marriott")
	if !ok {
		t.Fatal("expected extraction to succeed")
	}

	if rec.Name != "万豪旅享家亲子主题房" {
		t.Errorf("name = %q", rec.Name)
	}
	if !strings.Contains(rec.Description, "家庭旅客") {
		t.Errorf("description = %q", rec.Description)
	}
	if rec.SourceURL != "https://www.example.com.cn/specials/family.mi" {
		t.Errorf("source url = %q", rec.SourceURL)
	}
	if rec.Category != "family" {
		t.Errorf("category = %q, want family", rec.Category)
	}
	if rec.Competitor != "Marriott" {
		t.Errorf("competitor = %q", rec.Competitor)
	}
	if rec.DiscoveredAt.IsZero() {
		t.Error("discovered at is zero")
	}
}

func TestExtractNameCascadeOrder(t *testing.T) {
	// h2 precedes .title in the cascade even though .title appears first in
	// the markup.
	doc := parseDoc(t, `
		<div class="card">
			<span class="title">次选标题文字</span>
			<h2>首选标题文字</h2>
		</div>`)

	e := newTestExtractor()
	rec, ok := e.Extract(doc.Find(".card"), "https://example.com", "Marriott")
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if rec.Name != "首选标题文字" {
		t.Errorf("name = %q, want 首选标题文字", rec.Name)
	}
}

func TestExtractRejectsShortName(t *testing.T) {
	e := newTestExtractor()

	// Below and at the threshold both fail; the name must be strictly longer
	// than three runes.
	for _, html := range []string{
		`<div class="card"><h2>OK</h2></div>`,
		`<div class="card"><h2>特价房</h2></div>`,
	} {
		doc := parseDoc(t, html)
		if _, ok := e.Extract(doc.Find(".card"), "https://example.com", "Marriott"); ok {
			t.Errorf("expected short name to be rejected: %s", html)
		}
	}

	// Four runes passes.
	doc := parseDoc(t, `<div class="card"><h2>特价房型</h2></div>`)
	if _, ok := e.Extract(doc.Find(".card"), "https://example.com", "Marriott"); !ok {
		t.Error("expected four-rune name to be accepted")
	}
}

func TestExtractShortDescriptionDropped(t *testing.T) {
	doc := parseDoc(t, `
		<div class="card">
			<h2>周末限时抢购活动</h2>
			<p>太短了</p>
		</div>`)

	e := newTestExtractor()
	rec, ok := e.Extract(doc.Find(".card"), "https://example.com", "Marriott")
	if !ok {
		t.Fatal("expected extraction to succeed without description")
	}
	if rec.Description != "" {
		t.Errorf("description = %q, want empty", rec.Description)
	}
}

func TestExtractDescriptionSkipsNameNode(t *testing.T) {
	// The name resolves from p.title via the .title selector. The description
	// cascade's p selector then matches the same node and must skip it rather
	// than reuse the name text.
	doc := parseDoc(t, `
		<div class="card">
			<p class="title">超值优惠购房活动现已上线欢迎参加</p>
		</div>`)

	e := newTestExtractor()
	rec, ok := e.Extract(doc.Find(".card"), "https://example.com", "Marriott")
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if rec.Description != "" {
		t.Errorf("description reused the name node: %q", rec.Description)
	}
}

func TestExtractLinkFallsBackToPageURL(t *testing.T) {
	doc := parseDoc(t, `<div class="card"><h2>节日专属礼遇活动</h2></div>`)

	e := newTestExtractor()
	rec, ok := e.Extract(doc.Find(".card"), "https://example.com/offers/", "Marriott")
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if rec.SourceURL != "https://example.com/offers/" {
		t.Errorf("source url = %q, want page url", rec.SourceURL)
	}
}

func TestExtractResolvesAbsoluteLink(t *testing.T) {
	doc := parseDoc(t, `
		<div class="card">
			<h2>节日专属礼遇活动</h2>
			<a href="https://other.example.com/deal">book</a>
		</div>`)

	e := newTestExtractor()
	rec, ok := e.Extract(doc.Find(".card"), "https://example.com/offers/", "Marriott")
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if rec.SourceURL != "https://other.example.com/deal" {
		t.Errorf("source url = %q", rec.SourceURL)
	}
}

func TestExtractEmptyNode(t *testing.T) {
	doc := parseDoc(t, `<div></div>`)

	e := newTestExtractor()
	if _, ok := e.Extract(doc.Find(".missing"), "https://example.com", "Marriott"); ok {
		t.Error("expected extraction from empty selection to fail")
	}
	if _, ok := e.Extract(nil, "https://example.com", "Marriott"); ok {
		t.Error("expected extraction from nil selection to fail")
	}
}
