// internal/scraper/extractor.go
package scraper

import (
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Default acceptance thresholds for extracted text, measured in runes so
// CJK text is counted by character rather than by byte.
const (
	DefaultMinNameLength        = 3
	DefaultMinDescriptionLength = 10
)

// defaultNameSelectors is the ordered cascade tried for the campaign name.
// Heading levels come first; class-based title selectors are the fallback.
var defaultNameSelectors = []string{
	"h1", "h2", "h3", "h4",
	".title", ".name", ".heading", `[class*="title"]`,
}

// defaultDescriptionSelectors is the ordered cascade tried for the campaign
// description.
var defaultDescriptionSelectors = []string{
	"p", ".description", ".info", ".content", ".summary", `[class*="desc"]`,
}

// ExtractorOptions tunes the element extractor. Zero values fall back to the
// package defaults.
type ExtractorOptions struct {
	MinNameLength        int
	MinDescriptionLength int
	NameSelectors        []string
	DescriptionSelectors []string
	Now                  func() time.Time
}

// ElementExtractor turns a single candidate node into at most one
// CandidateRecord by applying ordered selector cascades for name and
// description, resolving the destination link, and classifying the result.
type ElementExtractor struct {
	classifier    *Classifier
	minNameLen    int
	minDescLen    int
	nameSelectors []string
	descSelectors []string
	now           func() time.Time
}

// NewElementExtractor creates an extractor using the given classifier.
func NewElementExtractor(classifier *Classifier, opts ExtractorOptions) *ElementExtractor {
	if opts.MinNameLength <= 0 {
		opts.MinNameLength = DefaultMinNameLength
	}
	if opts.MinDescriptionLength <= 0 {
		opts.MinDescriptionLength = DefaultMinDescriptionLength
	}
	if len(opts.NameSelectors) == 0 {
		opts.NameSelectors = defaultNameSelectors
	}
	if len(opts.DescriptionSelectors) == 0 {
		opts.DescriptionSelectors = defaultDescriptionSelectors
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &ElementExtractor{
		classifier:    classifier,
		minNameLen:    opts.MinNameLength,
		minDescLen:    opts.MinDescriptionLength,
		nameSelectors: opts.NameSelectors,
		descSelectors: opts.DescriptionSelectors,
		now:           opts.Now,
	}
}

// Extract attempts to recover a campaign from one structural node. It
// returns (record, true) on success and (zero, false) when the node does not
// yield a usable campaign. Extraction is best-effort per node: any internal
// failure is absorbed into the skip result so one malformed node cannot
// abort a scan.
func (e *ElementExtractor) Extract(node *goquery.Selection, pageURL, competitor string) (rec CandidateRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			rec, ok = CandidateRecord{}, false
		}
	}()

	if node == nil || node.Length() == 0 {
		return CandidateRecord{}, false
	}

	name, nameNode := e.resolveName(node)
	if name == "" {
		// A campaign without a name is meaningless.
		return CandidateRecord{}, false
	}

	description := e.resolveDescription(node, nameNode)
	link := e.resolveLink(node, pageURL)
	category := e.classifier.Classify(name + " " + description)

	return CandidateRecord{
		Name:         name,
		Description:  description,
		SourceURL:    link,
		Category:     category,
		DiscoveredAt: e.now().UTC(),
		Competitor:   competitor,
	}, true
}

// resolveName walks the name selector cascade and returns the first
// normalized text longer than the minimum threshold, together with the node
// it came from so the description pass can skip it.
func (e *ElementExtractor) resolveName(node *goquery.Selection) (string, *goquery.Selection) {
	for _, selector := range e.nameSelectors {
		match := node.Find(selector).First()
		if match.Length() == 0 {
			continue
		}
		name := NormalizeText(match.Text())
		if utf8.RuneCountInString(name) > e.minNameLen {
			return name, match
		}
	}
	return "", nil
}

// resolveDescription walks the description selector cascade, skipping the
// node already consumed by the name, and returns the first normalized text
// longer than the minimum threshold. Absence is fine; the description is
// optional.
func (e *ElementExtractor) resolveDescription(node *goquery.Selection, nameNode *goquery.Selection) string {
	for _, selector := range e.descSelectors {
		match := node.Find(selector).First()
		if match.Length() == 0 {
			continue
		}
		if nameNode != nil && match.Length() > 0 && nameNode.Length() > 0 &&
			match.Nodes[0] == nameNode.Nodes[0] {
			continue
		}
		text := NormalizeText(match.Text())
		if utf8.RuneCountInString(text) > e.minDescLen {
			return text
		}
	}
	return ""
}

// resolveLink returns the first descendant anchor's href resolved against
// the page URL, or the page URL itself when no usable anchor exists.
func (e *ElementExtractor) resolveLink(node *goquery.Selection, pageURL string) string {
	href, exists := node.Find("a[href]").First().Attr("href")
	if !exists || href == "" {
		return pageURL
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	ref, err := url.Parse(href)
	if err != nil {
		return pageURL
	}

	return base.ResolveReference(ref).String()
}
