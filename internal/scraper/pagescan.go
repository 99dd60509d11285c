// internal/scraper/pagescan.go
package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// roleSelectors maps each page role to the ordered candidate-node selector
// set applied against the document. These mirror the markup patterns the
// tracked competitor sites have used; they are deliberately broad because
// third-party markup changes without notice.
var roleSelectors = map[PageRole][]string{
	RoleGeneral: {
		".promotion-card",
		".offer-card",
		".campaign-item",
		".promo-section",
		`[data-component="offer"]`,
		".m-offer-card",
		".l-container-offers",
		".offers-list-item",
		"article.offer",
		".hero-banner",
		".promo-banner",
	},
	RoleOffers: {
		".offer-tile",
		".special-offer",
		".offer-item",
		".offers-card",
		`[class*="offer"]`,
		`[class*="promotion"]`,
	},
	RoleBenefits: {
		".benefit-card",
		".member-benefit",
		".bonvoy-offer",
		`[class*="benefit"]`,
		`[class*="member"]`,
	},
}

// DefaultPromoPatterns are the promotional phrasings matched by the
// heading fallback scan on general pages.
var DefaultPromoPatterns = []string{
	"优惠",
	"促销",
	"特价",
	"活动",
	"会员.*专享",
}

// PageScanner applies a role's selector set to a parsed document, runs the
// element extractor on each matched node, and collects the non-empty
// results. For general pages it additionally runs a regex fallback over
// heading elements; structural selectors are brittle against markup changes
// and the fallback is a lower-precision safety net, not a replacement.
type PageScanner struct {
	extractor     *ElementExtractor
	selectors     map[PageRole][]string
	promoPatterns []*regexp.Regexp
}

// NewPageScanner creates a scanner around the given extractor. patterns may
// be nil to use DefaultPromoPatterns; invalid patterns are dropped rather
// than failing construction.
func NewPageScanner(extractor *ElementExtractor, patterns []string) *PageScanner {
	if len(patterns) == 0 {
		patterns = DefaultPromoPatterns
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		compiled = append(compiled, re)
	}

	return &PageScanner{
		extractor:     extractor,
		selectors:     roleSelectors,
		promoPatterns: compiled,
	}
}

// RoleForURL infers the page role from URL substrings: offer-related URLs
// get the offers selector set, member or loyalty related URLs the benefits
// set, everything else the general set.
func RoleForURL(pageURL string) PageRole {
	lower := strings.ToLower(pageURL)
	switch {
	case strings.Contains(lower, "offer"):
		return RoleOffers
	case strings.Contains(lower, "bonvoy"),
		strings.Contains(lower, "member"),
		strings.Contains(lower, "benefit"):
		return RoleBenefits
	default:
		return RoleGeneral
	}
}

// Scan extracts all campaign candidates from doc using the role's selector
// set. A nil document yields an empty result; it is the caller's signal
// that the fetch failed, which must not abort the run.
func (s *PageScanner) Scan(doc *goquery.Document, pageURL, competitor string, role PageRole) []CandidateRecord {
	if doc == nil {
		return nil
	}

	var candidates []CandidateRecord

	for _, selector := range s.selectors[role] {
		doc.Find(selector).Each(func(_ int, node *goquery.Selection) {
			if rec, ok := s.extractor.Extract(node, pageURL, competitor); ok {
				candidates = append(candidates, rec)
			}
		})
	}

	if role == RoleGeneral {
		candidates = append(candidates, s.scanHeadings(doc, pageURL, competitor)...)
	}

	return candidates
}

// scanHeadings is the fallback pass: enumerate heading elements, match their
// normalized text against the promotional patterns, and synthesize a
// candidate from each hit using the following sibling paragraph (when
// present) as the description.
func (s *PageScanner) scanHeadings(doc *goquery.Document, pageURL, competitor string) []CandidateRecord {
	var candidates []CandidateRecord

	doc.Find("h1, h2, h3, h4").Each(func(_ int, heading *goquery.Selection) {
		text := NormalizeText(heading.Text())
		if text == "" || !s.matchesPromoPattern(text) {
			return
		}

		description := ""
		if next := heading.Next(); goquery.NodeName(next) == "p" {
			description = NormalizeText(next.Text())
		}

		candidates = append(candidates, CandidateRecord{
			Name:         text,
			Description:  description,
			SourceURL:    pageURL,
			Category:     s.extractor.classifier.Classify(text),
			DiscoveredAt: s.extractor.now().UTC(),
			Competitor:   competitor,
		})
	})

	return candidates
}

func (s *PageScanner) matchesPromoPattern(text string) bool {
	for _, re := range s.promoPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
