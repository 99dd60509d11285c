// internal/scraper/classifier_test.go
package scraper

import "testing"

func TestClassifyDefaultCategory(t *testing.T) {
	c := NewClassifier(DefaultCategoryRules())

	if got := c.Classify(""); got != DefaultCategory {
		t.Errorf("empty text: got %q, want %q", got, DefaultCategory)
	}
	if got := c.Classify("completely unrelated text"); got != DefaultCategory {
		t.Errorf("no keyword match: got %q, want %q", got, DefaultCategory)
	}
}

func TestClassifyKeywordMatch(t *testing.T) {
	c := NewClassifier(DefaultCategoryRules())

	tests := []struct {
		text     string
		expected string
	}{
		{"万豪旅享家亲子主题房", "family"},
		{"春季美食节特别活动", "dining"},
		{"商务差旅尊享计划", "business"},
		{"浪漫婚礼庆典套餐", "wedding"},
		{"水疗休闲时光", "spa"},
		{"限时特价房", "promotion"},
	}

	for _, tt := range tests {
		if got := c.Classify(tt.text); got != tt.expected {
			t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.expected)
		}
	}
}

func TestClassifyOrderIsTieBreak(t *testing.T) {
	c := NewClassifier(DefaultCategoryRules())

	// 会员 belongs to rewards and 优惠 to promotion; rewards is declared
	// earlier so it must win.
	if got := c.Classify("会员专享优惠"); got != "rewards" {
		t.Errorf("got %q, want rewards", got)
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	c := NewClassifier(DefaultCategoryRules())

	if got := c.Classify("Join BONVOY today"); got != "rewards" {
		t.Errorf("got %q, want rewards", got)
	}
	if got := c.Classify("luxury spa retreat"); got != "spa" {
		t.Errorf("got %q, want spa", got)
	}
}

func TestClassifyEmptyRuleTable(t *testing.T) {
	c := NewClassifier(nil)

	if got := c.Classify("亲子优惠活动"); got != DefaultCategory {
		t.Errorf("got %q, want %q", got, DefaultCategory)
	}
}

func TestClassifierIsDeterministic(t *testing.T) {
	c := NewClassifier(DefaultCategoryRules())

	text := "节日会员美食优惠"
	first := c.Classify(text)
	for i := 0; i < 100; i++ {
		if got := c.Classify(text); got != first {
			t.Fatalf("iteration %d: got %q, want %q", i, got, first)
		}
	}
}

func TestClassifierCopiesRules(t *testing.T) {
	rules := []CategoryRule{
		{Category: "dining", Keywords: []string{"美食"}},
	}
	c := NewClassifier(rules)

	// Mutating the caller's table must not affect the classifier.
	rules[0].Keywords[0] = "婚礼"

	if got := c.Classify("春季美食节"); got != "dining" {
		t.Errorf("got %q, want dining", got)
	}
}
