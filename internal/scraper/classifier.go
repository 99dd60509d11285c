// internal/scraper/classifier.go
package scraper

import "strings"

// DefaultCategory is returned when no keyword in the table matches.
const DefaultCategory = "general"

// CategoryRule binds one category to its keyword list. Rules are evaluated
// in declared order and keywords within a rule in declared order; the first
// match wins, so a text containing keywords from two categories is
// classified by whichever rule appears earlier in the table.
type CategoryRule struct {
	Category string   `yaml:"category" json:"category"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Classifier maps campaign text to a category via ordered keyword lookup.
// The rule table is copied at construction and never mutated afterwards, so
// a Classifier is safe for concurrent use.
type Classifier struct {
	rules []CategoryRule
}

// NewClassifier creates a classifier over the given ordered rule table.
// A nil or empty table yields a classifier that always returns the default
// category.
func NewClassifier(rules []CategoryRule) *Classifier {
	copied := make([]CategoryRule, len(rules))
	for i, rule := range rules {
		copied[i] = CategoryRule{
			Category: rule.Category,
			Keywords: append([]string(nil), rule.Keywords...),
		}
	}
	return &Classifier{rules: copied}
}

// Classify returns the category of the first rule whose keyword is a
// case-insensitive substring of text, or DefaultCategory when nothing
// matches. Empty input returns DefaultCategory.
func (c *Classifier) Classify(text string) string {
	if text == "" {
		return DefaultCategory
	}

	lower := strings.ToLower(text)

	for _, rule := range c.rules {
		for _, keyword := range rule.Keywords {
			if keyword == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(keyword)) {
				return rule.Category
			}
		}
	}

	return DefaultCategory
}

// DefaultCategoryRules returns the built-in category table for Chinese
// hospitality promotions. Declaration order is part of the contract: it is
// the tie-break when a text matches keywords from more than one category.
func DefaultCategoryRules() []CategoryRule {
	return []CategoryRule{
		{Category: "family", Keywords: []string{"亲子", "家庭", "儿童", "家族", "亲情", "孩子"}},
		{Category: "dining", Keywords: []string{"餐饮", "美食", "餐厅", "饮食", "用餐", "早餐", "晚餐", "自助餐"}},
		{Category: "seasonal", Keywords: []string{"季节", "春", "夏", "秋", "冬", "节日", "新年", "圣诞", "春节", "中秋"}},
		{Category: "rewards", Keywords: []string{"积分", "会员", "旅享家", "奖励", "里程", "返现", "Bonvoy"}},
		{Category: "travel", Keywords: []string{"旅行", "度假", "出行", "旅游", "游玩", "探索"}},
		{Category: "business", Keywords: []string{"商务", "会议", "办公", "差旅"}},
		{Category: "spa", Keywords: []string{"水疗", "SPA", "养生", "按摩", "理疗"}},
		{Category: "wedding", Keywords: []string{"婚礼", "婚宴", "婚庆", "蜜月"}},
		{Category: "promotion", Keywords: []string{"优惠", "折扣", "特价", "促销", "立减", "返利"}},
	}
}
