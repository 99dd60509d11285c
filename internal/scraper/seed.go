// internal/scraper/seed.go
package scraper

import "time"

// SeedCampaigns returns a representative campaign dataset for development
// and demos. Callers substitute it explicitly (for example the API's
// use_demo flag) when live scraping yields nothing; the core pipeline never
// falls back to it on its own.
func SeedCampaigns(competitor string, now time.Time) []CandidateRecord {
	now = now.UTC()
	return []CandidateRecord{
		{
			Name:         "万豪旅享家亲子主题房",
			Description:  "为家庭旅客打造的专属主题房体验，包含儿童欢迎礼品、亲子活动及家庭套餐优惠。入住即享专属儿童用品和游乐设施。",
			SourceURL:    "https://www.marriott.com.cn/specials/family-theme-room.mi",
			Category:     "family",
			DiscoveredAt: now,
			Competitor:   competitor,
		},
		{
			Name:         "万豪旅享家会员积分加倍",
			Description:  "限时活动：预订指定酒店可获得双倍积分奖励。会员专享，积分可兑换免费住宿及多种礼遇。",
			SourceURL:    "https://www.marriott.com.cn/marriott-bonvoy/double-points.mi",
			Category:     "rewards",
			DiscoveredAt: now,
			Competitor:   competitor,
		},
		{
			Name:         "春季美食节特别优惠",
			Description:  "品尝春季限定美食，指定餐厅消费满额享8折优惠。包含多款时令菜品和精选套餐。",
			SourceURL:    "https://www.marriott.com.cn/dining/spring-food-festival.mi",
			Category:     "dining",
			DiscoveredAt: now,
			Competitor:   competitor,
		},
		{
			Name:         "商务差旅尊享计划",
			Description:  "为商务旅客定制的专属礼遇，包含延迟退房、行政酒廊使用权及专属商务服务。",
			SourceURL:    "https://www.marriott.com.cn/specials/business-travel.mi",
			Category:     "business",
			DiscoveredAt: now,
			Competitor:   competitor,
		},
		{
			Name:         "水疗养生套餐",
			Description:  "尊享90分钟身心放松体验，包含特色按摩及水疗护理。预订住宿套餐可享专属折扣。",
			SourceURL:    "https://www.marriott.com.cn/specials/spa-wellness.mi",
			Category:     "spa",
			DiscoveredAt: now,
			Competitor:   competitor,
		},
		{
			Name:         "周末度假特惠",
			Description:  "周五至周日入住指定度假酒店，享房价7折优惠，含双人早餐及度假村活动体验。",
			SourceURL:    "https://www.marriott.com.cn/specials/weekend-getaway.mi",
			Category:     "travel",
			DiscoveredAt: now,
			Competitor:   competitor,
		},
		{
			Name:         "新会员首住礼遇",
			Description:  "新注册万豪旅享家会员首次入住即获500积分奖励，更有机会升级房型。",
			SourceURL:    "https://www.marriott.com.cn/marriott-bonvoy/new-member.mi",
			Category:     "rewards",
			DiscoveredAt: now,
			Competitor:   competitor,
		},
		{
			Name:         "婚礼场地预订优惠",
			Description:  "2024年婚宴预订享专属优惠，包含场地布置、定制菜单及新人住宿礼遇。",
			SourceURL:    "https://www.marriott.com.cn/meetings/weddings.mi",
			Category:     "wedding",
			DiscoveredAt: now,
			Competitor:   competitor,
		},
	}
}
