// internal/tracker/reconciler_test.go
package tracker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/promoscout/promoscout/internal/scraper"
	"github.com/promoscout/promoscout/internal/store"
)

// memStore is an in-memory Store for reconciler tests.
type memStore struct {
	campaigns map[string]*store.Campaign
	runLogs   []store.RunLog
	nextID    int64

	failUpsert map[string]bool
	failList   bool
}

func newMemStore() *memStore {
	return &memStore{
		campaigns:  make(map[string]*store.Campaign),
		failUpsert: make(map[string]bool),
	}
}

func identityKey(name, competitor string) string {
	return name + "\x00" + competitor
}

func (m *memStore) FindByIdentity(ctx context.Context, name, competitor string) (*store.Campaign, error) {
	c, ok := m.campaigns[identityKey(name, competitor)]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *memStore) Upsert(ctx context.Context, c *store.Campaign) error {
	if m.failUpsert[c.Name] {
		return fmt.Errorf("upsert rejected")
	}
	if c.ID == 0 {
		m.nextID++
		c.ID = m.nextID
	}
	copied := *c
	m.campaigns[identityKey(c.Name, c.Competitor)] = &copied
	return nil
}

func (m *memStore) ListActiveByCompetitor(ctx context.Context, competitor string) ([]store.Campaign, error) {
	if m.failList {
		return nil, fmt.Errorf("listing unavailable")
	}
	var out []store.Campaign
	for _, c := range m.campaigns {
		if c.Competitor == competitor && c.Active {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) AppendRunLog(ctx context.Context, entry *store.RunLog) error {
	m.nextID++
	entry.ID = m.nextID
	m.runLogs = append(m.runLogs, *entry)
	return nil
}

func (m *memStore) get(name, competitor string) *store.Campaign {
	return m.campaigns[identityKey(name, competitor)]
}

var testNow = time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

func newTestReconciler(st *memStore) *Reconciler {
	return NewReconciler(st, nil, ReconcilerOptions{
		Now: func() time.Time { return testNow },
	})
}

func candidate(name, description string) scraper.CandidateRecord {
	return scraper.CandidateRecord{
		Name:         name,
		Description:  description,
		SourceURL:    "https://example.com/offers/",
		Category:     "promotion",
		DiscoveredAt: testNow,
		Competitor:   "Marriott",
	}
}

func TestReconcileCreatesNewCampaigns(t *testing.T) {
	st := newMemStore()
	r := newTestReconciler(st)

	batch := []scraper.CandidateRecord{
		candidate("夏日特价房优惠", "夏季限定房价优惠活动。"),
		candidate("会员双倍积分活动", "会员预订享双倍积分。"),
	}

	summary, err := r.Reconcile(context.Background(), "Marriott", "https://example.com", batch)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if summary.Found != 2 || summary.New != 2 || summary.Updated != 0 {
		t.Errorf("summary = %+v", summary)
	}

	c := st.get("夏日特价房优惠", "Marriott")
	if c == nil {
		t.Fatal("campaign not persisted")
	}
	if !c.Active {
		t.Error("new campaign not active")
	}
	if !c.FirstSeenAt.Equal(testNow) || !c.LastSeenAt.Equal(testNow) {
		t.Errorf("timestamps: first=%v last=%v", c.FirstSeenAt, c.LastSeenAt)
	}
	if c.ID == 0 {
		t.Error("generated id not assigned")
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	st := newMemStore()
	r := newTestReconciler(st)
	batch := []scraper.CandidateRecord{candidate("夏日特价房优惠", "夏季限定房价优惠活动。")}

	first, err := r.Reconcile(context.Background(), "Marriott", "https://example.com", batch)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := r.Reconcile(context.Background(), "Marriott", "https://example.com", batch)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if first.New != 1 || second.New != 0 || second.Updated != 1 {
		t.Errorf("first=%+v second=%+v", first, second)
	}
	if len(st.campaigns) != 1 {
		t.Errorf("got %d campaigns, want 1", len(st.campaigns))
	}
	if len(st.runLogs) != 2 {
		t.Errorf("got %d run logs, want 2", len(st.runLogs))
	}
}

func TestReconcileMergePreservesFirstSeen(t *testing.T) {
	st := newMemStore()
	firstSeen := testNow.AddDate(0, 0, -10)
	st.Upsert(context.Background(), &store.Campaign{
		Name:        "会员双倍积分活动",
		Description: "旧描述",
		Category:    "rewards",
		Competitor:  "Marriott",
		FirstSeenAt: firstSeen,
		LastSeenAt:  firstSeen,
		Active:      true,
	})

	r := newTestReconciler(st)
	batch := []scraper.CandidateRecord{candidate("会员双倍积分活动", "新的更详细的活动描述。")}
	if _, err := r.Reconcile(context.Background(), "Marriott", "https://example.com", batch); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	c := st.get("会员双倍积分活动", "Marriott")
	if !c.FirstSeenAt.Equal(firstSeen) {
		t.Errorf("first seen changed: %v", c.FirstSeenAt)
	}
	if !c.LastSeenAt.Equal(testNow) {
		t.Errorf("last seen not refreshed: %v", c.LastSeenAt)
	}
	if c.Description != "新的更详细的活动描述。" {
		t.Errorf("description not merged: %q", c.Description)
	}
}

func TestReconcileMergeKeepsExistingWhenCandidateEmpty(t *testing.T) {
	st := newMemStore()
	st.Upsert(context.Background(), &store.Campaign{
		Name:        "春节家庭套餐优惠",
		Description: "原有描述内容",
		Category:    "family",
		Competitor:  "Marriott",
		FirstSeenAt: testNow.AddDate(0, 0, -1),
		LastSeenAt:  testNow.AddDate(0, 0, -1),
		Active:      true,
	})

	r := newTestReconciler(st)
	rec := candidate("春节家庭套餐优惠", "")
	rec.Category = ""
	if _, err := r.Reconcile(context.Background(), "Marriott", "https://example.com", []scraper.CandidateRecord{rec}); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	c := st.get("春节家庭套餐优惠", "Marriott")
	if c.Description != "原有描述内容" {
		t.Errorf("empty candidate wiped the description: %q", c.Description)
	}
	if c.Category != "family" {
		t.Errorf("empty candidate wiped the category: %q", c.Category)
	}
}

func TestReconcileReactivatesReturnedCampaign(t *testing.T) {
	st := newMemStore()
	st.Upsert(context.Background(), &store.Campaign{
		Name:        "周末度假特惠活动",
		Competitor:  "Marriott",
		FirstSeenAt: testNow.AddDate(0, 0, -30),
		LastSeenAt:  testNow.AddDate(0, 0, -20),
		Active:      false,
	})

	r := newTestReconciler(st)
	batch := []scraper.CandidateRecord{candidate("周末度假特惠活动", "活动重新上线，欢迎预订。")}
	summary, err := r.Reconcile(context.Background(), "Marriott", "https://example.com", batch)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if summary.Updated != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if c := st.get("周末度假特惠活动", "Marriott"); !c.Active {
		t.Error("returned campaign was not reactivated")
	}
}

func TestReconcileSkipsInvalidNames(t *testing.T) {
	st := newMemStore()
	r := newTestReconciler(st)

	batch := []scraper.CandidateRecord{
		candidate("OK", "名字太短不应入库。"),
		candidate("特价房", "正好三个字也不行。"),
		candidate("  ", "空白名称。"),
		candidate("有效的活动名称", "这个应该正常入库。"),
	}

	summary, err := r.Reconcile(context.Background(), "Marriott", "https://example.com", batch)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if summary.Skipped != 3 || summary.New != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(st.campaigns) != 1 {
		t.Errorf("got %d campaigns, want 1", len(st.campaigns))
	}
}

func TestReconcileStalenessSweep(t *testing.T) {
	st := newMemStore()
	seed := func(name string, lastSeenDaysAgo int) {
		st.Upsert(context.Background(), &store.Campaign{
			Name:        name,
			Competitor:  "Marriott",
			FirstSeenAt: testNow.AddDate(0, 0, -30),
			LastSeenAt:  testNow.AddDate(0, 0, -lastSeenDaysAgo),
			Active:      true,
		})
	}
	seed("三天前的活动名称", 3)
	seed("四天前的活动名称", 4)

	r := newTestReconciler(st)
	batch := []scraper.CandidateRecord{candidate("今天看到的新活动", "今天的扫描结果。")}
	summary, err := r.Reconcile(context.Background(), "Marriott", "https://example.com", batch)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if summary.Deactivated != 1 {
		t.Errorf("deactivated = %d, want 1", summary.Deactivated)
	}
	if c := st.get("三天前的活动名称", "Marriott"); !c.Active {
		t.Error("campaign at exactly the threshold was deactivated")
	}
	if c := st.get("四天前的活动名称", "Marriott"); c.Active {
		t.Error("campaign past the threshold stayed active")
	}
}

func TestReconcileSweepExemptsBatchMembersAfterMergeFailure(t *testing.T) {
	st := newMemStore()
	st.Upsert(context.Background(), &store.Campaign{
		Name:        "写入失败的在售活动",
		Competitor:  "Marriott",
		FirstSeenAt: testNow.AddDate(0, 0, -30),
		LastSeenAt:  testNow.AddDate(0, 0, -10),
		Active:      true,
	})
	st.failUpsert["写入失败的在售活动"] = true

	r := newTestReconciler(st)
	batch := []scraper.CandidateRecord{candidate("写入失败的在售活动", "活动仍在页面上。")}
	summary, err := r.Reconcile(context.Background(), "Marriott", "https://example.com", batch)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	// The merge write failed, so the persisted timestamp is still stale, but
	// a campaign present in the batch must never be swept.
	if summary.Failed != 1 || summary.Deactivated != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if c := st.get("写入失败的在售活动", "Marriott"); !c.Active {
		t.Error("batch member was deactivated after a transient merge failure")
	}
}

func TestReconcileEmptyBatchSkipsSweep(t *testing.T) {
	st := newMemStore()
	st.Upsert(context.Background(), &store.Campaign{
		Name:        "很久以前的活动名称",
		Competitor:  "Marriott",
		FirstSeenAt: testNow.AddDate(0, 0, -60),
		LastSeenAt:  testNow.AddDate(0, 0, -30),
		Active:      true,
	})

	r := newTestReconciler(st)
	summary, err := r.Reconcile(context.Background(), "Marriott", "https://example.com", nil)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if summary.Deactivated != 0 {
		t.Errorf("deactivated = %d, want 0", summary.Deactivated)
	}
	if c := st.get("很久以前的活动名称", "Marriott"); !c.Active {
		t.Error("empty batch retired the record set")
	}
	if len(st.runLogs) != 1 {
		t.Fatalf("got %d run logs, want 1", len(st.runLogs))
	}
	if st.runLogs[0].Status != store.RunStatusSuccess {
		t.Errorf("run status = %q", st.runLogs[0].Status)
	}
}

func TestReconcilePerRecordFailureContinues(t *testing.T) {
	st := newMemStore()
	st.failUpsert["注定失败的活动名称"] = true

	r := newTestReconciler(st)
	batch := []scraper.CandidateRecord{
		candidate("注定失败的活动名称", "这条记录无法写入。"),
		candidate("正常入库的活动名称", "这条记录应当成功。"),
	}

	summary, err := r.Reconcile(context.Background(), "Marriott", "https://example.com", batch)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if summary.Failed != 1 || summary.New != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if len(st.runLogs) != 1 {
		t.Errorf("got %d run logs, want 1", len(st.runLogs))
	}
}

func TestReconcileSweepFailureMarksRunFailed(t *testing.T) {
	st := newMemStore()
	st.failList = true

	r := newTestReconciler(st)
	batch := []scraper.CandidateRecord{candidate("正常入库的活动名称", "这条记录应当成功。")}

	summary, err := r.Reconcile(context.Background(), "Marriott", "https://example.com", batch)
	if err == nil {
		t.Fatal("expected sweep failure to surface")
	}
	if summary == nil || summary.New != 1 {
		t.Errorf("merge results lost: %+v", summary)
	}
	if len(st.runLogs) != 1 {
		t.Fatalf("got %d run logs, want 1", len(st.runLogs))
	}
	if st.runLogs[0].Status != store.RunStatusFailed {
		t.Errorf("run status = %q, want failed", st.runLogs[0].Status)
	}
	if st.runLogs[0].ErrorMessage == "" {
		t.Error("failed run log has no error message")
	}
}

func TestReconcileRunLogCounts(t *testing.T) {
	st := newMemStore()
	r := newTestReconciler(st)

	batch := []scraper.CandidateRecord{
		candidate("第一个全新活动名称", "第一条描述。"),
		candidate("第二个全新活动名称", "第二条描述。"),
		candidate("OK", "跳过这条。"),
	}
	if _, err := r.Reconcile(context.Background(), "Marriott", "https://example.com/a", batch); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if len(st.runLogs) != 1 {
		t.Fatalf("got %d run logs, want 1", len(st.runLogs))
	}
	entry := st.runLogs[0]
	if entry.CampaignsFound != 3 || entry.NewCampaigns != 2 {
		t.Errorf("run log = %+v", entry)
	}
	if entry.Competitor != "Marriott" || entry.SourceURL != "https://example.com/a" {
		t.Errorf("run log identity = %+v", entry)
	}
	if !entry.RunAt.Equal(testNow) {
		t.Errorf("run at = %v", entry.RunAt)
	}
}
