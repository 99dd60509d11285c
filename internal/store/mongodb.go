// internal/store/mongodb.go
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore implements Store on MongoDB. Campaigns carry a sequential
// numeric id (maintained in a counters collection) so the query surface
// exposes the same id type as the SQL backends, and a unique index on
// (name, competitor) enforces campaign identity.
type MongoStore struct {
	client    *mongo.Client
	campaigns *mongo.Collection
	runs      *mongo.Collection
	counters  *mongo.Collection
}

type mongoCampaign struct {
	ID          int64     `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description,omitempty"`
	SourceURL   string    `bson:"source_url"`
	Category    string    `bson:"category"`
	Competitor  string    `bson:"competitor"`
	FirstSeenAt time.Time `bson:"first_seen_at"`
	LastSeenAt  time.Time `bson:"last_seen_at"`
	Active      bool      `bson:"active"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

type mongoRunLog struct {
	ID             int64     `bson:"_id"`
	RunAt          time.Time `bson:"run_at"`
	Competitor     string    `bson:"competitor"`
	SourceURL      string    `bson:"source_url"`
	Status         string    `bson:"status"`
	CampaignsFound int       `bson:"campaigns_found"`
	NewCampaigns   int       `bson:"new_campaigns"`
	ErrorMessage   string    `bson:"error_message,omitempty"`
}

// NewMongoStore connects to MongoDB and prepares collections and indexes.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("MongoDB connection URI is required")
	}
	if database == "" {
		database = "promoscout"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:    client,
		campaigns: db.Collection("campaigns"),
		runs:      db.Collection("scrape_runs"),
		counters:  db.Collection("counters"),
	}

	identityIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}, {Key: "competitor", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uq_campaign_identity"),
	}
	if _, err := s.campaigns.Indexes().CreateOne(ctx, identityIndex); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create identity index: %w", err)
	}

	return s, nil
}

// nextSeq returns the next value of a named sequence.
func (s *MongoStore) nextSeq(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence: %w", name, err)
	}
	return doc.Seq, nil
}

func toMongoCampaign(c *Campaign) mongoCampaign {
	return mongoCampaign{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		SourceURL:   c.SourceURL,
		Category:    c.Category,
		Competitor:  c.Competitor,
		FirstSeenAt: c.FirstSeenAt,
		LastSeenAt:  c.LastSeenAt,
		Active:      c.Active,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (m mongoCampaign) toCampaign() Campaign {
	return Campaign{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		SourceURL:   m.SourceURL,
		Category:    m.Category,
		Competitor:  m.Competitor,
		FirstSeenAt: m.FirstSeenAt,
		LastSeenAt:  m.LastSeenAt,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FindByIdentity looks up a campaign by its (name, competitor) key.
func (s *MongoStore) FindByIdentity(ctx context.Context, name, competitor string) (*Campaign, error) {
	var doc mongoCampaign
	err := s.campaigns.FindOne(ctx, bson.M{"name": name, "competitor": competitor}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up campaign: %w", err)
	}
	c := doc.toCampaign()
	return &c, nil
}

// Upsert inserts the campaign when ID is zero, otherwise replaces the
// stored document.
func (s *MongoStore) Upsert(ctx context.Context, c *Campaign) error {
	if c.ID == 0 {
		id, err := s.nextSeq(ctx, "campaigns")
		if err != nil {
			return err
		}
		c.ID = id
		if _, err := s.campaigns.InsertOne(ctx, toMongoCampaign(c)); err != nil {
			c.ID = 0
			return fmt.Errorf("failed to insert campaign: %w", err)
		}
		return nil
	}

	_, err := s.campaigns.ReplaceOne(ctx, bson.M{"_id": c.ID}, toMongoCampaign(c))
	if err != nil {
		return fmt.Errorf("failed to update campaign %d: %w", c.ID, err)
	}
	return nil
}

// ListActiveByCompetitor returns all active campaigns for a competitor.
func (s *MongoStore) ListActiveByCompetitor(ctx context.Context, competitor string) ([]Campaign, error) {
	cursor, err := s.campaigns.Find(ctx,
		bson.M{"competitor": competitor, "active": true},
		options.Find().SetSort(bson.D{{Key: "last_seen_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list active campaigns: %w", err)
	}
	return s.drainCampaigns(ctx, cursor)
}

func (s *MongoStore) drainCampaigns(ctx context.Context, cursor *mongo.Cursor) ([]Campaign, error) {
	defer cursor.Close(ctx)

	var campaigns []Campaign
	for cursor.Next(ctx) {
		var doc mongoCampaign
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode campaign: %w", err)
		}
		campaigns = append(campaigns, doc.toCampaign())
	}
	return campaigns, cursor.Err()
}

// AppendRunLog records one audit entry.
func (s *MongoStore) AppendRunLog(ctx context.Context, entry *RunLog) error {
	id, err := s.nextSeq(ctx, "scrape_runs")
	if err != nil {
		return err
	}
	entry.ID = id

	doc := mongoRunLog{
		ID:             entry.ID,
		RunAt:          entry.RunAt,
		Competitor:     entry.Competitor,
		SourceURL:      entry.SourceURL,
		Status:         entry.Status,
		CampaignsFound: entry.CampaignsFound,
		NewCampaigns:   entry.NewCampaigns,
		ErrorMessage:   entry.ErrorMessage,
	}
	if _, err := s.runs.InsertOne(ctx, doc); err != nil {
		entry.ID = 0
		return fmt.Errorf("failed to append run log: %w", err)
	}
	return nil
}

// GetCampaign retrieves a campaign by id.
func (s *MongoStore) GetCampaign(ctx context.Context, id int64) (*Campaign, error) {
	var doc mongoCampaign
	err := s.campaigns.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign %d: %w", id, err)
	}
	c := doc.toCampaign()
	return &c, nil
}

// ListCampaigns applies the filter and returns a page of campaigns plus the
// total match count, ordered by most recent activity.
func (s *MongoStore) ListCampaigns(ctx context.Context, filter Filter) ([]Campaign, int, error) {
	query := bson.M{}
	if filter.Competitor != "" {
		query["competitor"] = filter.Competitor
	}
	if filter.Category != "" && filter.Category != "all" {
		query["category"] = filter.Category
	}
	if filter.Active != nil {
		query["active"] = *filter.Active
	}
	if filter.Search != "" {
		pattern := regexQuoteMeta(filter.Search)
		query["$or"] = bson.A{
			bson.M{"name": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}

	total, err := s.campaigns.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	cursor, err := s.campaigns.Find(ctx, query, options.Find().
		SetSort(bson.D{{Key: "last_seen_at", Value: -1}}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(filter.Limit)))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}

	campaigns, err := s.drainCampaigns(ctx, cursor)
	if err != nil {
		return nil, 0, err
	}
	return campaigns, int(total), nil
}

// ListCategories returns the distinct categories present in the store.
func (s *MongoStore) ListCategories(ctx context.Context) ([]string, error) {
	return s.listDistinct(ctx, "category")
}

// ListCompetitors returns the distinct competitor names present in the store.
func (s *MongoStore) ListCompetitors(ctx context.Context) ([]string, error) {
	return s.listDistinct(ctx, "competitor")
}

func (s *MongoStore) listDistinct(ctx context.Context, field string) ([]string, error) {
	raw, err := s.campaigns.Distinct(ctx, field, bson.M{field: bson.M{"$ne": ""}})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s values: %w", field, err)
	}

	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if str, ok := v.(string); ok {
			values = append(values, str)
		}
	}
	return values, nil
}

// GetStats summarizes the record set.
func (s *MongoStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Categories:  make(map[string]int),
		Competitors: make(map[string]int),
	}

	total, err := s.campaigns.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count campaigns: %w", err)
	}
	active, err := s.campaigns.CountDocuments(ctx, bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to count active campaigns: %w", err)
	}
	stats.TotalCampaigns = int(total)
	stats.ActiveCampaigns = int(active)
	stats.InactiveCampaigns = int(total - active)

	if err := s.groupCount(ctx, "category", stats.Categories); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, "competitor", stats.Competitors); err != nil {
		return nil, err
	}

	logs, err := s.ListRunLogs(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(logs) > 0 {
		stats.LastRun = &logs[0]
	}

	return stats, nil
}

func (s *MongoStore) groupCount(ctx context.Context, field string, into map[string]int) error {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := s.campaigns.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("failed to group by %s: %w", field, err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc struct {
			Key   string `bson:"_id"`
			Count int    `bson:"count"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("failed to decode %s group: %w", field, err)
		}
		into[doc.Key] = doc.Count
	}
	return cursor.Err()
}

// ListRunLogs returns the most recent run log entries, newest first.
func (s *MongoStore) ListRunLogs(ctx context.Context, limit int) ([]RunLog, error) {
	if limit <= 0 {
		limit = 20
	}

	cursor, err := s.runs.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "run_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to list run logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []RunLog
	for cursor.Next(ctx) {
		var doc mongoRunLog
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode run log: %w", err)
		}
		logs = append(logs, RunLog{
			ID:             doc.ID,
			RunAt:          doc.RunAt,
			Competitor:     doc.Competitor,
			SourceURL:      doc.SourceURL,
			Status:         doc.Status,
			CampaignsFound: doc.CampaignsFound,
			NewCampaigns:   doc.NewCampaigns,
			ErrorMessage:   doc.ErrorMessage,
		})
	}
	return logs, cursor.Err()
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// regexQuoteMeta escapes regex metacharacters in user-supplied search text.
func regexQuoteMeta(text string) string {
	var b strings.Builder
	for _, r := range text {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
