package runlog

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is a journal in the analysis_runs collection.
type Mongo struct {
	client *mongo.Client
	runs   *mongo.Collection
}

// OpenMongo connects and makes sure the session index exists.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	if database == "" {
		database = "fieldrisk"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	runs := client.Database(database).Collection("analysis_runs")

	if _, err := runs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "startedAt", Value: -1}},
	}); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo index: %w", err)
	}
	return &Mongo{client: client, runs: runs}, nil
}

// Save upserts by run id.
func (m *Mongo) Save(ctx context.Context, r Record) error {
	doc := bson.M{
		"_id":        r.RunID,
		"sessionId":  r.SessionID,
		"roiKind":    r.ROIKind,
		"roi":        string(r.ROI),
		"state":      r.State,
		"windowFrom": r.WindowFrom,
		"windowTo":   r.WindowTo,
		"startedAt":  r.StartedAt,
	}
	if r.Error != "" {
		doc["error"] = r.Error
	}
	if r.FinishedAt != nil {
		doc["finishedAt"] = *r.FinishedAt
	}
	_, err := m.runs.ReplaceOne(ctx, bson.M{"_id": r.RunID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.RunID, err)
	}
	return nil
}

type mongoRecord struct {
	RunID      string     `bson:"_id"`
	SessionID  string     `bson:"sessionId"`
	ROIKind    string     `bson:"roiKind"`
	ROI        string     `bson:"roi"`
	State      string     `bson:"state"`
	Error      string     `bson:"error,omitempty"`
	WindowFrom string     `bson:"windowFrom"`
	WindowTo   string     `bson:"windowTo"`
	StartedAt  time.Time  `bson:"startedAt"`
	FinishedAt *time.Time `bson:"finishedAt,omitempty"`
}

// List returns the newest records first. An empty sessionID lists every
// session.
func (m *Mongo) List(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	filter := bson.M{}
	if sessionID != "" {
		filter["sessionId"] = sessionID
	}
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}}).SetLimit(int64(limit))
	cur, err := m.runs.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer cur.Close(ctx)

	var out []Record
	for cur.Next(ctx) {
		var doc mongoRecord
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		r := Record{
			RunID:      doc.RunID,
			SessionID:  doc.SessionID,
			ROIKind:    doc.ROIKind,
			State:      doc.State,
			Error:      doc.Error,
			WindowFrom: doc.WindowFrom,
			WindowTo:   doc.WindowTo,
			StartedAt:  doc.StartedAt.UTC(),
		}
		if doc.ROI != "" {
			r.ROI = []byte(doc.ROI)
		}
		if doc.FinishedAt != nil {
			t := doc.FinishedAt.UTC()
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	return out, cur.Err()
}

func (m *Mongo) Close(ctx context.Context) error { return m.client.Disconnect(ctx) }
