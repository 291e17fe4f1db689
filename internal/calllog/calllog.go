package calllog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"nexa-backend/internal/transcript"
)

// Entry is one raw-transcript record in the CallLogs collection, keyed by
// (phone, transcript hash). That pair is the system's sole deduplication key:
// a second webhook delivering byte-identical transcript text for the same
// number is a no-op.
//
// Entries are created in processing state and transition once to processed;
// they are never deleted. An entry stuck in processing marks a crash between
// the history append and the status flip, recoverable by manual reprocessing.
type Entry struct {
	Phone          string               `bson:"phone" json:"phone"`
	TranscriptHash string               `bson:"transcript_hash" json:"transcript_hash"`
	Transcript     string               `bson:"transcript" json:"transcript"`
	CallSummary    string               `bson:"call_summary" json:"call_summary"`
	Messages       []transcript.Message `bson:"messages,omitempty" json:"messages,omitempty"`
	Processed      bool                 `bson:"processed" json:"processed"`
	Timestamp      time.Time            `bson:"timestamp" json:"timestamp"`
	LastUpdated    time.Time            `bson:"last_updated" json:"last_updated"`
}

// ProcessingSummary is the placeholder summary until extraction completes.
const ProcessingSummary = "Processing..."

var (
	ErrNotFound  = errors.New("calllog: entry not found")
	ErrDuplicate = errors.New("calllog: entry already exists for phone and hash")
)

// Repository is the persistence contract for call log entries. Insert must be
// atomic with respect to the (phone, hash) unique index so that concurrent
// deliveries of the same payload resolve to exactly one entry; it doubles as
// the dedup check, so there is no separate lookup operation.
type Repository interface {
	Insert(ctx context.Context, e Entry) error
	MarkProcessed(ctx context.Context, phone, hash, summary string, msgs []transcript.Message, now time.Time) error
}

// MongoRepo stores entries in the CallLogs collection.
type MongoRepo struct {
	coll *mongo.Collection
}

func NewMongoRepo(coll *mongo.Collection) *MongoRepo {
	return &MongoRepo{coll: coll}
}

func (r *MongoRepo) Insert(ctx context.Context, e Entry) error {
	_, err := r.coll.InsertOne(ctx, e)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("calllog: insert: %w", err)
	}
	return nil
}

func (r *MongoRepo) MarkProcessed(ctx context.Context, phone, hash, summary string, msgs []transcript.Message, now time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"phone": phone, "transcript_hash": hash},
		bson.M{"$set": bson.M{
			"call_summary": summary,
			"messages":     msgs,
			"processed":    true,
			"last_updated": now,
		}},
	)
	if err != nil {
		return fmt.Errorf("calllog: mark processed: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
