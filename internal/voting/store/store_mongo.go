package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"asamblea/internal/voting/models"
	"asamblea/pkg/platform/sentinel"
)

const (
	questionsCollection = "questions"
	maxExecuteAttempts  = 3
)

// MongoQuestionStore keeps each question as one document with its answers
// embedded under answers.<property key>.
type MongoQuestionStore struct {
	coll *mongo.Collection
}

func NewMongo(db *mongo.Database) *MongoQuestionStore {
	return &MongoQuestionStore{coll: db.Collection(questionsCollection)}
}

// EnsureIndexes creates the assembly lookup index.
func (s *MongoQuestionStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "assembly_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create question indexes: %w", err)
	}
	return nil
}

func (s *MongoQuestionStore) Create(ctx context.Context, q *models.Question) error {
	doc := *q
	if doc.Answers == nil {
		doc.Answers = map[string]models.Answer{}
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *MongoQuestionStore) FindByID(ctx context.Context, id string) (*models.Question, error) {
	var q models.Question
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&q); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find question: %w", err)
	}
	normalize(&q)
	return &q, nil
}

func (s *MongoQuestionStore) ListByAssembly(ctx context.Context, assemblyID string) ([]*models.Question, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"assembly_id": assemblyID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	var qs []models.Question
	if err := cur.All(ctx, &qs); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	out := make([]*models.Question, 0, len(qs))
	for i := range qs {
		normalize(&qs[i])
		out = append(out, &qs[i])
	}
	return out, nil
}

// Execute reads, mutates and writes back with a compare-and-set on status
// and updated_at, retrying when a concurrent writer got there first.
func (s *MongoQuestionStore) Execute(ctx context.Context, id string, mutate func(*models.Question) error) (*models.Question, error) {
	for range maxExecuteAttempts {
		q, err := s.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		prevStatus, prevUpdated := q.Status, q.UpdatedAt
		if err := mutate(q); err != nil {
			return nil, err
		}
		res, err := s.coll.UpdateOne(ctx,
			bson.M{"_id": id, "status": prevStatus, "updated_at": prevUpdated},
			bson.M{"$set": bson.M{
				"title":      q.Title,
				"options":    q.Options,
				"status":     q.Status,
				"updated_at": q.UpdatedAt,
			}},
		)
		if err != nil {
			return nil, fmt.Errorf("update question: %w", err)
		}
		if res.MatchedCount == 1 {
			return q, nil
		}
	}
	return nil, fmt.Errorf("update question %s: %w", id, sentinel.ErrConflict)
}

// SubmitAnswers sets every answer in a single document update filtered on
// status LIVE and on every key being absent, so the batch lands entirely or
// not at all and never overwrites an answer.
func (s *MongoQuestionStore) SubmitAnswers(ctx context.Context, id string, answers map[string]models.Answer, now time.Time) error {
	filter := bson.M{"_id": id, "status": models.StatusLive}
	set := bson.M{"updated_at": now}
	for key, a := range answers {
		if key == "" || strings.ContainsAny(key, ".$") {
			return fmt.Errorf("property key %q cannot be stored", key)
		}
		filter["answers."+key] = bson.M{"$exists": false}
		set["answers."+key] = a
	}
	res, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("write answers: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	var current struct {
		Status models.Status `bson:"status"`
	}
	err = s.coll.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"status": 1})).Decode(&current)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("check question: %w", err)
	}
	if current.Status != models.StatusLive {
		return sentinel.ErrInvalidState
	}
	return fmt.Errorf("question %s: answer already recorded: %w", id, sentinel.ErrConflict)
}

func normalize(q *models.Question) {
	if q.Answers == nil {
		q.Answers = map[string]models.Answer{}
	}
	if q.Options == nil {
		q.Options = []string{}
	}
	q.CreatedAt = q.CreatedAt.UTC()
	q.UpdatedAt = q.UpdatedAt.UTC()
}
