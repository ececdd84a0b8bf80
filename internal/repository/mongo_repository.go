package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finboard/internal/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const transactionsCollection = "transactions"

// transactionRecord is the persisted document shape. Amounts are stored as
// Decimal128 so totals read back exactly.
type transactionRecord struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	UserID      string               `bson:"user_id"`
	Amount      primitive.Decimal128 `bson:"amount"`
	Category    string               `bson:"category"`
	Description string               `bson:"description"`
	Date        time.Time            `bson:"date"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

type MongoTransactionStore struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func NewMongoTransactionStore(db *mongo.Database, logger *zap.Logger) *MongoTransactionStore {
	return &MongoTransactionStore{
		coll:   db.Collection(transactionsCollection),
		logger: logger,
	}
}

// EnsureIndexes creates the per-user listing index.
func (r *MongoTransactionStore) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create transactions index: %w", err)
	}
	return nil
}

func (r *MongoTransactionStore) Create(ctx context.Context, userID string, fields models.TransactionFields) (string, error) {
	now := time.Now().UTC()
	rec, err := newTransactionRecord(userID, fields, now)
	if err != nil {
		return "", err
	}
	rec.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	r.logger.Debug("Transaction inserted", zap.String("user_id", userID), zap.String("id", rec.ID.Hex()))
	return rec.ID.Hex(), nil
}

func (r *MongoTransactionStore) Get(ctx context.Context, userID, id string) (*models.Transaction, error) {
	filter, ok := ownedFilter(userID, id)
	if !ok {
		return nil, ErrNotFound
	}

	var rec transactionRecord
	if err := r.coll.FindOne(ctx, filter).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find transaction: %w", err)
	}

	tx, err := rec.toModel()
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *MongoTransactionStore) List(ctx context.Context, userID string) ([]models.Transaction, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}

	var recs []transactionRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	transactions := make([]models.Transaction, 0, len(recs))
	for _, rec := range recs {
		tx, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

func (r *MongoTransactionStore) Update(ctx context.Context, userID, id string, fields models.TransactionFields) error {
	filter, ok := ownedFilter(userID, id)
	if !ok {
		return ErrNotFound
	}
	set, err := updateDocument(fields, time.Now().UTC())
	if err != nil {
		return err
	}

	res, err := r.coll.UpdateOne(ctx, filter, set)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoTransactionStore) Delete(ctx context.Context, userID, id string) error {
	filter, ok := ownedFilter(userID, id)
	if !ok {
		return ErrNotFound
	}

	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ownedFilter matches a single document by id and owner. ok is false when id
// cannot be an ObjectID.
func ownedFilter(userID, id string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "user_id": userID}, true
}

func newTransactionRecord(userID string, f models.TransactionFields, now time.Time) (transactionRecord, error) {
	amount, err := primitive.ParseDecimal128(f.Amount.String())
	if err != nil {
		return transactionRecord{}, fmt.Errorf("encode amount %s: %w", f.Amount, err)
	}
	return transactionRecord{
		UserID:      userID,
		Amount:      amount,
		Category:    string(f.Category),
		Description: f.Description,
		Date:        f.Date.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func updateDocument(f models.TransactionFields, now time.Time) (bson.M, error) {
	amount, err := primitive.ParseDecimal128(f.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("encode amount %s: %w", f.Amount, err)
	}
	return bson.M{"$set": bson.M{
		"amount":      amount,
		"category":    string(f.Category),
		"description": f.Description,
		"date":        f.Date.UTC(),
		"updated_at":  now,
	}}, nil
}

func (rec transactionRecord) toModel() (models.Transaction, error) {
	amount, err := decimal.NewFromString(rec.Amount.String())
	if err != nil {
		return models.Transaction{}, fmt.Errorf("decode amount of %s: %w", rec.ID.Hex(), err)
	}
	return models.Transaction{
		ID:          rec.ID.Hex(),
		UserID:      rec.UserID,
		Amount:      amount,
		Category:    models.TransactionCategory(rec.Category),
		Description: rec.Description,
		Date:        rec.Date,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}, nil
}
