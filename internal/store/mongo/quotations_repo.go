package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
)

type QuotationRepoMongo struct {
	coll      *mongodrv.Collection
	opTimeout time.Duration
}

func NewQuotationRepo(db *mongodrv.Database, opTimeout time.Duration) *QuotationRepoMongo {
	return &QuotationRepoMongo{
		coll:      db.Collection(ColQuotations),
		opTimeout: opTimeout,
	}
}

func (repo *QuotationRepoMongo) Create(ctx context.Context, q core.Quotation) error {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	_, err := repo.coll.InsertOne(ctx, toQuotationDoc(q))
	if err != nil {
		switch duplicateKeyIndex(err) {
		case "":
			return fmt.Errorf("quotations.insert: %w", err)
		case idxQuotationsReference:
			return core.ErrDuplicateReference
		default:
			return core.ErrConflict
		}
	}
	return nil
}

func (repo *QuotationRepoMongo) Get(ctx context.Context, id string) (core.Quotation, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	var doc QuotationDoc
	err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.Quotation{}, core.ErrQuotationNotFound
		}
		return core.Quotation{}, fmt.Errorf("quotations.findOne: %w", err)
	}
	return fromQuotationDoc(doc), nil
}

func (repo *QuotationRepoMongo) MarkOrdered(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()
	return markQuotationOrdered(ctx, repo.coll, id, at)
}

// markQuotationOrdered flips pending to ordered; ctx may be a session context.
func markQuotationOrdered(ctx context.Context, coll *mongodrv.Collection, id string, at time.Time) error {
	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": string(core.QuotationStatusPending)},
		bson.M{"$set": bson.M{"status": string(core.QuotationStatusOrdered), "updated_at": at}},
	)
	if err != nil {
		return fmt.Errorf("quotations.markOrdered: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("quotations.count: %w", err)
	}
	if n == 0 {
		return core.ErrQuotationNotFound
	}
	return core.ErrQuotationOrdered
}
