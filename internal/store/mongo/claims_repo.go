package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ClaimRepoMongo struct {
	db        *mongodrv.Database
	coll      *mongodrv.Collection
	orders    *mongodrv.Collection
	opTimeout time.Duration
}

func NewClaimRepo(db *mongodrv.Database, opTimeout time.Duration) *ClaimRepoMongo {
	return &ClaimRepoMongo{
		db:        db,
		coll:      db.Collection(ColClaims),
		orders:    db.Collection(ColOrders),
		opTimeout: opTimeout,
	}
}

// File increments the order's used_coverage with $inc and inserts the claim in
// the same transaction.
func (repo *ClaimRepoMongo) File(ctx context.Context, c core.Claim) error {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	if c.PolicyNumber == "" {
		return core.ErrPolicyNotFound
	}

	return withTx(ctx, repo.db, func(sc mongodrv.SessionContext) error {
		res, err := repo.orders.UpdateOne(sc,
			bson.M{"policy_number": c.PolicyNumber},
			bson.M{
				"$inc": bson.M{"used_coverage": toDec(c.ClaimedAmount)},
				"$set": bson.M{"updated_at": c.CreatedAt},
			},
		)
		if err != nil {
			return fmt.Errorf("orders.incUsedCoverage: %w", err)
		}
		if res.MatchedCount == 0 {
			return core.ErrPolicyNotFound
		}

		if _, err := repo.coll.InsertOne(sc, toClaimDoc(c)); err != nil {
			switch duplicateKeyIndex(err) {
			case "":
				return fmt.Errorf("claims.insert: %w", err)
			case idxClaimsReference:
				return core.ErrDuplicateReference
			default:
				return core.ErrConflict
			}
		}
		return nil
	})
}

func (repo *ClaimRepoMongo) Get(ctx context.Context, id string) (core.Claim, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	var doc ClaimDoc
	err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.Claim{}, core.ErrClaimNotFound
		}
		return core.Claim{}, fmt.Errorf("claims.findOne: %w", err)
	}
	return fromClaimDoc(doc), nil
}

func (repo *ClaimRepoMongo) ListByPolicyNumbers(ctx context.Context, numbers []string) ([]core.Claim, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	claims := []core.Claim{}
	if len(numbers) == 0 {
		return claims, nil
	}

	cur, err := repo.coll.Find(ctx,
		bson.M{"policy_number": bson.M{"$in": numbers}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("claims.find: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc ClaimDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("claims.decode: %w", err)
		}
		claims = append(claims, fromClaimDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("claims.cursor: %w", err)
	}
	return claims, nil
}
