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

type OrderRepoMongo struct {
	db         *mongodrv.Database
	coll       *mongodrv.Collection
	quotations *mongodrv.Collection
	opTimeout  time.Duration
}

func NewOrderRepo(db *mongodrv.Database, opTimeout time.Duration) *OrderRepoMongo {
	return &OrderRepoMongo{
		db:         db,
		coll:       db.Collection(ColOrders),
		quotations: db.Collection(ColQuotations),
		opTimeout:  opTimeout,
	}
}

func (repo *OrderRepoMongo) CreateFromQuotation(ctx context.Context, o core.Order) error {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	return withTx(ctx, repo.db, func(sc mongodrv.SessionContext) error {
		if err := markQuotationOrdered(sc, repo.quotations, o.QuotationID, o.CreatedAt); err != nil {
			return err
		}
		if _, err := repo.coll.InsertOne(sc, toOrderDoc(o)); err != nil {
			switch duplicateKeyIndex(err) {
			case "":
				return fmt.Errorf("orders.insert: %w", err)
			case idxOrdersReference:
				return core.ErrDuplicateReference
			case idxOrdersQuotation:
				return core.ErrQuotationOrdered
			default:
				return core.ErrConflict
			}
		}
		return nil
	})
}

func (repo *OrderRepoMongo) Get(ctx context.Context, id string) (core.Order, error) {
	return repo.findOne(ctx, bson.M{"_id": id}, "orders.findOne")
}

func (repo *OrderRepoMongo) GetByGatewayToken(ctx context.Context, token string) (core.Order, error) {
	if token == "" {
		return core.Order{}, core.ErrOrderNotFound
	}
	return repo.findOne(ctx, bson.M{"gateway_token": token}, "orders.findByToken")
}

func (repo *OrderRepoMongo) GetByPolicyNumber(ctx context.Context, number string) (core.Order, error) {
	if number == "" {
		return core.Order{}, core.ErrOrderNotFound
	}
	return repo.findOne(ctx, bson.M{"policy_number": number}, "orders.findByPolicy")
}

func (repo *OrderRepoMongo) findOne(ctx context.Context, filter bson.M, op string) (core.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	var doc OrderDoc
	err := repo.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.Order{}, core.ErrOrderNotFound
		}
		return core.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	return fromOrderDoc(doc), nil
}

func (repo *OrderRepoMongo) ListByOwner(ctx context.Context, owner string) ([]core.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	cur, err := repo.coll.Find(ctx, bson.M{"owner": owner},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("orders.find: %w", err)
	}
	defer cur.Close(ctx)

	orders := []core.Order{}
	for cur.Next(ctx) {
		var doc OrderDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("orders.decode: %w", err)
		}
		orders = append(orders, fromOrderDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("orders.cursor: %w", err)
	}
	return orders, nil
}

func (repo *OrderRepoMongo) AssignGatewayToken(ctx context.Context, id, token, gatewayName string, at time.Time) (core.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	var doc OrderDoc
	err := repo.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "gateway_token": ""},
		bson.M{"$set": bson.M{"gateway_token": token, "gateway_name": gatewayName, "updated_at": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	switch {
	case err == nil:
		return fromOrderDoc(doc), nil
	case errors.Is(err, mongodrv.ErrNoDocuments):
		// already assigned, or no such order
		return repo.Get(ctx, id)
	case duplicateKeyIndex(err) == idxOrdersGatewayToken:
		return core.Order{}, core.ErrDuplicateGatewayToken
	default:
		return core.Order{}, fmt.Errorf("orders.assignToken: %w", err)
	}
}

// ApplyGatewayResult first tries the issuance update guarded on an empty
// policy_number. When that matches nothing the gateway fields are overwritten
// with a pipeline update that never moves a completed order back.
func (repo *OrderRepoMongo) ApplyGatewayResult(ctx context.Context, token string, res core.GatewayResult, issue core.PolicyIssuance) (core.Order, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	if token == "" {
		return core.Order{}, false, core.ErrOrderNotFound
	}
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)

	if res.Complete && issue.PolicyNumber != "" {
		var doc OrderDoc
		err := repo.coll.FindOneAndUpdate(ctx,
			bson.M{"gateway_token": token, "policy_number": ""},
			bson.M{"$set": bson.M{
				"gateway_name":      res.GatewayName,
				"gateway_status":    res.GatewayStatus,
				"gateway_response":  res.GatewayResponse,
				"payment_reference": res.PaymentReference,
				"status":            string(core.OrderStatusCompleted),
				"policy_number":     issue.PolicyNumber,
				"policy_start_date": issue.StartDate,
				"policy_end_date":   issue.EndDate,
				"updated_at":        res.At,
			}},
			after,
		).Decode(&doc)
		if err == nil {
			return fromOrderDoc(doc), true, nil
		}
		if !errors.Is(err, mongodrv.ErrNoDocuments) {
			if duplicateKeyIndex(err) == idxOrdersPolicyNumber {
				return core.Order{}, false, core.ErrDuplicatePolicyNumber
			}
			return core.Order{}, false, fmt.Errorf("orders.issue: %w", err)
		}
	}

	status := any(string(core.OrderStatusCompleted))
	if !res.Complete {
		status = bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{"$status", string(core.OrderStatusCompleted)}},
			string(core.OrderStatusCompleted),
			string(core.OrderStatusRejected),
		}}
	}
	pipeline := mongodrv.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "gateway_name", Value: literal(res.GatewayName)},
			{Key: "gateway_status", Value: literal(res.GatewayStatus)},
			{Key: "gateway_response", Value: literal(res.GatewayResponse)},
			{Key: "payment_reference", Value: literal(res.PaymentReference)},
			{Key: "status", Value: status},
			{Key: "updated_at", Value: res.At},
		}}},
	}

	var doc OrderDoc
	err := repo.coll.FindOneAndUpdate(ctx, bson.M{"gateway_token": token}, pipeline, after).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.Order{}, false, core.ErrOrderNotFound
		}
		return core.Order{}, false, fmt.Errorf("orders.applyGateway: %w", err)
	}
	return fromOrderDoc(doc), false, nil
}

// literal keeps caller strings starting with "$" from being read as field paths
// inside an aggregation pipeline.
func literal(s string) bson.M {
	return bson.M{"$literal": s}
}
