package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Unique index names; duplicate key errors are mapped by name.
const (
	idxQuotationsReference = "quotations_reference_unique"
	idxOrdersReference     = "orders_reference_unique"
	idxOrdersQuotation     = "orders_quotation_id_unique"
	idxOrdersGatewayToken  = "orders_gateway_token_unique"
	idxOrdersPolicyNumber  = "orders_policy_number_unique"
	idxClaimsReference     = "claims_reference_unique"
)

func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := ensurePackagesIndexes(ctx, db); err != nil {
		return fmt.Errorf("ensure packages indexes: %w", err)
	}
	if err := ensureQuotationsIndexes(ctx, db); err != nil {
		return fmt.Errorf("ensure quotations indexes: %w", err)
	}
	if err := ensureOrdersIndexes(ctx, db); err != nil {
		return fmt.Errorf("ensure orders indexes: %w", err)
	}
	if err := ensureClaimsIndexes(ctx, db); err != nil {
		return fmt.Errorf("ensure claims indexes: %w", err)
	}
	return nil
}

func ensurePackagesIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(ColPackages)
	models := []mongo.IndexModel{
		newIndex("slug", 1, "packages_slug_unique", true),
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}

func ensureQuotationsIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(ColQuotations)
	models := []mongo.IndexModel{
		newIndex("reference", 1, idxQuotationsReference, true),
		newIndex("owner", 1, "quotations_owner", false),
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}

func ensureOrdersIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(ColOrders)
	models := []mongo.IndexModel{
		newIndex("reference", 1, idxOrdersReference, true),
		newIndex("quotation_id", 1, idxOrdersQuotation, true),
		newPartialUniqueIndex("gateway_token", idxOrdersGatewayToken),
		newPartialUniqueIndex("policy_number", idxOrdersPolicyNumber),
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("orders_owner_created_at"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}

func ensureClaimsIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(ColClaims)
	models := []mongo.IndexModel{
		newIndex("reference", 1, idxClaimsReference, true),
		newIndex("policy_number", 1, "claims_policy_number", false),
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}

func newIndex(field string, asc int32, name string, unique bool) mongo.IndexModel {
	opts := options.Index().SetName(name)
	if unique {
		opts = opts.SetUnique(true)
	}
	return mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: asc}},
		Options: opts,
	}
}

// newPartialUniqueIndex enforces uniqueness only for non-empty values.
func newPartialUniqueIndex(field, name string) mongo.IndexModel {
	return mongo.IndexModel{
		Keys: bson.D{{Key: field, Value: 1}},
		Options: options.Index().
			SetName(name).
			SetUnique(true).
			SetPartialFilterExpression(bson.M{field: bson.M{"$gt": ""}}),
	}
}
