package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/MrKriegler/insurance-lifecycle/internal/platform/ids"
	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PackageRepoMongo struct {
	coll      *mongodrv.Collection
	opTimeout time.Duration
}

func NewPackageRepo(db *mongodrv.Database, opTimeout time.Duration) *PackageRepoMongo {
	return &PackageRepoMongo{
		coll:      db.Collection(ColPackages),
		opTimeout: opTimeout,
	}
}

// Lists all packages ordered by slug. returns an empty slice if none found.
func (r *PackageRepoMongo) List(ctx context.Context) ([]core.Package, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "slug", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("packages.find: %w", err)
	}
	defer cur.Close(ctx)

	packages := []core.Package{}
	for cur.Next(ctx) {
		var doc PackageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("packages.decode: %w", err)
		}
		packages = append(packages, fromPackageDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("packages.cursor: %w", err)
	}
	return packages, nil
}

func (r *PackageRepoMongo) Get(ctx context.Context, id string) (core.Package, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	var doc PackageDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.Package{}, core.ErrPackageNotFound
		}
		return core.Package{}, fmt.Errorf("packages.findOne: %w", err)
	}
	return fromPackageDoc(doc), nil
}

// Upserts a package by Slug, keeping the stored _id of an existing package.
func (r *PackageRepoMongo) UpsertBySlug(ctx context.Context, p core.Package) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	doc := toPackageDoc(p)
	set := bson.M{
		"name":                   doc.Name,
		"category_id":            doc.CategoryID,
		"unit_size":              doc.UnitSize,
		"rate_per_unit":          doc.RatePerUnit,
		"min_coverage":           doc.MinCoverage,
		"vat_rate_percent":       doc.VATRatePercent,
		"discount_rate_percent":  doc.DiscountRatePercent,
		"partner_code":           doc.PartnerCode,
		"insurance_company_code": doc.InsuranceCompanyCode,
		"channel":                doc.Channel,
	}
	setOnInsert := bson.M{"_id": p.ID}
	if p.ID == "" {
		setOnInsert["_id"] = ids.New()
	}

	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"slug": p.Slug},
		bson.M{"$set": set, "$setOnInsert": setOnInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("packages.upsert: %w", err)
	}
	return nil
}
