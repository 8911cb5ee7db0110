package dynamo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/MrKriegler/insurance-lifecycle/internal/platform/ids"
)

type PackageRepo struct {
	client    *dynamodb.Client
	opTimeout time.Duration
}

func NewPackageRepo(client *dynamodb.Client, opTimeout time.Duration) *PackageRepo {
	return &PackageRepo{client: client, opTimeout: opTimeout}
}

// List scans the catalog; it is small and read rarely.
func (r *PackageRepo) List(ctx context.Context) ([]core.Package, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	var items []PackageItem
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(TablePackages),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("packages.scan: %w", err)
		}
		var batch []PackageItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("packages.unmarshal: %w", err)
		}
		items = append(items, batch...)
	}

	packages := make([]core.Package, len(items))
	for i, item := range items {
		packages[i] = item.ToCore()
	}
	sort.Slice(packages, func(i, j int) bool { return packages[i].Slug < packages[j].Slug })
	return packages, nil
}

func (r *PackageRepo) Get(ctx context.Context, id string) (core.Package, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(TablePackages),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return core.Package{}, fmt.Errorf("packages.getItem: %w", err)
	}
	if out.Item == nil {
		return core.Package{}, core.ErrPackageNotFound
	}

	var item PackageItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return core.Package{}, fmt.Errorf("packages.unmarshal: %w", err)
	}
	return item.ToCore(), nil
}

// UpsertBySlug keeps the id of an existing package with the same slug.
func (r *PackageRepo) UpsertBySlug(ctx context.Context, p core.Package) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(TablePackages),
		IndexName:              aws.String(GSIPackagesSlug),
		KeyConditionExpression: aws.String("slug = :slug"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":slug": &types.AttributeValueMemberS{Value: p.Slug},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("packages.query: %w", err)
	}
	if len(out.Items) > 0 {
		var existing PackageItem
		if err := attributevalue.UnmarshalMap(out.Items[0], &existing); err != nil {
			return fmt.Errorf("packages.unmarshal: %w", err)
		}
		p.ID = existing.ID
	}
	if p.ID == "" {
		p.ID = ids.New()
	}

	av, err := attributevalue.MarshalMap(packageItemFromCore(p))
	if err != nil {
		return fmt.Errorf("packages.marshal: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(TablePackages),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("packages.putItem: %w", err)
	}
	return nil
}
