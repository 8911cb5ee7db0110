package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Table names
const (
	TablePackages   = "insurance_packages"
	TableQuotations = "insurance_quotations"
	TableOrders     = "insurance_orders"
	TableClaims     = "insurance_claims"
	TableReferences = "insurance_references" // one item per issued reference code
)

// GSI names. gateway_token and policy_number are sparse: orders without them
// do not appear in the index.
const (
	GSIPackagesSlug       = "slug-index"
	GSIOrdersGatewayToken = "gateway_token-index"
	GSIOrdersPolicyNumber = "policy_number-index"
	GSIOrdersOwner        = "owner-created_at-index"
	GSIClaimsPolicyNumber = "policy_number-index"
)

// EnsureTables creates all required tables if they don't exist.
func EnsureTables(ctx context.Context, client *dynamodb.Client, log *slog.Logger) error {
	tables := []struct {
		name   string
		create func(context.Context, *dynamodb.Client) error
	}{
		{TablePackages, createPackagesTable},
		{TableQuotations, createQuotationsTable},
		{TableOrders, createOrdersTable},
		{TableClaims, createClaimsTable},
		{TableReferences, createReferencesTable},
	}

	for _, t := range tables {
		exists, err := tableExists(ctx, client, t.name)
		if err != nil {
			return fmt.Errorf("check table %s: %w", t.name, err)
		}
		if exists {
			log.Info("table exists", "table", t.name)
			continue
		}

		log.Info("creating table", "table", t.name)
		if err := t.create(ctx, client); err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
		log.Info("table created", "table", t.name)
	}

	return nil
}

func tableExists(ctx context.Context, client *dynamodb.Client, name string) (bool, error) {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func hashKey(name string) []types.KeySchemaElement {
	return []types.KeySchemaElement{{AttributeName: aws.String(name), KeyType: types.KeyTypeHash}}
}

func stringAttr(name string) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeS}
}

func gsi(name string, keys ...types.KeySchemaElement) types.GlobalSecondaryIndex {
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(name),
		KeySchema:  keys,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createPackagesTable(ctx context.Context, client *dynamodb.Client) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(TablePackages),
		KeySchema:            hashKey("id"),
		AttributeDefinitions: []types.AttributeDefinition{stringAttr("id"), stringAttr("slug")},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(GSIPackagesSlug, hashKey("slug")...),
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	return err
}

func createQuotationsTable(ctx context.Context, client *dynamodb.Client) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(TableQuotations),
		KeySchema:            hashKey("id"),
		AttributeDefinitions: []types.AttributeDefinition{stringAttr("id")},
		BillingMode:          types.BillingModePayPerRequest,
	})
	return err
}

func createOrdersTable(ctx context.Context, client *dynamodb.Client) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(TableOrders),
		KeySchema: hashKey("id"),
		AttributeDefinitions: []types.AttributeDefinition{
			stringAttr("id"),
			stringAttr("gateway_token"),
			stringAttr("policy_number"),
			stringAttr("owner"),
			stringAttr("created_at"),
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(GSIOrdersGatewayToken, hashKey("gateway_token")...),
			gsi(GSIOrdersPolicyNumber, hashKey("policy_number")...),
			gsi(GSIOrdersOwner,
				types.KeySchemaElement{AttributeName: aws.String("owner"), KeyType: types.KeyTypeHash},
				types.KeySchemaElement{AttributeName: aws.String("created_at"), KeyType: types.KeyTypeRange},
			),
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	return err
}

func createClaimsTable(ctx context.Context, client *dynamodb.Client) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(TableClaims),
		KeySchema:            hashKey("id"),
		AttributeDefinitions: []types.AttributeDefinition{stringAttr("id"), stringAttr("policy_number")},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(GSIClaimsPolicyNumber, hashKey("policy_number")...),
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	return err
}

func createReferencesTable(ctx context.Context, client *dynamodb.Client) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(TableReferences),
		KeySchema:            hashKey("reference"),
		AttributeDefinitions: []types.AttributeDefinition{stringAttr("reference")},
		BillingMode:          types.BillingModePayPerRequest,
	})
	return err
}
