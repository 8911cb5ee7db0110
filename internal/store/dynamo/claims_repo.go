package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
)

type ClaimRepo struct {
	client    *dynamodb.Client
	opTimeout time.Duration
	orders    *OrderRepo
}

func NewClaimRepo(client *dynamodb.Client, opTimeout time.Duration) *ClaimRepo {
	return &ClaimRepo{client: client, opTimeout: opTimeout, orders: NewOrderRepo(client, opTimeout)}
}

// File adds the claimed amount to used_coverage, writes the claim and reserves
// its reference in one TransactWriteItems call.
func (r *ClaimRepo) File(ctx context.Context, c core.Claim) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	o, err := r.orders.GetByPolicyNumber(ctx, c.PolicyNumber)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrPolicyNotFound
		}
		return err
	}

	av, err := attributevalue.MarshalMap(claimItemFromCore(c))
	if err != nil {
		return fmt.Errorf("claims.marshal: %w", err)
	}

	update := expression.Add(expression.Name("used_coverage"), expression.Value(num(c.ClaimedAmount))).
		Set(expression.Name("updated_at"), expression.Value(formatTime(c.CreatedAt)))
	cond := expression.Name("policy_number").Equal(expression.Value(c.PolicyNumber))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("claims.buildExpr: %w", err)
	}

	err = transactWrite(ctx, r.client, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName:                 aws.String(TableOrders),
				Key:                       orderKey(o.ID),
				UpdateExpression:          expr.Update(),
				ConditionExpression:       expr.Condition(),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
			}},
			{Put: &types.Put{
				TableName:           aws.String(TableClaims),
				Item:                av,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			}},
			reservePut(c.Reference, "claim"),
		},
	})
	if err != nil {
		switch {
		case canceledAt(err, 0):
			return core.ErrPolicyNotFound
		case canceledAt(err, 2):
			return core.ErrDuplicateReference
		case canceledAt(err, 1):
			return core.ErrConflict
		}
		return fmt.Errorf("claims.transactWrite: %w", err)
	}
	return nil
}

func (r *ClaimRepo) Get(ctx context.Context, id string) (core.Claim, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(TableClaims),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return core.Claim{}, fmt.Errorf("claims.getItem: %w", err)
	}
	if out.Item == nil {
		return core.Claim{}, core.ErrClaimNotFound
	}

	var item ClaimItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return core.Claim{}, fmt.Errorf("claims.unmarshal: %w", err)
	}
	return item.ToCore(), nil
}

// ListByPolicyNumbers runs one GSI query per policy number.
func (r *ClaimRepo) ListByPolicyNumbers(ctx context.Context, numbers []string) ([]core.Claim, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	claims := []core.Claim{}
	for _, n := range numbers {
		paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
			TableName:              aws.String(TableClaims),
			IndexName:              aws.String(GSIClaimsPolicyNumber),
			KeyConditionExpression: aws.String("policy_number = :pn"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pn": &types.AttributeValueMemberS{Value: n},
			},
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("claims.query: %w", err)
			}
			var items []ClaimItem
			if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
				return nil, fmt.Errorf("claims.unmarshal: %w", err)
			}
			for _, item := range items {
				claims = append(claims, item.ToCore())
			}
		}
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].CreatedAt.After(claims[j].CreatedAt) })
	return claims, nil
}
