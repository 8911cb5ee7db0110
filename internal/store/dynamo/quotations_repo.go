package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
)

type QuotationRepo struct {
	client    *dynamodb.Client
	opTimeout time.Duration
}

func NewQuotationRepo(client *dynamodb.Client, opTimeout time.Duration) *QuotationRepo {
	return &QuotationRepo{client: client, opTimeout: opTimeout}
}

// Create writes the quotation and reserves its reference in one transaction.
func (r *QuotationRepo) Create(ctx context.Context, q core.Quotation) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	av, err := attributevalue.MarshalMap(quotationItemFromCore(q))
	if err != nil {
		return fmt.Errorf("quotations.marshal: %w", err)
	}

	err = transactWrite(ctx, r.client, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(TableQuotations),
				Item:                av,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			}},
			reservePut(q.Reference, "quotation"),
		},
	})
	if err != nil {
		switch {
		case canceledAt(err, 1):
			return core.ErrDuplicateReference
		case canceledAt(err, 0):
			return core.ErrConflict
		}
		return fmt.Errorf("quotations.transactWrite: %w", err)
	}
	return nil
}

func (r *QuotationRepo) Get(ctx context.Context, id string) (core.Quotation, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(TableQuotations),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return core.Quotation{}, fmt.Errorf("quotations.getItem: %w", err)
	}
	if out.Item == nil {
		return core.Quotation{}, core.ErrQuotationNotFound
	}

	var item QuotationItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return core.Quotation{}, fmt.Errorf("quotations.unmarshal: %w", err)
	}
	return item.ToCore(), nil
}

func (r *QuotationRepo) MarkOrdered(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	expr, err := markOrderedExpr(at)
	if err != nil {
		return err
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(TableQuotations),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if ccf.Item == nil {
				return core.ErrQuotationNotFound
			}
			return core.ErrQuotationOrdered
		}
		return fmt.Errorf("quotations.updateItem: %w", err)
	}
	return nil
}

// markOrderedExpr flips status pending to ordered.
func markOrderedExpr(at time.Time) (expression.Expression, error) {
	update := expression.Set(expression.Name("status"), expression.Value(string(core.QuotationStatusOrdered))).
		Set(expression.Name("updated_at"), expression.Value(formatTime(at)))
	cond := expression.AttributeExists(expression.Name("id")).
		And(expression.Name("status").Equal(expression.Value(string(core.QuotationStatusPending))))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("quotations.buildExpr: %w", err)
	}
	return expr, nil
}
