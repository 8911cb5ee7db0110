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

type OrderRepo struct {
	client    *dynamodb.Client
	opTimeout time.Duration
}

func NewOrderRepo(client *dynamodb.Client, opTimeout time.Duration) *OrderRepo {
	return &OrderRepo{client: client, opTimeout: opTimeout}
}

func orderKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

// CreateFromQuotation flips the quotation, writes the order and reserves its
// reference in one TransactWriteItems call.
func (r *OrderRepo) CreateFromQuotation(ctx context.Context, o core.Order) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	av, err := attributevalue.MarshalMap(orderItemFromCore(o))
	if err != nil {
		return fmt.Errorf("orders.marshal: %w", err)
	}
	flip, err := markOrderedExpr(o.CreatedAt)
	if err != nil {
		return err
	}

	err = transactWrite(ctx, r.client, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName: aws.String(TableQuotations),
				Key: map[string]types.AttributeValue{
					"id": &types.AttributeValueMemberS{Value: o.QuotationID},
				},
				UpdateExpression:          flip.Update(),
				ConditionExpression:       flip.Condition(),
				ExpressionAttributeNames:  flip.Names(),
				ExpressionAttributeValues: flip.Values(),
			}},
			{Put: &types.Put{
				TableName:           aws.String(TableOrders),
				Item:                av,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			}},
			reservePut(o.Reference, "order"),
		},
	})
	if err != nil {
		switch {
		case canceledAt(err, 0):
			if _, getErr := NewQuotationRepo(r.client, r.opTimeout).Get(ctx, o.QuotationID); errors.Is(getErr, core.ErrNotFound) {
				return core.ErrQuotationNotFound
			}
			return core.ErrQuotationOrdered
		case canceledAt(err, 2):
			return core.ErrDuplicateReference
		case canceledAt(err, 1):
			return core.ErrConflict
		}
		return fmt.Errorf("orders.transactWrite: %w", err)
	}
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id string) (core.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(TableOrders),
		Key:            orderKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return core.Order{}, fmt.Errorf("orders.getItem: %w", err)
	}
	if out.Item == nil {
		return core.Order{}, core.ErrOrderNotFound
	}

	var item OrderItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return core.Order{}, fmt.Errorf("orders.unmarshal: %w", err)
	}
	return item.ToCore(), nil
}

func (r *OrderRepo) GetByGatewayToken(ctx context.Context, token string) (core.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	return r.queryOne(ctx, GSIOrdersGatewayToken, "gateway_token", token)
}

func (r *OrderRepo) GetByPolicyNumber(ctx context.Context, number string) (core.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	return r.queryOne(ctx, GSIOrdersPolicyNumber, "policy_number", number)
}

// queryOne resolves an order through a sparse GSI and re-reads it by key so
// the caller sees a consistent item.
func (r *OrderRepo) queryOne(ctx context.Context, index, attr, value string) (core.Order, error) {
	if value == "" {
		return core.Order{}, core.ErrOrderNotFound
	}
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(TableOrders),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String("#k = :v"),
		ExpressionAttributeNames: map[string]string{
			"#k": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return core.Order{}, fmt.Errorf("orders.query: %w", err)
	}
	if len(out.Items) == 0 {
		return core.Order{}, core.ErrOrderNotFound
	}

	var item OrderItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return core.Order{}, fmt.Errorf("orders.unmarshal: %w", err)
	}
	return r.Get(ctx, item.ID)
}

func (r *OrderRepo) ListByOwner(ctx context.Context, owner string) ([]core.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	orders := []core.Order{}
	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(TableOrders),
		IndexName:              aws.String(GSIOrdersOwner),
		KeyConditionExpression: aws.String("#owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
		ScanIndexForward: aws.Bool(false),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("orders.query: %w", err)
		}
		var items []OrderItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("orders.unmarshal: %w", err)
		}
		for _, item := range items {
			orders = append(orders, item.ToCore())
		}
	}
	return orders, nil
}

func (r *OrderRepo) AssignGatewayToken(ctx context.Context, id, token, gatewayName string, at time.Time) (core.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	update := expression.Set(expression.Name("gateway_token"), expression.Value(token)).
		Set(expression.Name("gateway_name"), expression.Value(gatewayName)).
		Set(expression.Name("updated_at"), expression.Value(formatTime(at)))
	cond := expression.AttributeExists(expression.Name("id")).
		And(expression.AttributeNotExists(expression.Name("gateway_token")))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return core.Order{}, fmt.Errorf("orders.buildExpr: %w", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(TableOrders),
		Key:                       orderKey(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			// already assigned, or no such order
			return r.Get(ctx, id)
		}
		return core.Order{}, fmt.Errorf("orders.assignToken: %w", err)
	}
	return unmarshalOrder(out.Attributes)
}

// ApplyGatewayResult issues with an UpdateItem conditioned on the policy number
// being absent. A lost race, or a result that does not issue, falls back to
// overwriting the gateway fields; the status only moves to rejected while the
// order is not completed.
func (r *OrderRepo) ApplyGatewayResult(ctx context.Context, token string, res core.GatewayResult, issue core.PolicyIssuance) (core.Order, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	current, err := r.GetByGatewayToken(ctx, token)
	if err != nil {
		return core.Order{}, false, err
	}

	// UpdateBuilder shares its operation map between copies; build a fresh one per call.
	gateway := func() expression.UpdateBuilder {
		return expression.Set(expression.Name("gateway_name"), expression.Value(res.GatewayName)).
			Set(expression.Name("gateway_status"), expression.Value(res.GatewayStatus)).
			Set(expression.Name("gateway_response"), expression.Value(res.GatewayResponse)).
			Set(expression.Name("payment_reference"), expression.Value(res.PaymentReference)).
			Set(expression.Name("updated_at"), expression.Value(formatTime(res.At)))
	}
	tokenMatches := expression.Name("gateway_token").Equal(expression.Value(token))

	if res.Complete && issue.PolicyNumber != "" {
		update := gateway().
			Set(expression.Name("status"), expression.Value(string(core.OrderStatusCompleted))).
			Set(expression.Name("policy_number"), expression.Value(issue.PolicyNumber)).
			Set(expression.Name("policy_start_date"), expression.Value(formatTime(issue.StartDate))).
			Set(expression.Name("policy_end_date"), expression.Value(formatTime(issue.EndDate)))
		cond := tokenMatches.And(expression.AttributeNotExists(expression.Name("policy_number")))

		o, err := r.update(ctx, current.ID, update, &cond)
		if err == nil {
			return o, true, nil
		}
		if !isConditionFailed(err) {
			return core.Order{}, false, err
		}
	}

	if res.Complete {
		update := gateway().Set(expression.Name("status"), expression.Value(string(core.OrderStatusCompleted)))
		o, err := r.update(ctx, current.ID, update, &tokenMatches)
		return o, false, r.notFoundOnCondition(err)
	}

	reject := gateway().Set(expression.Name("status"), expression.Value(string(core.OrderStatusRejected)))
	notCompleted := tokenMatches.And(expression.Name("status").NotEqual(expression.Value(string(core.OrderStatusCompleted))))
	o, err := r.update(ctx, current.ID, reject, &notCompleted)
	if err == nil {
		return o, false, nil
	}
	if !isConditionFailed(err) {
		return core.Order{}, false, err
	}
	// completed orders keep their status
	o, err = r.update(ctx, current.ID, gateway(), &tokenMatches)
	return o, false, r.notFoundOnCondition(err)
}

func (r *OrderRepo) update(ctx context.Context, id string, update expression.UpdateBuilder, cond *expression.ConditionBuilder) (core.Order, error) {
	b := expression.NewBuilder().WithUpdate(update)
	if cond != nil {
		b = b.WithCondition(*cond)
	}
	expr, err := b.Build()
	if err != nil {
		return core.Order{}, fmt.Errorf("orders.buildExpr: %w", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(TableOrders),
		Key:                       orderKey(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return core.Order{}, err
		}
		return core.Order{}, fmt.Errorf("orders.updateItem: %w", err)
	}
	return unmarshalOrder(out.Attributes)
}

func (r *OrderRepo) notFoundOnCondition(err error) error {
	if err != nil && isConditionFailed(err) {
		return core.ErrOrderNotFound
	}
	return err
}

func unmarshalOrder(av map[string]types.AttributeValue) (core.Order, error) {
	var item OrderItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return core.Order{}, fmt.Errorf("orders.unmarshal: %w", err)
	}
	return item.ToCore(), nil
}
