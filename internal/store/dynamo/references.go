package dynamo

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	maxTransactAttempts = 5
	transactBackoff     = 25 * time.Millisecond
)

type transactWriter interface {
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// transactWrite repeats the call while DynamoDB cancels it because another
// transaction touched one of the same items. Condition failures are returned
// on the first attempt.
func transactWrite(ctx context.Context, client transactWriter, in *dynamodb.TransactWriteItemsInput) error {
	backoff := transactBackoff
	for attempt := 1; ; attempt++ {
		_, err := client.TransactWriteItems(ctx, in)
		if err == nil || attempt == maxTransactAttempts || !isTransactionConflict(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// reservePut claims a reference code inside a TransactWriteItems call.
func reservePut(reference, kind string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(TableReferences),
			Item: map[string]types.AttributeValue{
				"reference": &types.AttributeValueMemberS{Value: reference},
				"kind":      &types.AttributeValueMemberS{Value: kind},
			},
			ConditionExpression: aws.String("attribute_not_exists(#ref)"),
			ExpressionAttributeNames: map[string]string{
				"#ref": "reference",
			},
		},
	}
}

// canceledAt reports whether the transaction failed because the condition of
// the item at index did not hold.
func canceledAt(err error, index int) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	if index >= len(tce.CancellationReasons) {
		return false
	}
	return aws.ToString(tce.CancellationReasons[index].Code) == "ConditionalCheckFailed"
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// isTransactionConflict reports a cancellation caused by a concurrent
// transaction rather than by one of our conditions.
func isTransactionConflict(err error) bool {
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, r := range tce.CancellationReasons {
			if aws.ToString(r.Code) == "TransactionConflict" {
				return true
			}
		}
		return false
	}
	var tc *types.TransactionConflictException
	return errors.As(err, &tc)
}
