package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/transaction"
	transactionpkg "github.com/frahmantamala/mollie-checkout/internal/transaction"
)

const orderIDIndex = "order_id-index"

// API is the part of the DynamoDB client the repository uses.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

type transactionItem struct {
	Reference string            `dynamodbav:"reference"`
	OrderID   int64             `dynamodbav:"order_id"`
	Type      string            `dynamodbav:"type"`
	Driver    string            `dynamodbav:"driver"`
	Status    string            `dynamodbav:"status"`
	Amount    int64             `dynamodbav:"amount"`
	Currency  string            `dynamodbav:"currency"`
	CardType  string            `dynamodbav:"card_type,omitempty"`
	Meta      map[string]string `dynamodbav:"meta,omitempty"`
	CreatedAt string            `dynamodbav:"created_at"`
	UpdatedAt string            `dynamodbav:"updated_at"`
}

// TransactionRepository stores the ledger in DynamoDB.
//
// Table requirements:
//   - PK: reference (string)
//   - GSI: order_id-index (PK: order_id, number)
type TransactionRepository struct {
	ddb       API
	tableName string
	now       func() time.Time
}

var _ transactionpkg.RepositoryAPI = (*TransactionRepository)(nil)

func NewTransactionRepository(ddb API, tableName string) *TransactionRepository {
	return &TransactionRepository{
		ddb:       ddb,
		tableName: tableName,
		now:       time.Now,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	now := r.now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	av, err := attributevalue.MarshalMap(toItem(tx))
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#ref)"),
		ExpressionAttributeNames: map[string]string{
			"#ref": "reference",
		},
	})
	if isConditionFailed(err) {
		return transactionpkg.ErrDuplicateReference
	}
	return err
}

func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"reference": &types.AttributeValueMemberS{Value: reference},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, transactionpkg.ErrNotFound
	}

	var it transactionItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	return fromItem(it), nil
}

func (r *TransactionRepository) ListByOrderID(ctx context.Context, orderID int64) ([]*transaction.Transaction, error) {
	out, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(orderIDIndex),
		KeyConditionExpression: aws.String("order_id = :oid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":oid": &types.AttributeValueMemberN{Value: strconv.FormatInt(orderID, 10)},
		},
	})
	if err != nil {
		return nil, err
	}

	txs := make([]*transaction.Transaction, 0, len(out.Items))
	for _, raw := range out.Items {
		var it transactionItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, fmt.Errorf("unmarshal transaction: %w", err)
		}
		txs = append(txs, fromItem(it))
	}
	return txs, nil
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, reference, status string) error {
	_, err := r.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"reference": &types.AttributeValueMemberS{Value: reference},
		},
		ConditionExpression: aws.String("attribute_exists(#ref)"),
		UpdateExpression:    aws.String("SET #status = :status, updated_at = :updated"),
		ExpressionAttributeNames: map[string]string{
			"#ref":    "reference",
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":  &types.AttributeValueMemberS{Value: status},
			":updated": &types.AttributeValueMemberS{Value: r.now().UTC().Format(time.RFC3339Nano)},
		},
	})
	if isConditionFailed(err) {
		return transactionpkg.ErrNotFound
	}
	return err
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func toItem(tx *transaction.Transaction) transactionItem {
	return transactionItem{
		Reference: tx.Reference,
		OrderID:   tx.OrderID,
		Type:      tx.Type,
		Driver:    tx.Driver,
		Status:    tx.Status,
		Amount:    tx.Amount,
		Currency:  tx.Currency,
		CardType:  tx.CardType,
		Meta:      tx.Meta,
		CreatedAt: tx.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: tx.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func fromItem(it transactionItem) *transaction.Transaction {
	createdAt, _ := time.Parse(time.RFC3339Nano, it.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, it.UpdatedAt)
	return &transaction.Transaction{
		Reference: it.Reference,
		OrderID:   it.OrderID,
		Type:      it.Type,
		Driver:    it.Driver,
		Status:    it.Status,
		Amount:    it.Amount,
		Currency:  it.Currency,
		CardType:  it.CardType,
		Meta:      it.Meta,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}
