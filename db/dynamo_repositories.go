package db

import (
	"context"
	"fmt"
	"time"

	"cardbook/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ConnectToDynamo builds a DynamoDB client from the default AWS credential
// chain. A non-empty endpoint points the client at a local emulator.
func ConnectToDynamo(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return client, nil
}

// DynamoContactListRepository implements the ContactListRepository interface
// for DynamoDB. The table is keyed by the string attribute owner_id.
type DynamoContactListRepository struct {
	client *dynamodb.Client
	table  string
}

// NewDynamoContactListRepository creates a new DynamoContactListRepository
func NewDynamoContactListRepository(client *dynamodb.Client, table string) *DynamoContactListRepository {
	return &DynamoContactListRepository{client: client, table: table}
}

// Close is a no-op; the SDK client holds no connections that need releasing.
func (r *DynamoContactListRepository) Close() error {
	return nil
}

// Get loads the owner's contact list item with a strongly consistent read.
func (r *DynamoContactListRepository) Get(ctx context.Context, ownerID string) (*models.ContactList, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"owner_id": &types.AttributeValueMemberS{Value: ownerID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("error getting contact list: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var list models.ContactList
	if err := attributevalue.UnmarshalMap(out.Item, &list); err != nil {
		return nil, fmt.Errorf("error decoding contact list item: %w", err)
	}
	return &list, nil
}

// Set writes the whole contact list item.
func (r *DynamoContactListRepository) Set(ctx context.Context, list *models.ContactList) error {
	list.UpdatedAt = time.Now()

	item, err := attributevalue.MarshalMap(list)
	if err != nil {
		return fmt.Errorf("error encoding contact list item: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("error putting contact list: %w", err)
	}
	return nil
}
