package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"WhereAmI/internal/domain"
	"WhereAmI/internal/ports"
)

// DynamoMetrics writes metrics records as DynamoDB items.
type DynamoMetrics struct {
	dynamoSvc dynamodbiface.DynamoDBAPI
	table     string
}

var _ ports.MetricsRecorder = (*DynamoMetrics)(nil)

// NewDynamoMetrics writes into table, e.g. "youareheremetrics-prod".
func NewDynamoMetrics(dynamoSvc dynamodbiface.DynamoDBAPI, table string) *DynamoMetrics {
	return &DynamoMetrics{dynamoSvc: dynamoSvc, table: table}
}

// Record puts one item; unset optional fields are omitted.
func (m *DynamoMetrics) Record(ctx context.Context, record domain.MetricsRecord) error {
	av, err := dynamodbattribute.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal metrics record: %w", err)
	}

	_, err = m.dynamoSvc.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		Item:      av,
		TableName: aws.String(m.table),
	})
	if err != nil {
		return fmt.Errorf("put metrics record: %w", err)
	}
	return nil
}
