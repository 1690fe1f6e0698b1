package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"WhereAmI/internal/config"
	"WhereAmI/internal/ports"
)

// DynamoLimiter allows one request per client per window. Each call
// overwrites the client's item and inspects the previous one.
type DynamoLimiter struct {
	dynamoSvc dynamodbiface.DynamoDBAPI
	table     string
	window    time.Duration
	expiry    time.Duration
	now       func() time.Time
}

var _ ports.RateLimiter = (*DynamoLimiter)(nil)

// NewDynamoLimiter defaults to a 500ms window and items that expire after a minute.
func NewDynamoLimiter(dynamoSvc dynamodbiface.DynamoDBAPI, cfg config.RateLimitConfig) *DynamoLimiter {
	l := &DynamoLimiter{
		dynamoSvc: dynamoSvc,
		table:     cfg.Table,
		window:    cfg.Window,
		expiry:    cfg.Expiry,
		now:       time.Now,
	}
	if l.window <= 0 {
		l.window = 500 * time.Millisecond
	}
	if l.expiry <= 0 {
		l.expiry = time.Minute
	}
	return l
}

// Allow records this request and reports whether the previous one from
// clientID is older than the window.
func (l *DynamoLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	now := l.now()
	millis := now.UnixMilli()

	out, err := l.dynamoSvc.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.table),
		Item: map[string]*dynamodb.AttributeValue{
			"Id":          {S: aws.String(clientID)},
			"RequestTime": {N: aws.String(strconv.FormatInt(millis, 10))},
			// TTL attributes are in seconds.
			"Expiry": {N: aws.String(strconv.FormatInt(now.Add(l.expiry).Unix(), 10))},
		},
		ReturnValues: aws.String(dynamodb.ReturnValueAllOld),
	})
	if err != nil {
		return false, fmt.Errorf("record request: %w", err)
	}

	previous, ok := out.Attributes["RequestTime"]
	if !ok || previous.N == nil {
		return true, nil
	}

	last, err := strconv.ParseInt(aws.StringValue(previous.N), 10, 64)
	if err != nil {
		return true, nil
	}
	return millis-last > l.window.Milliseconds(), nil
}
