package dynamodb

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
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/application/ports"
	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
)

// errLockHeld marks contention so Lock keeps retrying
var errLockHeld = errors.New("lock already held")

// lockRecord is the lease item. TTL lets DynamoDB reap leases of crashed owners.
type lockRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	LockID     string `dynamodbav:"LockID"`
	Owner      string `dynamodbav:"Owner"`
	AcquiredAt string `dynamodbav:"AcquiredAt"`
	ExpiresAt  int64  `dynamodbav:"ExpiresAt"`
	TTL        int64  `dynamodbav:"TTL"`
}

// DistributedLocker serializes pipeline runs for one article across Lambda
// instances with conditional writes on a lease item
type DistributedLocker struct {
	client    Client
	tableName string
	owner     string
	ttl       time.Duration
	logger    *zap.Logger

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

var _ ports.ArticleLocker = (*DistributedLocker)(nil)

// NewDistributedLocker creates a locker whose leases expire after ttl
func NewDistributedLocker(client Client, tableName string, ttl time.Duration, logger *zap.Logger) *DistributedLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &DistributedLocker{
		client:         client,
		tableName:      tableName,
		owner:          uuid.New().String(),
		ttl:            ttl,
		logger:         logger,
		initialBackoff: 100 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// Lock retries until the lease is taken or ctx is done
func (l *DistributedLocker) Lock(ctx context.Context, articleID valueobjects.ArticleID) (ports.Unlock, error) {
	resource := articleID.String()
	backoff := l.initialBackoff

	for {
		lockID, err := l.acquire(ctx, resource)
		if err == nil {
			return func(ctx context.Context) error {
				return l.release(ctx, resource, lockID)
			}, nil
		}
		if !errors.Is(err, errLockHeld) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, pkgerrors.NewTimeoutError("lock article " + resource).WithCause(ctx.Err())
		case <-time.After(backoff):
			if backoff < l.maxBackoff {
				backoff = time.Duration(float64(backoff) * 1.5)
			}
		}
	}
}

func (l *DistributedLocker) acquire(ctx context.Context, resource string) (string, error) {
	now := time.Now()
	expiresAt := now.Add(l.ttl)
	lockID := fmt.Sprintf("%s_%d", l.owner, now.UnixNano())

	item, err := attributevalue.MarshalMap(lockRecord{
		PK:         lockPK(resource),
		SK:         lockSK,
		EntityType: entityLock,
		LockID:     lockID,
		Owner:      l.owner,
		AcquiredAt: now.UTC().Format(time.RFC3339),
		ExpiresAt:  expiresAt.UnixMilli(),
		TTL:        expiresAt.Unix(),
	})
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to marshal lock")
	}

	// an expired lease may be taken over before TTL deletion runs
	cond := expression.AttributeNotExists(expression.Name("PK")).
		Or(expression.Name("ExpiresAt").LessThan(expression.Value(now.UnixMilli())))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to build lock condition")
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(l.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			l.logger.Debug("article lock held elsewhere", zap.String("article_id", resource))
			return "", errLockHeld
		}
		return "", mapError("lock article", err, nil)
	}

	l.logger.Debug("article lock acquired",
		zap.String("article_id", resource),
		zap.String("lock_id", lockID),
		zap.Duration("ttl", l.ttl))
	return lockID, nil
}

func (l *DistributedLocker) release(ctx context.Context, resource, lockID string) error {
	cond := expression.Name("LockID").Equal(expression.Value(lockID)).
		And(expression.Name("Owner").Equal(expression.Value(l.owner)))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return pkgerrors.Wrap(err, "failed to build release condition")
	}

	_, err = l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(l.tableName),
		Key:                       key(lockPK(resource), lockSK),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// lease expired and was taken over; nothing left to release
			l.logger.Warn("article lock already released or taken over",
				zap.String("article_id", resource),
				zap.String("lock_id", lockID))
			return nil
		}
		return mapError("unlock article", err, nil)
	}
	return nil
}

// Owner identifies this process in lease items
func (l *DistributedLocker) Owner() string {
	return l.owner
}
