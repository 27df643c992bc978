package dynamodb

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	pkgerrors "github.com/solm0/solmee-xyz-keystone/pkg/errors"
	"github.com/solm0/solmee-xyz-keystone/tests/mocks"
)

func newTestLocker() (*DistributedLocker, *mocks.MockDynamoDBClient) {
	client := new(mocks.MockDynamoDBClient)
	locker := NewDistributedLocker(client, testTable, time.Minute, zap.NewNop())
	locker.initialBackoff = time.Millisecond
	locker.maxBackoff = 5 * time.Millisecond
	return locker, client
}

func TestDistributedLocker_RetriesUntilFree(t *testing.T) {
	// Arrange
	locker, client := newTestLocker()
	client.On("PutItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{}).Twice()
	client.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		return attr(in.Item, "PK") == "LOCK#a" && attr(in.Item, "Owner") == locker.Owner()
	})).Return(&dynamodb.PutItemOutput{}, nil).Once()
	client.On("DeleteItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.DeleteItemInput) bool {
		return attr(in.Key, "PK") == "LOCK#a" && attr(in.Key, "SK") == lockSK
	})).Return(&dynamodb.DeleteItemOutput{}, nil).Once()

	// Act
	unlock, err := locker.Lock(context.Background(), valueobjects.MustArticleID("a"))
	require.NoError(t, err)
	require.NoError(t, unlock(context.Background()))

	// Assert
	client.AssertNumberOfCalls(t, "PutItem", 3)
	client.AssertExpectations(t)
}

func TestDistributedLocker_TimesOut(t *testing.T) {
	locker, client := newTestLocker()
	client.On("PutItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := locker.Lock(ctx, valueobjects.MustArticleID("a"))

	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeTimeout))
}

func TestDistributedLocker_StoreFailureIsNotRetried(t *testing.T) {
	locker, client := newTestLocker()
	client.On("PutItem", mock.Anything, mock.Anything).Return(nil, &smithy.GenericAPIError{Code: "ThrottlingException"}).Once()

	_, err := locker.Lock(context.Background(), valueobjects.MustArticleID("a"))

	assert.True(t, pkgerrors.IsStoreUnavailable(err))
	client.AssertNumberOfCalls(t, "PutItem", 1)
}

func TestDistributedLocker_ReleaseAfterTakeover(t *testing.T) {
	locker, client := newTestLocker()
	client.On("PutItem", mock.Anything, mock.Anything).Return(&dynamodb.PutItemOutput{}, nil)
	client.On("DeleteItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

	unlock, err := locker.Lock(context.Background(), valueobjects.MustArticleID("a"))
	require.NoError(t, err)

	assert.NoError(t, unlock(context.Background()))
}
