package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solm0/solmee-xyz-keystone/domain/core/valueobjects"
	"github.com/solm0/solmee-xyz-keystone/domain/events"
	"github.com/solm0/solmee-xyz-keystone/tests/mocks"
)

type countingRecorder struct {
	ok, failed int
}

func (r *countingRecorder) RecordEvent(_ string, err error) {
	if err != nil {
		r.failed++
		return
	}
	r.ok++
}

func keywordEvents(n int) []events.DomainEvent {
	out := make([]events.DomainEvent, 0, n)
	for i := 0; i < n; i++ {
		id := valueobjects.MustArticleID(fmt.Sprintf("article-%d", i))
		out = append(out, events.NewKeywordsUpdated(id, []string{"golang"}, nil, []string{"golang"}, time.Now()))
	}
	return out
}

func TestPublisher_Publish(t *testing.T) {
	// Arrange
	client := new(mocks.MockEventBridgeClient)
	recorder := &countingRecorder{}
	publisher := NewPublisher(client, "keystone-events", "keystone.content", recorder, zap.NewNop())
	event := events.NewInternalLinksReconciled(valueobjects.MustArticleID("a"), []string{"b"}, []string{"c"}, time.Now())

	var input *eventbridge.PutEventsInput
	client.On("PutEvents", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		input = args.Get(1).(*eventbridge.PutEventsInput)
	}).Return(&eventbridge.PutEventsOutput{}, nil)

	// Act
	err := publisher.Publish(context.Background(), event)

	// Assert
	require.NoError(t, err)
	require.Len(t, input.Entries, 1)
	entry := input.Entries[0]
	assert.Equal(t, "keystone-events", aws.ToString(entry.EventBusName))
	assert.Equal(t, "keystone.content", aws.ToString(entry.Source))
	assert.Equal(t, events.TypeInternalLinksReconciled, aws.ToString(entry.DetailType))
	assert.Equal(t, []string{"article/a"}, entry.Resources)

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, []interface{}{"b"}, detail["connected"])
	assert.Equal(t, 1, recorder.ok)
}

func TestPublisher_PublishBatch_Chunks(t *testing.T) {
	client := new(mocks.MockEventBridgeClient)
	publisher := NewPublisher(client, "bus", "src", nil, zap.NewNop())

	var sizes []int
	client.On("PutEvents", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sizes = append(sizes, len(args.Get(1).(*eventbridge.PutEventsInput).Entries))
	}).Return(&eventbridge.PutEventsOutput{}, nil)

	err := publisher.PublishBatch(context.Background(), keywordEvents(23))

	require.NoError(t, err)
	assert.Equal(t, []int{10, 10, 3}, sizes)
}

func TestPublisher_FailedEntries(t *testing.T) {
	client := new(mocks.MockEventBridgeClient)
	recorder := &countingRecorder{}
	publisher := NewPublisher(client, "bus", "src", recorder, zap.NewNop())
	client.On("PutEvents", mock.Anything, mock.Anything).Return(&eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries: []types.PutEventsResultEntry{
			{EventId: aws.String("1")},
			{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("boom")},
		},
	}, nil)

	err := publisher.PublishBatch(context.Background(), keywordEvents(2))

	require.Error(t, err)
	assert.Equal(t, 1, recorder.ok)
	assert.Equal(t, 1, recorder.failed)
}

func TestPublisher_ClientError(t *testing.T) {
	client := new(mocks.MockEventBridgeClient)
	recorder := &countingRecorder{}
	publisher := NewPublisher(client, "bus", "src", recorder, zap.NewNop())
	client.On("PutEvents", mock.Anything, mock.Anything).Return(nil, errors.New("network down"))

	err := publisher.PublishBatch(context.Background(), keywordEvents(3))

	assert.ErrorContains(t, err, "network down")
	assert.Equal(t, 3, recorder.failed)
}

func TestLogPublisher(t *testing.T) {
	publisher := NewLogPublisher(zap.NewNop())

	assert.NoError(t, publisher.PublishBatch(context.Background(), keywordEvents(2)))
}
