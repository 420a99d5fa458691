package storage

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"mission-board/domain"
)

// WeekArchivedEvent is the message published for every rollover.
type WeekArchivedEvent struct {
	Type    string              `json:"type"`
	Key     string              `json:"key"`
	Archive domain.ArchiveEntry `json:"archive"`
}

const weekArchivedType = "week-archived"

// QueueNotifier publishes archived weeks to an Azure Storage queue.
type QueueNotifier struct {
	queue *azqueue.QueueClient
	key   string
}

func NewQueueNotifier(connStr, queueName, key string) (*QueueNotifier, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &opts)
	if err != nil {
		return nil, err
	}
	return &QueueNotifier{queue: q, key: key}, nil
}

func encodeWeekArchived(key string, entry domain.ArchiveEntry) ([]byte, error) {
	return sonic.ConfigStd.Marshal(WeekArchivedEvent{Type: weekArchivedType, Key: key, Archive: entry})
}

// WeekArchived enqueues one message describing entry.
func (n *QueueNotifier) WeekArchived(ctx context.Context, entry domain.ArchiveEntry) error {
	data, err := encodeWeekArchived(n.key, entry)
	if err != nil {
		return err
	}
	_, err = n.queue.EnqueueMessage(ctx, string(data), nil)
	return err
}
