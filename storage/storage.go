package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
)

// boardPartition is the partition every board row lives in.
const boardPartition = "board"

// TableStore keeps the board document in a single Azure Table row.
type TableStore struct {
	table *aztables.Client
	key   string
}

// NewTableStore connects to table using the storage account connection string.
func NewTableStore(connStr, table, key string) (*TableStore, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &TableStore{table: svc.NewClient(table), key: key}, nil
}

// Table properties hold at most 64 KiB of UTF-16 and an entity at most
// 1 MiB, so the document is split across DataN properties.
const (
	chunkCountProp = "Chunks"
	chunkPrefix    = "Data"
	chunkUnits     = 32000
	maxChunks      = 15
)

// ErrBoardTooLarge is returned by TableStore.Save when the document does not
// fit in one entity.
var ErrBoardTooLarge = errors.New("board document too large for table entity")

// splitUTF16 cuts s into pieces of at most limit UTF-16 code units without
// splitting a character.
func splitUTF16(s string, limit int) []string {
	var parts []string
	start, units := 0, 0
	for i, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > limit {
			parts = append(parts, s[start:i])
			start, units = i, 0
		}
		units += n
	}
	if start < len(s) || len(parts) == 0 {
		parts = append(parts, s[start:])
	}
	return parts
}

func encodeBoardEntity(key string, raw []byte) ([]byte, error) {
	chunks := splitUTF16(string(raw), chunkUnits)
	if len(chunks) > maxChunks {
		return nil, fmt.Errorf("%w: %d bytes", ErrBoardTooLarge, len(raw))
	}
	props := map[string]any{
		"PartitionKey": boardPartition,
		"RowKey":       key,
		chunkCountProp: len(chunks),
	}
	for i, c := range chunks {
		props[chunkPrefix+strconv.Itoa(i)] = c
	}
	return sonic.ConfigStd.Marshal(props)
}

// decodeBoardEntity reassembles the document. Rows written before chunking
// carry it whole in Data.
func decodeBoardEntity(value []byte) ([]byte, error) {
	var props map[string]any
	if err := sonic.ConfigStd.Unmarshal(value, &props); err != nil {
		return nil, err
	}
	count, ok := props[chunkCountProp].(float64)
	if !ok {
		data, _ := props[chunkPrefix].(string)
		return []byte(data), nil
	}
	var sb strings.Builder
	for i := 0; i < int(count); i++ {
		name := chunkPrefix + strconv.Itoa(i)
		part, ok := props[name].(string)
		if !ok {
			return nil, fmt.Errorf("board entity missing %s of %d chunks", name, int(count))
		}
		sb.WriteString(part)
	}
	return []byte(sb.String()), nil
}

// Load returns the stored document, or nil when the row does not exist.
func (s *TableStore) Load(ctx context.Context) ([]byte, error) {
	resp, err := s.table.GetEntity(ctx, boardPartition, s.key, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return decodeBoardEntity(resp.Value)
}

// Save replaces the row unconditionally, dropping chunks a larger
// document left behind.
func (s *TableStore) Save(ctx context.Context, raw []byte) error {
	payload, err := encodeBoardEntity(s.key, raw)
	if err != nil {
		return err
	}
	_, err = s.table.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

// Delete removes the row. A missing row is not an error.
func (s *TableStore) Delete(ctx context.Context) error {
	_, err := s.table.DeleteEntity(ctx, boardPartition, s.key, nil)
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (s *TableStore) Close() error { return nil }

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
