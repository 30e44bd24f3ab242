package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if f.err == nil {
			f.records = append(f.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func TestKafkaStore_Append(t *testing.T) {
	producer := &fakeProducer{}
	store := NewKafkaStore(producer, "idintake.audit")
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	err := store.Append(context.Background(), Event{
		Timestamp: at,
		Subject:   "subject-1",
		Action:    ActionVerificationEvaluated,
		Decision:  "passed",
		Source:    "server",
	})
	require.NoError(t, err)
	require.Len(t, producer.records, 1)

	record := producer.records[0]
	assert.Equal(t, "idintake.audit", record.Topic)
	assert.Equal(t, []byte("subject-1"), record.Key)
	assert.Equal(t, at, record.Timestamp)

	var decoded Event
	require.NoError(t, json.Unmarshal(record.Value, &decoded))
	assert.Equal(t, ActionVerificationEvaluated, decoded.Action)
	assert.Equal(t, "server", decoded.Source)
}

func TestKafkaStore_ProduceError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	store := NewKafkaStore(producer, "idintake.audit")

	err := store.Append(context.Background(), Event{Action: ActionCredentialRegistered})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestKafkaStore_BehindAsyncPublisher(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewPublisher(NewKafkaStore(producer, "t"), WithAsyncBuffer(4))
	for i := 0; i < 3; i++ {
		require.NoError(t, pub.Emit(context.Background(), Event{Action: ActionCredentialRegistered}))
	}
	pub.Close()
	assert.Len(t, producer.records, 3)
}
