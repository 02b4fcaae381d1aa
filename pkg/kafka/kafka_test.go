package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestConsumerCommitsHandledMessages(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Offset: 1, Value: []byte("ok")},
		{Offset: 2, Value: []byte("fail")},
		{Offset: 3, Value: []byte("ok")},
	}}
	var seen []string
	c := NewConsumerWithReader(reader, "catalog-updates", func(_ context.Context, _ []byte, value []byte) error {
		seen = append(seen, string(value))
		if string(value) == "fail" {
			return errors.New("handler failed")
		}
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, []string{"ok", "fail", "ok"}, seen)
	assert.Equal(t, []int64{1, 3}, reader.committed)

	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}

func TestConsumerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader := &cancelledReader{}
	c := NewConsumerWithReader(reader, "t", func(context.Context, []byte, []byte) error { return nil })
	assert.NoError(t, c.Start(ctx))
}

type cancelledReader struct{ fakeReader }

func (r *cancelledReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Action string `json:"action"`
	}
	got, err := DecodeJSON[payload]([]byte(`{"action":"upload"}`))
	require.NoError(t, err)
	assert.Equal(t, "upload", got.Action)

	_, err = DecodeJSON[payload]([]byte(`nope`))
	assert.ErrorContains(t, err, "decoding kafka message")
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducerPublishBatch(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "search-events")

	require.NoError(t, p.PublishBatch(context.Background(), []Event{
		{Key: "search", Value: map[string]int{"hits": 3}},
		{Key: "suggest", Value: "po"},
	}))
	require.NoError(t, p.PublishBatch(context.Background(), nil))
	require.Len(t, w.messages, 2)
	assert.Equal(t, "search", string(w.messages[0].Key))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &decoded))
	assert.Equal(t, 3, decoded["hits"])

	require.NoError(t, p.Publish(context.Background(), Event{Key: "one", Value: 1}))
	assert.Len(t, w.messages, 3)
}

func TestProducerErrors(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{err: errors.New("broker down")}, "t")
	assert.ErrorContains(t, p.Publish(context.Background(), Event{Key: "k", Value: 1}), "broker down")

	p = NewProducerWithWriter(&fakeWriter{}, "t")
	assert.ErrorContains(t, p.Publish(context.Background(), Event{Key: "k", Value: func() {}}), "marshaling")
}
