package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w}
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, p.Publish(context.Background(), Event{
		TraceID: "t1", Tool: "add_paragraph", Document: "/docs/a.docx", Success: true, DurationMs: 12, Timestamp: ts,
	}))
	require.NoError(t, p.Publish(context.Background(), Event{TraceID: "t2", Tool: "list_available_documents"}))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "/docs/a.docx", string(w.msgs[0].Key))
	assert.Equal(t, "list_available_documents", string(w.msgs[1].Key))

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "add_paragraph", got["tool"])
	assert.Equal(t, true, got["success"])
	assert.EqualValues(t, 12, got["duration_ms"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got["timestamp"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisherError(t *testing.T) {
	p := &KafkaPublisher{writer: &recordingWriter{err: errors.New("broker down")}}
	err := p.Publish(context.Background(), Event{Tool: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewKafkaPublisherNeedsBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "word_mcp_audit")
	require.Error(t, err)
}
