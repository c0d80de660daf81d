package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/LJTian/EditorialHub/internal/storage"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishWritesKeyedEvent(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w)

	created := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	err := p.Publish(context.Background(), &storage.Article{
		ID:              "abc",
		Section:         "Editorial",
		URL:             "https://example.com/a",
		OriginalTitle:   "Foo",
		TranslatedTitle: "فو",
		OriginalBody:    "not part of the event",
		CreatedAt:       created,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "abc", string(w.msgs[0].Key))

	var ev ArticleEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, "Editorial", ev.Section)
	assert.Equal(t, "فو", ev.TranslatedTitle)
	assert.True(t, created.Equal(ev.CreatedAt))
	assert.NotContains(t, string(w.msgs[0].Value), "not part of the event")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducerWithWriter(&fakeWriter{err: boom})

	err := p.Publish(context.Background(), &storage.Article{ID: "x"})
	assert.ErrorIs(t, err, boom)
}
