package http

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelay_RawStream(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/chat/intake", nil)

	stream, err := newRelay(rec, req, false)
	require.NoError(t, err)

	sink := stream.Sink()
	require.NoError(t, sink("Hello, "))
	require.NoError(t, sink("world"))

	assert.Equal(t, "Hello, world", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.True(t, rec.Flushed)
	assert.True(t, stream.Started())
}

func TestRelay_LegacyFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/chat/intake", nil)

	stream, err := newRelay(rec, req, true)
	require.NoError(t, err)

	sink := stream.Sink()
	require.NoError(t, sink("Hi"))
	require.NoError(t, sink(`with "quotes"`))

	assert.Equal(t, "0:\"Hi\"\n0:\"with \\\"quotes\\\"\"\n", rec.Body.String())
}

func TestRelay_ClientDisconnect(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("POST", "/api/chat/intake", nil).WithContext(ctx)

	stream, err := newRelay(rec, req, false)
	require.NoError(t, err)

	sink := stream.Sink()
	require.NoError(t, sink("first"))

	cancel()
	// После отключения клиента обработчик возвращает ошибку и прерывает поток
	assert.Error(t, sink("second"))
	assert.Equal(t, "first", rec.Body.String())
}

func TestRelay_NotStartedBeforeFirstChunk(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/chat/intake", nil)

	stream, err := newRelay(rec, req, false)
	require.NoError(t, err)
	assert.False(t, stream.Started())
}
