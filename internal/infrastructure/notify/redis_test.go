package notify

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kedai/internal/core/watch"
)

func newTestBridge(t *testing.T) *RedisBridge {
	t.Helper()
	// The client never dials in these tests; only the codec is exercised.
	bridge, err := NewRedisBridge(redis.NewClient(&redis.Options{}), watch.NewHub())
	require.NoError(t, err)
	return bridge
}

func TestEnvelopeRoundTrip(t *testing.T) {
	bridge := newTestBridge(t)

	ev := watch.Event{
		Topic:    watch.TopicProducts,
		Snapshot: []byte(`[{"name":"100 Plus","balance":6}]`),
		At:       time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}

	payload, err := bridge.encode(ev)
	require.NoError(t, err)

	got, origin, err := bridge.decode(payload)
	require.NoError(t, err)
	assert.Equal(t, bridge.origin, origin)
	assert.Equal(t, ev.Topic, got.Topic)
	assert.Equal(t, ev.Snapshot, got.Snapshot)
	assert.True(t, ev.At.Equal(got.At))
}

func TestDecode_RejectsMalformedPayloads(t *testing.T) {
	bridge := newTestBridge(t)

	_, _, err := bridge.decode([]byte("not json"))
	assert.Error(t, err)

	// Valid JSON but the snapshot bytes are not zstd.
	_, _, err = bridge.decode([]byte(`{"origin":"x","topic":"products","snapshot":"bm90LXpzdGQ="}`))
	assert.Error(t, err)

	_, _, err = bridge.decode([]byte(`{"origin":"x","topic":""}`))
	assert.Error(t, err)
}

func TestDecode_DistinguishesOrigins(t *testing.T) {
	a := newTestBridge(t)
	b := newTestBridge(t)

	payload, err := a.encode(watch.Event{Topic: watch.TopicSales, Snapshot: []byte("[]")})
	require.NoError(t, err)

	_, origin, err := b.decode(payload)
	require.NoError(t, err)
	assert.NotEqual(t, b.origin, origin, "peer events must not look local")
}
