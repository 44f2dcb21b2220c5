package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewChannelID(t *testing.T) {
	a := NewChannelID()
	b := NewChannelID()
	require.True(t, strings.HasPrefix(a, ChannelPrefix))
	require.NotEqual(t, a, b)
}

func TestRequest_DeliversMatchingChannel(t *testing.T) {
	b := New(time.Second)

	payload, err := b.Request(context.Background(), func(_ context.Context, channel string) error {
		require.False(t, b.Deliver(Message{Channel: "someone-else", Payload: json.RawMessage(`{"x":1}`)}))
		go b.Deliver(Message{Channel: channel, Payload: json.RawMessage(`{"ok":true}`)})
		return nil
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(payload))
}

func TestRequest_TimesOutToNoPayload(t *testing.T) {
	b := New(30 * time.Millisecond)

	var opened string
	payload, err := b.Request(context.Background(), func(_ context.Context, channel string) error {
		opened = channel
		return nil
	})
	require.NoError(t, err)
	require.Nil(t, payload)

	// Late replies are dropped.
	require.False(t, b.Deliver(Message{Channel: opened, Payload: json.RawMessage(`{}`)}))
}

func TestRequest_NullPayload(t *testing.T) {
	b := New(time.Second)

	payload, err := b.Request(context.Background(), func(_ context.Context, channel string) error {
		require.True(t, b.Deliver(Message{Channel: channel, Payload: json.RawMessage(`null`)}))
		return nil
	})
	require.NoError(t, err)
	require.Nil(t, payload)
}

func TestRequest_InjectFailure(t *testing.T) {
	b := New(time.Second)

	payload, err := b.Request(context.Background(), func(context.Context, string) error {
		return errors.New("page gone")
	})
	require.NoError(t, err)
	require.Nil(t, payload)
}

func TestRequest_ContextCanceled(t *testing.T) {
	b := New(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Request(ctx, func(context.Context, string) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}

func TestRequest_TimeoutBoundsInject(t *testing.T) {
	b := New(30 * time.Millisecond)

	start := time.Now()
	payload, err := b.Request(context.Background(), func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	require.Nil(t, payload)
	require.Less(t, time.Since(start), time.Second)
}
