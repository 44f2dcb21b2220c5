// Package bridge carries one-shot replies from a page's own script context
// back to the code that asked for them.
//
// Each request opens a channel under a fresh random id, arranges for the page
// to post {channel, payload}, and waits a bounded time for that exact id.
// Messages carrying any other id are ignored.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// ChannelPrefix starts every channel id handed to a page.
	ChannelPrefix = "browserutility-player-response-"

	DefaultTimeout = 3 * time.Second
)

// Message is what a page posts back.
type Message struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// Bridge tracks pending channels. The zero value is not usable; call New.
type Bridge struct {
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]chan json.RawMessage
}

func New(timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Bridge{
		timeout: timeout,
		pending: make(map[string]chan json.RawMessage),
	}
}

// NewChannelID returns a random channel id.
func NewChannelID() string {
	return ChannelPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Request opens a channel, hands its id to inject, then waits for the page to
// answer. The timeout bounds inject and the wait together. A timeout, a null
// payload, or an inject failure all yield a nil payload; only cancellation of
// ctx is reported as an error.
func (b *Bridge) Request(ctx context.Context, inject func(ctx context.Context, channel string) error) (json.RawMessage, error) {
	channel := NewChannelID()
	ch := make(chan json.RawMessage, 1)

	b.mu.Lock()
	b.pending[channel] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, channel)
		b.mu.Unlock()
	}()

	waitCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := inject(waitCtx, channel); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Debug("bridge inject failed", "channel", channel, "error", err)
		return nil, nil
	}

	select {
	case payload := <-ch:
		return payload, nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Debug("bridge timed out", "channel", channel, "timeout", b.timeout)
		return nil, nil
	}
}

// Deliver routes msg to its waiting request. It reports false when no request
// is waiting on msg.Channel, including replies that arrive after a timeout.
func (b *Bridge) Deliver(msg Message) bool {
	b.mu.Lock()
	ch, ok := b.pending[msg.Channel]
	if ok {
		delete(b.pending, msg.Channel)
	}
	b.mu.Unlock()
	if !ok {
		return false
	}

	payload := bytes.TrimSpace(msg.Payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		payload = nil
	}
	ch <- payload
	return true
}
