package router

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darko-mesaros/adventures-of-json/component"
	"github.com/darko-mesaros/adventures-of-json/errors"
	"github.com/darko-mesaros/adventures-of-json/message"
)

type captureDispatcher struct {
	events []message.RawEvent
	err    error
}

func (d *captureDispatcher) Dispatch(_ context.Context, ev message.RawEvent) error {
	if d.err != nil {
		return d.err
	}
	d.events = append(d.events, ev)
	return nil
}

func matchingEvent() message.RawEvent {
	return message.RawEvent{
		Source: message.SourceObjectStorage,
		Type:   message.TypeObjectCreated,
		Bucket: "the-spicy-platypus-tiki-bar",
		Key:    "lobby/hero.json",
		Time:   time.Now(),
	}
}

func newTestRouter(d Dispatcher) *Router {
	return New(DefaultConfig(), d, component.Dependencies{})
}

func TestRule_Matches(t *testing.T) {
	rule := DefaultRule()

	ok, mismatch := rule.Matches(matchingEvent())
	assert.True(t, ok)
	assert.Empty(t, mismatch)
}

func TestRule_SingleFieldMismatches(t *testing.T) {
	rule := DefaultRule()

	tests := []struct {
		name     string
		mutate   func(*message.RawEvent)
		mismatch string
	}{
		{"wrong source", func(ev *message.RawEvent) { ev.Source = "api-gateway" }, MismatchSource},
		{"wrong type", func(ev *message.RawEvent) { ev.Type = "object-deleted" }, MismatchType},
		{"wrong bucket", func(ev *message.RawEvent) { ev.Bucket = "some-other-bucket" }, MismatchBucket},
		{"wrong key prefix", func(ev *message.RawEvent) { ev.Key = "attic/hero.json" }, MismatchKeyPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := matchingEvent()
			tt.mutate(&ev)

			ok, mismatch := rule.Matches(ev)
			assert.False(t, ok)
			assert.Equal(t, tt.mismatch, mismatch)
		})
	}
}

func TestRule_PrefixMatchesLongerKeys(t *testing.T) {
	rule := DefaultRule()

	ev := matchingEvent()
	ev.Key = "lobby/hero.json.v2"

	ok, _ := rule.Matches(ev)
	assert.True(t, ok)
}

func TestRouter_DispatchesMatchingEvent(t *testing.T) {
	dispatcher := &captureDispatcher{}
	r := newTestRouter(dispatcher)

	data, err := json.Marshal(matchingEvent())
	require.NoError(t, err)

	r.handleEvent(context.Background(), data)

	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, "lobby/hero.json", dispatcher.events[0].Key)
}

func TestRouter_DropsNonMatchingEvent(t *testing.T) {
	dispatcher := &captureDispatcher{}
	r := newTestRouter(dispatcher)

	ev := matchingEvent()
	ev.Bucket = "some-other-bucket"
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	r.handleEvent(context.Background(), data)

	assert.Empty(t, dispatcher.events)
}

func TestRouter_DropsMalformedEvent(t *testing.T) {
	dispatcher := &captureDispatcher{}
	r := newTestRouter(dispatcher)

	r.handleEvent(context.Background(), []byte("not json"))

	assert.Empty(t, dispatcher.events)
}

func TestRouter_DispatchErrorCountsAgainstHealth(t *testing.T) {
	dispatcher := &captureDispatcher{err: errors.ErrQueueFull}
	r := newTestRouter(dispatcher)

	data, err := json.Marshal(matchingEvent())
	require.NoError(t, err)

	r.handleEvent(context.Background(), data)

	health := r.Health()
	assert.Equal(t, 1, health.ErrorCount)
	assert.NotEmpty(t, health.LastError)
}

func TestRouter_InitializeValidation(t *testing.T) {
	r := New(Config{}, nil, component.Dependencies{})
	err := r.Initialize()
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}
