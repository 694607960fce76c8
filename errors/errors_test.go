package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(99).String())
}

func TestWrap(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(base, "Queue", "Enqueue", "publish message")

	require.Error(t, err)
	assert.Equal(t, "Queue.Enqueue: publish message failed: boom", err.Error())
	assert.True(t, stderrors.Is(err, base))

	assert.NoError(t, Wrap(nil, "Queue", "Enqueue", "publish message"))
}

func TestWrapTransient(t *testing.T) {
	err := WrapTransient(ErrNoConnection, "Worker", "HandleEvent", "fetch object")

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.False(t, IsInvalid(err))
	assert.False(t, IsFatal(err))
	assert.True(t, stderrors.Is(err, ErrNoConnection))

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, "Worker", ce.Component)
	assert.Equal(t, "HandleEvent", ce.Operation)
}

func TestWrapInvalid(t *testing.T) {
	err := WrapInvalid(ErrParsingFailed, "Gateway", "handlePut", "decode body")

	require.Error(t, err)
	assert.True(t, IsInvalid(err))
	assert.False(t, IsTransient(err))
	assert.Equal(t, ErrorInvalid, Classify(err))
}

func TestWrapFatal(t *testing.T) {
	err := WrapFatal(ErrMissingConfig, "Consumer", "New", "validate config")

	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, ErrorFatal, Classify(err))
}

func TestIsTransient_Sentinels(t *testing.T) {
	transient := []error{
		ErrConnectionTimeout,
		ErrConnectionLost,
		ErrNoConnection,
		ErrStorageUnavailable,
		ErrQueueFull,
		context.DeadlineExceeded,
	}
	for _, err := range transient {
		assert.True(t, IsTransient(err), "expected %v to be transient", err)
	}

	assert.False(t, IsTransient(nil))
}

func TestIsTransient_Patterns(t *testing.T) {
	assert.True(t, IsTransient(fmt.Errorf("dial tcp: i/o timeout")))
	assert.True(t, IsTransient(fmt.Errorf("service temporarily unavailable")))
	assert.False(t, IsTransient(fmt.Errorf("malformed document")))
}

func TestIsInvalid_Sentinels(t *testing.T) {
	assert.True(t, IsInvalid(ErrInvalidData))
	assert.True(t, IsInvalid(ErrParsingFailed))
	assert.True(t, IsInvalid(ErrKeyNotFound))
	assert.False(t, IsInvalid(nil))
}

func TestClassify_InvalidBeforeTransient(t *testing.T) {
	// An invalid classification must win even when the message carries a
	// pattern the transient matcher would otherwise catch.
	err := WrapInvalid(fmt.Errorf("connection field is not a boolean"), "Record", "Map", "coerce")
	assert.Equal(t, ErrorInvalid, Classify(err))
}

func TestClassify_UnknownDefaultsTransient(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(stderrors.New("mystery")))
	assert.Equal(t, ErrorTransient, Classify(nil))
}
