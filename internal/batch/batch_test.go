package batch

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/mcncl/jsoncodec/internal/codec"
	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/message"
	"github.com/mcncl/jsoncodec/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawGroup(bodies ...string) message.MessageGroup {
	group := message.MessageGroup{}
	for i, body := range bodies {
		group.Messages = append(group.Messages, message.AnyMessage{Raw: &message.RawMessage{
			ID:   message.MessageID{SessionAlias: "s", Direction: message.DirectionFirst, Sequence: int64(i)},
			Body: []byte(body),
		}})
	}
	return group
}

func newRunner(t *testing.T, workers int, policy Policy) *Runner {
	t.Helper()
	r, err := NewRunner(workers, policy)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, PolicySkip, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAbort, p)

	_, err = ParsePolicy("retry")
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestNewRunner_InvalidWorkers(t *testing.T) {
	_, err := NewRunner(0, PolicyAbort)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestRunner_PreservesOrder(t *testing.T) {
	r := newRunner(t, 4, PolicyAbort)
	c := pipeline.New(codec.Settings{DecodeTypeInfo: true})

	var bodies []string
	for i := 0; i < 50; i++ {
		bodies = append(bodies, fmt.Sprintf(`{"n":%d}`, i))
	}

	result, err := r.Decode(context.Background(), c, rawGroup(bodies...))
	require.NoError(t, err)
	require.Len(t, result.Group.Messages, 50)
	for i, m := range result.Group.Messages {
		require.True(t, m.IsParsed())
		assert.Equal(t, int64(i), m.Parsed.ID.Sequence)
	}
}

func TestRunner_AbortReturnsLowestFailingIndex(t *testing.T) {
	r := newRunner(t, 4, PolicyAbort)
	c := pipeline.New(codec.Settings{})

	_, err := r.Decode(context.Background(), c, rawGroup(`{}`, `[1]`, `{}`, `x`))
	require.Error(t, err)

	var me *MessageError
	require.True(t, stderrors.As(err, &me))
	assert.Equal(t, 1, me.Index)
	assert.ErrorIs(t, err, errors.ErrArrayRootNotAllowed)
}

func TestRunner_SkipDropsFailures(t *testing.T) {
	r := newRunner(t, 2, PolicySkip)
	c := pipeline.New(codec.Settings{})

	result, err := r.Decode(context.Background(), c, rawGroup(`{"a":"1"}`, `x`, `{"b":"2"}`))
	require.NoError(t, err)
	require.Len(t, result.Group.Messages, 2)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 1, result.Skipped[0].Index)
	assert.ErrorIs(t, result.Skipped[0], errors.ErrMalformedDocument)
}

func TestRunner_EncodeRoundTrip(t *testing.T) {
	r := newRunner(t, 2, PolicyAbort)
	c := pipeline.New(codec.Settings{EncodeTypeInfo: true, DecodeTypeInfo: true})

	decoded, err := r.Decode(context.Background(), c, rawGroup(`{"a":1}`, `{"b":[true]}`))
	require.NoError(t, err)

	encoded, err := r.Encode(context.Background(), c, decoded.Group)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(encoded.Group.Messages[0].Raw.Body))
	assert.Equal(t, `{"b":[true]}`, string(encoded.Group.Messages[1].Raw.Body))
}

func TestRunner_RecoversPanics(t *testing.T) {
	r := newRunner(t, 1, PolicySkip)

	result, err := r.Run(context.Background(), rawGroup(`{}`), func(message.AnyMessage) (message.AnyMessage, error) {
		panic("boom")
	})
	require.NoError(t, err)
	require.Len(t, result.Skipped, 1)
	assert.Contains(t, result.Skipped[0].Error(), "boom")
}

func TestRunner_CancelledContext(t *testing.T) {
	r := newRunner(t, 1, PolicyAbort)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Decode(ctx, pipeline.New(codec.Settings{}), rawGroup(`{}`))
	assert.ErrorIs(t, err, context.Canceled)
}
