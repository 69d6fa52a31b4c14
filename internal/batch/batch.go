// Package batch runs a per-message transcoding step over a message group on a
// worker pool. Results keep the order of the input group.
package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/message"
	"github.com/mcncl/jsoncodec/internal/pipeline"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Policy decides what a failing message does to the rest of its group
type Policy string

const (
	// PolicyAbort fails the whole group on the first failing message.
	PolicyAbort Policy = "abort"
	// PolicySkip drops failing messages and keeps the others.
	PolicySkip Policy = "skip"
)

// ParsePolicy validates a policy name
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAbort, PolicySkip:
		return Policy(s), nil
	case "":
		return PolicyAbort, nil
	default:
		return "", errors.NewConfigError(fmt.Sprintf("unknown batch policy %q (want abort or skip)", s), errors.ErrInvalidConfig)
	}
}

// MessageError reports the failure of one message of a group
type MessageError struct {
	Index int
	Err   error
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("message %d: %v", e.Index, e.Err)
}

func (e *MessageError) Unwrap() error {
	return e.Err
}

// Step transforms one message
type Step func(message.AnyMessage) (message.AnyMessage, error)

// Result is the outcome of a group run
type Result struct {
	Group message.MessageGroup
	// Skipped lists the messages dropped under PolicySkip, in index order.
	Skipped []*MessageError
}

// Runner runs steps on a bounded goroutine pool
type Runner struct {
	pool   *ants.Pool
	policy Policy
	logger *zap.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithLogger sets the runner logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner with the given number of workers
func NewRunner(workers int, policy Policy, opts ...Option) (*Runner, error) {
	if workers < 1 {
		return nil, errors.NewConfigError(fmt.Sprintf("batch workers must be at least 1, got %d", workers), errors.ErrInvalidConfig)
	}
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = PolicyAbort
	}

	r := &Runner{policy: policy, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}

	pool, err := ants.NewPool(workers, ants.WithNonblocking(false), ants.WithPanicHandler(func(v interface{}) {
		r.logger.Error("batch worker panicked", zap.Any("panic", v))
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	r.pool = pool
	return r, nil
}

// Close releases the pool
func (r *Runner) Close() {
	r.pool.Release()
}

// Policy returns the runner policy
func (r *Runner) Policy() Policy {
	return r.policy
}

// Decode runs the decode side of c over the group
func (r *Runner) Decode(ctx context.Context, c *pipeline.Codec, group message.MessageGroup) (Result, error) {
	return r.Run(ctx, group, c.DecodeMessage)
}

// Encode runs the encode side of c over the group
func (r *Runner) Encode(ctx context.Context, c *pipeline.Codec, group message.MessageGroup) (Result, error) {
	return r.Run(ctx, group, c.EncodeMessage)
}

// Run applies step to every message of the group. Under PolicyAbort the
// returned error is the *MessageError with the lowest index. Cancelling ctx
// stops further submissions and returns ctx.Err().
func (r *Runner) Run(ctx context.Context, group message.MessageGroup, step Step) (Result, error) {
	n := len(group.Messages)
	outputs := make([]message.AnyMessage, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range group.Messages {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return Result{}, err
		}

		i := i
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if v := recover(); v != nil {
					errs[i] = fmt.Errorf("panic while processing message: %v", v)
				}
			}()
			outputs[i], errs[i] = step(group.Messages[i])
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("failed to submit message: %w", err)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	result := Result{Group: message.MessageGroup{Messages: make([]message.AnyMessage, 0, n)}}
	for i, err := range errs {
		if err == nil {
			result.Group.Messages = append(result.Group.Messages, outputs[i])
			continue
		}
		failure := &MessageError{Index: i, Err: err}
		if r.policy == PolicyAbort {
			return Result{}, failure
		}
		r.logger.Warn("skipping message", zap.Int("index", i), zap.Error(err))
		result.Skipped = append(result.Skipped, failure)
	}
	return result, nil
}
