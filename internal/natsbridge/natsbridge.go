// Package natsbridge hosts the codec on a NATS subject. Every received
// message is a wire-encoded message group; the bridge decodes or encodes it
// and publishes the resulting group to the output subject or, when none is
// configured, to the reply subject of the request.
package natsbridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcncl/jsoncodec/internal/batch"
	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/pipeline"
	"github.com/mcncl/jsoncodec/internal/wire"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Mode selects which side of the codec the bridge runs
type Mode string

const (
	ModeDecode Mode = "decode"
	ModeEncode Mode = "encode"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDecode, ModeEncode:
		return Mode(s), nil
	case "":
		return ModeDecode, nil
	default:
		return "", errors.NewConfigError(fmt.Sprintf("unknown bridge mode %q (want decode or encode)", s), errors.ErrInvalidConfig)
	}
}

// Options are the subscription settings
type Options struct {
	Subject       string
	Queue         string
	OutputSubject string
	Mode          Mode
}

// Publisher sends a payload to a subject. *nats.Conn implements it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Bridge connects a NATS subscription to the codec
type Bridge struct {
	conn    *nats.Conn
	pub     Publisher
	codec   *pipeline.Codec
	runner  *batch.Runner
	format  wire.Format
	opts    Options
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	sub     *nats.Subscription
	handled int
}

// New creates a Bridge. conn may be nil when only Handle is used.
func New(conn *nats.Conn, codec *pipeline.Codec, runner *batch.Runner, format wire.Format, opts Options, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Mode == "" {
		opts.Mode = ModeDecode
	}
	b := &Bridge{
		conn:   conn,
		codec:  codec,
		runner: runner,
		format: format,
		opts:   opts,
		logger: logger.With(zap.String("subject", opts.Subject), zap.String("mode", string(opts.Mode))),
	}
	if conn != nil {
		b.pub = conn
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	return b
}

// Connect dials a NATS server with reconnect logging
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := nats.Connect(url,
		nats.Name("jsoncodec"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected from NATS", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("reconnected to NATS", zap.String("url", c.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Error("NATS error", zap.String("subject", subject), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return conn, nil
}

// Start subscribes to the configured subject
func (b *Bridge) Start() error {
	if b.conn == nil {
		return errors.NewConfigError("the bridge has no NATS connection", errors.ErrInvalidConfig)
	}
	if b.opts.Subject == "" {
		return errors.NewConfigError("nats.subject must be set", errors.ErrInvalidConfig)
	}

	var (
		sub *nats.Subscription
		err error
	)
	if b.opts.Queue != "" {
		sub, err = b.conn.QueueSubscribe(b.opts.Subject, b.opts.Queue, b.onMessage)
	} else {
		sub, err = b.conn.Subscribe(b.opts.Subject, b.onMessage)
	}
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.opts.Subject, err)
	}

	b.mu.Lock()
	b.sub = sub
	b.mu.Unlock()
	b.logger.Info("bridge started", zap.String("queue", b.opts.Queue), zap.String("wire", b.format.Name()))
	return nil
}

// Close drains the subscription and stops in-flight groups
func (b *Bridge) Close() error {
	b.mu.Lock()
	sub := b.sub
	b.sub = nil
	b.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Drain()
	}
	b.cancel()
	return err
}

// Handled returns the number of groups published so far
func (b *Bridge) Handled() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handled
}

// Handle transcodes one wire-encoded group and returns the wire-encoded result
func (b *Bridge) Handle(ctx context.Context, data []byte) ([]byte, error) {
	group, err := b.format.Unmarshal(data)
	if err != nil {
		return nil, err
	}

	var result batch.Result
	switch b.opts.Mode {
	case ModeEncode:
		result, err = b.runner.Encode(ctx, b.codec, group)
	default:
		result, err = b.runner.Decode(ctx, b.codec, group)
	}
	if err != nil {
		return nil, err
	}
	for _, skipped := range result.Skipped {
		b.logger.Warn("message dropped from group", zap.Int("index", skipped.Index), zap.Error(skipped.Err))
	}
	return b.format.Marshal(result.Group)
}

func (b *Bridge) onMessage(msg *nats.Msg) {
	out, err := b.Handle(b.ctx, msg.Data)
	if err != nil {
		b.logger.Error("failed to process group", zap.Error(err))
		return
	}

	target := b.opts.OutputSubject
	if target == "" {
		target = msg.Reply
	}
	if target == "" {
		b.logger.Warn("no output subject or reply subject, dropping result")
		return
	}
	if b.pub == nil {
		b.logger.Error("no publisher configured, dropping result")
		return
	}
	if err := b.pub.Publish(target, out); err != nil {
		b.logger.Error("failed to publish group", zap.String("target", target), zap.Error(err))
		return
	}

	b.mu.Lock()
	b.handled++
	b.mu.Unlock()
}
