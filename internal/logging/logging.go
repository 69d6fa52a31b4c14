// Package logging builds the zap logger used by the command line and the
// NATS bridge.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mcncl/jsoncodec/internal/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output encodings
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options configure a logger
type Options struct {
	Level  string
	Format string
	// Output defaults to stderr so logs never mix with command output.
	Output io.Writer
}

// ParseLevel validates a level name. An empty name is info.
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	l, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return l, errors.NewConfigError(fmt.Sprintf("unknown log level %q", level), errors.ErrInvalidConfig)
	}
	return l, nil
}

// New creates a logger
func New(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch opts.Format {
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case FormatConsole, "":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, errors.NewConfigError(fmt.Sprintf("unknown logging format %q (want console or json)", opts.Format), errors.ErrInvalidConfig)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)
	return zap.New(core), nil
}
