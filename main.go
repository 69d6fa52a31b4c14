package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/mcncl/jsoncodec/internal/batch"
	"github.com/mcncl/jsoncodec/internal/config"
	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/formatter"
	"github.com/mcncl/jsoncodec/internal/logging"
	"github.com/mcncl/jsoncodec/internal/message"
	"github.com/mcncl/jsoncodec/internal/models"
	"github.com/mcncl/jsoncodec/internal/natsbridge"
	"github.com/mcncl/jsoncodec/internal/pipeline"
	"github.com/mcncl/jsoncodec/internal/protoadapter"
	"github.com/mcncl/jsoncodec/internal/treeyaml"
	"github.com/mcncl/jsoncodec/internal/wire"
	"go.uber.org/zap"
)

// Version information
const (
	Version = "0.1.0"
)

// Body formats for the message tree side of decode and encode
const (
	BodyFormatYAML  = "yaml"
	BodyFormatProto = "proto"
)

// CLI defines the command-line interface
var CLI struct {
	Config         string           `help:"Path to a config file (YAML, TOML or JSON). Defaults to the nearest .jsoncodec.* file." short:"c" type:"path"`
	Debug          bool             `help:"Enable debug logging." short:"d"`
	LogLevel       string           `help:"Log level (debug, info, warn, error)."`
	EncodeTypeInfo *bool            `help:"Turn number(...) and boolean(...) tags back into JSON numbers and booleans on encode."`
	DecodeTypeInfo *bool            `help:"Tag JSON numbers and booleans on decode."`
	RootArrayField *string          `help:"Field name a top-level JSON array is nested under."`
	Version        kong.VersionFlag `help:"Show version information." short:"v"`

	Decode DecodeCmd `cmd:"" help:"Decode a JSON document into a message tree (YAML or protobuf Struct)."`
	Encode EncodeCmd `cmd:"" help:"Encode a message tree (YAML or protobuf Struct) into a JSON document."`
	Serve  ServeCmd  `cmd:"" help:"Transcode message groups received over NATS."`
}

// Context holds the runtime context shared by commands
type Context struct {
	Config *config.Config
	Logger *zap.Logger
	Stdin  io.Reader
	Stdout io.Writer
}

// DecodeCmd decodes JSON to a message tree
type DecodeCmd struct {
	Input        string `help:"Path to input JSON file. If not specified, reads from stdin." short:"i" type:"path"`
	Output       string `help:"Path to output file. If not specified, writes to stdout." short:"o" type:"path"`
	BodyFormat   string `help:"Output format of the message tree (yaml, proto)." enum:"yaml,proto" default:"yaml"`
	Envelope     bool   `help:"Print the message envelope around the body (yaml only)." short:"e"`
	Direction    string `help:"Communication direction of the message (first, second)." enum:"first,second" default:"first"`
	SessionAlias string `help:"Session alias stamped on the message." default:"cli"`
}

// EncodeCmd encodes a message tree to JSON
type EncodeCmd struct {
	Input      string `help:"Path to input tree file. If not specified, reads from stdin." short:"i" type:"path"`
	Output     string `help:"Path to output JSON file. If not specified, writes to stdout." short:"o" type:"path"`
	BodyFormat string `help:"Input format of the message tree (yaml, proto)." enum:"yaml,proto" default:"yaml"`
	Pretty    bool   `help:"Indent the JSON output." short:"p"`
	Indent    int    `help:"Indentation width used with --pretty." default:"2"`
	Direction string `help:"Communication direction of the message (first, second)." enum:"first,second" default:"second"`
}

// ServeCmd runs the NATS bridge
type ServeCmd struct {
	URL     string `help:"NATS server URL. Overrides nats.url."`
	Subject string `help:"Subject to consume groups from. Overrides nats.subject."`
}

func main() {
	parser := kong.Must(&CLI,
		kong.Name("jsoncodec"),
		kong.Description("Transcode JSON documents to structured message trees and back"),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		parser.FatalIfErrorf(err)
	}

	appCtx, err := newContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		os.Exit(1)
	}
	defer func() { _ = appCtx.Logger.Sync() }()

	if err := kctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: jsoncodec --help\n")
		os.Exit(1)
	}
}

// newContext loads the configuration and builds the logger
func newContext() (*Context, error) {
	cfg, err := config.LoadConfigWithCLI(CLI.Config, config.Overrides{
		EncodeTypeInfo: CLI.EncodeTypeInfo,
		DecodeTypeInfo: CLI.DecodeTypeInfo,
		RootArrayField: CLI.RootArrayField,
		LogLevel:       CLI.LogLevel,
		Debug:          CLI.Debug,
	})
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded",
		zap.Bool("encodeTypeInfo", cfg.Codec.EncodeTypeInfo),
		zap.Bool("decodeTypeInfo", cfg.Codec.DecodeTypeInfo),
		zap.String("rootArrayField", cfg.Codec.RootArrayField))

	return &Context{Config: cfg, Logger: logger, Stdin: os.Stdin, Stdout: os.Stdout}, nil
}

func (c *Context) pipeline() *pipeline.Codec {
	return pipeline.New(c.Config.Codec.Settings(), pipeline.WithLogger(c.Logger))
}

// Run decodes the input document
func (d *DecodeCmd) Run(ctx *Context) error {
	if d.Envelope && d.BodyFormat == BodyFormatProto {
		return errors.NewConfigError("--envelope is only available with the yaml body format", errors.ErrInvalidConfig)
	}
	data, err := readInput(ctx, d.Input)
	if err != nil {
		return err
	}

	in := message.AnyMessage{Raw: &message.RawMessage{
		ID: message.MessageID{
			SessionAlias: d.SessionAlias,
			Direction:    parseDirection(d.Direction),
			Timestamp:    time.Now().UTC(),
		},
		Protocol: pipeline.Protocol,
		Body:     data,
	}}
	out, err := ctx.pipeline().DecodeMessage(in)
	if err != nil {
		return err
	}

	var tree []byte
	switch {
	case d.BodyFormat == BodyFormatProto:
		tree, err = protoadapter.MarshalMapping(out.Parsed.Body)
	case d.Envelope:
		tree, err = treeyaml.MarshalMessage(out.Parsed)
	default:
		tree, err = treeyaml.Marshal(out.Parsed.Body)
	}
	if err != nil {
		return err
	}
	return writeOutput(ctx, d.Output, tree)
}

// Run encodes the input tree
func (e *EncodeCmd) Run(ctx *Context) error {
	data, err := readInput(ctx, e.Input)
	if err != nil {
		return err
	}

	var body *models.Mapping
	if e.BodyFormat == BodyFormatProto {
		body, err = protoadapter.UnmarshalMapping(data)
	} else {
		body, err = treeyaml.Unmarshal(data)
	}
	if err != nil {
		return err
	}

	in := message.AnyMessage{Parsed: &message.ParsedMessage{
		ID:       message.MessageID{SessionAlias: "cli", Direction: parseDirection(e.Direction)},
		Protocol: pipeline.Protocol,
		Body:     body,
	}}
	out, err := ctx.pipeline().EncodeMessage(in)
	if err != nil {
		return err
	}

	doc := out.Raw.Body
	if e.Pretty && len(doc) > 0 {
		doc, err = formatter.NewIndentFormatter(e.Indent).Reformat(doc)
		if err != nil {
			return err
		}
	}
	if len(doc) > 0 {
		doc = append(doc, '\n')
	}
	return writeOutput(ctx, e.Output, doc)
}

// Run serves until interrupted
func (s *ServeCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	if s.URL != "" {
		cfg.NATS.URL = s.URL
	}
	if s.Subject != "" {
		cfg.NATS.Subject = s.Subject
	}

	format, err := wire.Lookup(cfg.NATS.Wire)
	if err != nil {
		return err
	}
	mode, err := natsbridge.ParseMode(cfg.NATS.Mode)
	if err != nil {
		return err
	}
	policy, err := batch.ParsePolicy(cfg.Batch.Policy)
	if err != nil {
		return err
	}

	runner, err := batch.NewRunner(cfg.Batch.Workers, policy, batch.WithLogger(ctx.Logger))
	if err != nil {
		return err
	}
	defer runner.Close()

	conn, err := natsbridge.Connect(cfg.NATS.URL, ctx.Logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	bridge := natsbridge.New(conn, ctx.pipeline(), runner, format, natsbridge.Options{
		Subject:       cfg.NATS.Subject,
		Queue:         cfg.NATS.Queue,
		OutputSubject: cfg.NATS.OutputSubject,
		Mode:          mode,
	}, ctx.Logger)
	if err := bridge.Start(); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	ctx.Logger.Info("shutting down", zap.Int("groups", bridge.Handled()))
	return bridge.Close()
}

func parseDirection(s string) message.Direction {
	if s == "second" {
		return message.DirectionSecond
	}
	return message.DirectionFirst
}

// readInput reads from file or stdin
func readInput(ctx *Context, path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NewInputError(fmt.Sprintf("file '%s' does not exist", path), errors.ErrFileNotFound)
			}
			return nil, errors.NewInputError(fmt.Sprintf("failed to read file '%s'", path), err)
		}
		return data, nil
	}

	if f, ok := ctx.Stdin.(*os.File); ok {
		info, err := f.Stat()
		if err != nil {
			return nil, errors.NewInputError("failed to access stdin", err)
		}
		if info.Mode()&os.ModeCharDevice != 0 {
			return nil, errors.NewInputError("no input provided", errors.ErrNoInput)
		}
	}

	data, err := io.ReadAll(ctx.Stdin)
	if err != nil {
		return nil, errors.NewInputError("failed to read from stdin", err)
	}
	return data, nil
}

// writeOutput writes to file or stdout
func writeOutput(ctx *Context, path string, data []byte) error {
	if path != "" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", path), err)
		}
		ctx.Logger.Info("output written", zap.String("path", path))
		return nil
	}

	if _, err := ctx.Stdout.Write(data); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}
