package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/venkytv/event-creator/pkg/ai"
	aiproviders "github.com/venkytv/event-creator/pkg/ai/providers"
	"github.com/venkytv/event-creator/pkg/calendar"
	calproviders "github.com/venkytv/event-creator/pkg/calendar/providers"
	"github.com/venkytv/event-creator/pkg/config"
	"github.com/venkytv/event-creator/pkg/creator"
	"github.com/venkytv/event-creator/pkg/parser"
)

// Request is the Lambda invocation payload
type Request struct {
	Text string `json:"text"`
	// Add writes the parsed event to the configured calendar
	Add bool `json:"add,omitempty"`
}

// Response is the Lambda result
type Response struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Event      json.RawMessage `json:"event,omitempty"`
	// Trace lists the states the request passed through
	Trace []string `json:"trace,omitempty"`
}

// Handler parses event text and optionally stores the result
type Handler struct {
	parser *parser.Parser
	writer calendar.Writer
	logger *slog.Logger
}

// NewHandler builds a handler from configuration. A dry-run calendar
// disables writes.
func NewHandler(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Handler, error) {
	modelFactory := ai.NewDefaultModelFactory()
	aiproviders.InitializeBuiltinModels(modelFactory)
	registry := aiproviders.BuildRegistry(ctx, modelFactory, cfg.Models, logger)

	opts := []parser.Option{
		parser.WithModel(cfg.Parser.Model),
		parser.WithLocation(cfg.Location()),
		parser.WithLogger(logger),
	}
	if cfg.Parser.DecodeReminders {
		opts = append(opts, parser.WithDecoder(parser.NewDecoder(parser.WithReminders())))
	}

	h := &Handler{
		parser: parser.New(registry, opts...),
		logger: logger,
	}

	if cfg.Calendar.Type != "dry-run" {
		factory := calendar.NewDefaultWriterFactory()
		calproviders.InitializeBuiltinWriters(factory)
		writer, err := factory.CreateWriter(cfg, logger)
		if err != nil {
			return nil, err
		}
		h.writer = writer
	}

	return h, nil
}

// Handle runs one request through a fresh state machine
func (h *Handler) Handle(ctx context.Context, req Request) (Response, error) {
	machine := creator.New(h.parser, h.writer, creator.WithLogger(h.logger))
	defer machine.Close()

	states, stop := machine.Subscribe()
	resp, err := h.handle(ctx, machine, req)

	stop()
	for s := range states {
		resp.Trace = append(resp.Trace, s.Name())
	}
	return resp, err
}

func (h *Handler) handle(ctx context.Context, machine *creator.Machine, req Request) (Response, error) {
	machine.UpdateText(req.Text)
	if err := machine.ParseEvent(ctx); err != nil {
		return Response{StatusCode: http.StatusConflict, Message: err.Error()}, nil
	}

	var resp Response
	switch s := machine.State().(type) {
	case creator.ParseError:
		return Response{StatusCode: parseStatus(s.Err), Message: s.Message}, nil
	case creator.Loaded:
		data, err := parser.EncodeEvent(s.Event)
		if err != nil {
			return Response{StatusCode: http.StatusInternalServerError, Message: err.Error()}, err
		}
		resp = Response{StatusCode: http.StatusOK, Message: "Event parsed", Event: data}
	default:
		return Response{StatusCode: http.StatusInternalServerError, Message: "unexpected state " + s.Name()}, nil
	}

	if !req.Add {
		return resp, nil
	}
	if h.writer == nil {
		resp.Message = "Event parsed; calendar writes are disabled"
		return resp, nil
	}

	if err := machine.ConfirmEvent(ctx); err != nil {
		return Response{StatusCode: http.StatusConflict, Message: err.Error()}, nil
	}

	switch s := machine.State().(type) {
	case creator.CalendarSuccess:
		resp.StatusCode = http.StatusCreated
		resp.Message = s.Message
	case creator.CalendarError:
		resp.StatusCode = http.StatusBadGateway
		if errors.Is(s.Err, calendar.ErrPermissionDenied) {
			resp.StatusCode = http.StatusForbidden
		}
		resp.Message = s.Message
	}
	return resp, nil
}

// parseStatus maps a parse failure to an HTTP-style status code
func parseStatus(err error) int {
	var modelErr *parser.ModelError
	switch {
	case err == nil:
		// blank text is caught before the parser runs
		return http.StatusBadRequest
	case errors.Is(err, parser.ErrNoModelAvailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &modelErr):
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

func main() {
	path := os.Getenv("EVENT_CREATOR_CONFIG")
	if path == "" {
		path = "config.yaml"
	}

	ctx := context.Background()

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("Failed to load config", "path", path, "error", err)
		os.Exit(1)
	}
	logger := cfg.Logging.NewLogger(os.Stdout, false)

	if err := cfg.ResolveSecretsFromSSM(ctx); err != nil {
		logger.Error("Failed to resolve secrets", "error", err)
		os.Exit(1)
	}

	handler, err := NewHandler(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize handler", "error", err)
		os.Exit(1)
	}

	lambda.Start(handler.Handle)
}
