package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zhouzirui/aura/backend/internal/model/chat"
	"github.com/zhouzirui/aura/backend/internal/service/history"
)

const instrumentationName = "github.com/zhouzirui/aura/backend/internal/service/ai"

// Client submits one utterance plus its prior turns to the chat model and classifies the outcome.
type Client struct {
	instruction string
	chain       compose.Runnable[map[string]any, *schema.Message]

	tracer    trace.Tracer
	exchanges metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewClient compiles the exchange chain around chatModel using instruction as the system prompt.
func NewClient(ctx context.Context, chatModel model.ChatModel, instruction string) (*Client, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile exchange chain: %w", err)
	}

	meter := otel.Meter(instrumentationName)
	exchanges, err := meter.Int64Counter("aura.exchanges",
		metric.WithDescription("Number of model exchanges by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange counter: %w", err)
	}
	duration, err := meter.Float64Histogram("aura.exchange.duration",
		metric.WithDescription("Duration of model exchanges"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange histogram: %w", err)
	}

	return &Client{
		instruction: instruction,
		chain:       runnable,
		tracer:      otel.Tracer(instrumentationName),
		exchanges:   exchanges,
		duration:    duration,
	}, nil
}

// Exchange sends priorTurns as context and newUtterance as the turn to answer. It makes exactly one
// model call and never returns an error: failures are reported through Result.Failure.
func (c *Client) Exchange(ctx context.Context, priorTurns []chat.Turn, newUtterance string) (result Result) {
	ctx, span := c.tracer.Start(ctx, "ai.exchange",
		trace.WithAttributes(attribute.Int("ai.prior_turns", len(priorTurns))))
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result = communicationFailure(fmt.Errorf("chat model panicked: %v", r))
		}
		c.record(ctx, span, result, time.Since(started))
		span.End()
	}()

	input := map[string]any{
		"system":  c.instruction,
		"history": history.ToSchema(priorTurns),
		"query":   newUtterance,
	}

	response, err := c.chain.Invoke(ctx, input)
	if err != nil {
		return communicationFailure(fmt.Errorf("failed to run exchange chain: %w", err))
	}
	if response == nil || response.Content == "" {
		return Result{Failure: EmptyReply}
	}

	return Result{Reply: response.Content}
}

func (c *Client) record(ctx context.Context, span trace.Span, result Result, elapsed time.Duration) {
	outcome := attribute.String("outcome", result.Failure.String())
	c.exchanges.Add(ctx, 1, metric.WithAttributes(outcome))
	c.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(outcome))
	span.SetAttributes(outcome)

	if result.OK() {
		log.Printf("[ai] exchange succeeded, length=%d, elapsed=%s", len(result.Reply), elapsed)
		return
	}

	err := result.Err()
	span.RecordError(err)
	span.SetStatus(codes.Error, result.Failure.String())
	log.Printf("[ai] exchange failed, kind=%s, elapsed=%s: %v", result.Failure, elapsed, err)
}
