// Package observability exposes the server's metrics through the OpenTelemetry
// metric API with a Prometheus exporter. A zero-value Collector is a no-op, so
// metrics can be disabled without sprinkling nil checks through callers.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Collector holds the OKR server's instruments.
type Collector struct {
	provider *sdkmetric.MeterProvider

	toolExecutions  metric.Int64Counter
	llmRequests     metric.Int64Counter
	llmTokensInput  metric.Int64Counter
	llmTokensOutput metric.Int64Counter
	chatTurns       metric.Int64Counter
	streamClients   metric.Int64UpDownCounter
	objectivesLive  metric.Int64UpDownCounter
}

// NewCollector builds a collector backed by a Prometheus exporter. Scrape it
// through Handler.
func NewCollector() (*Collector, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter("okrbuilder")

	c := &Collector{provider: provider}

	if c.toolExecutions, err = meter.Int64Counter(
		"okr.tool.executions.total",
		metric.WithDescription("Mutation tool executions by tool and outcome"),
		metric.WithUnit("{execution}"),
	); err != nil {
		return nil, fmt.Errorf("create tool executions counter: %w", err)
	}

	if c.llmRequests, err = meter.Int64Counter(
		"okr.llm.requests.total",
		metric.WithDescription("Completion requests by model and status"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("create llm requests counter: %w", err)
	}

	if c.llmTokensInput, err = meter.Int64Counter(
		"okr.llm.tokens.input",
		metric.WithDescription("Prompt tokens sent to the provider"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, fmt.Errorf("create input token counter: %w", err)
	}

	if c.llmTokensOutput, err = meter.Int64Counter(
		"okr.llm.tokens.output",
		metric.WithDescription("Completion tokens received from the provider"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, fmt.Errorf("create output token counter: %w", err)
	}

	if c.chatTurns, err = meter.Int64Counter(
		"okr.chat.turns.total",
		metric.WithDescription("Completed chat turns by status"),
		metric.WithUnit("{turn}"),
	); err != nil {
		return nil, fmt.Errorf("create chat turns counter: %w", err)
	}

	if c.streamClients, err = meter.Int64UpDownCounter(
		"okr.stream.clients",
		metric.WithDescription("Connected state-stream websocket clients"),
		metric.WithUnit("{client}"),
	); err != nil {
		return nil, fmt.Errorf("create stream clients gauge: %w", err)
	}

	if c.objectivesLive, err = meter.Int64UpDownCounter(
		"okr.objectives.live",
		metric.WithDescription("Objectives currently in the session state"),
		metric.WithUnit("{objective}"),
	); err != nil {
		return nil, fmt.Errorf("create live objectives gauge: %w", err)
	}

	return c, nil
}

// Handler returns the Prometheus scrape handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.Handler()
}

// Shutdown flushes the meter provider.
func (c *Collector) Shutdown(ctx context.Context) error {
	if c == nil || c.provider == nil {
		return nil
	}
	return c.provider.Shutdown(ctx)
}

// RecordToolExecution counts one mutation tool run. Outcome is "applied",
// "rejected" or "pending".
func (c *Collector) RecordToolExecution(tool, outcome string) {
	if c == nil || c.toolExecutions == nil {
		return
	}
	c.toolExecutions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("outcome", outcome),
	))
}

// RecordLLMRequest counts one completion round trip and its token usage.
func (c *Collector) RecordLLMRequest(model, status string, promptTokens, completionTokens int) {
	if c == nil || c.llmRequests == nil {
		return
	}
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("status", status),
	)
	c.llmRequests.Add(ctx, 1, attrs)
	modelAttr := metric.WithAttributes(attribute.String("model", model))
	c.llmTokensInput.Add(ctx, int64(promptTokens), modelAttr)
	c.llmTokensOutput.Add(ctx, int64(completionTokens), modelAttr)
}

// RecordChatTurn counts one completed user turn.
func (c *Collector) RecordChatTurn(status string) {
	if c == nil || c.chatTurns == nil {
		return
	}
	c.chatTurns.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

// StreamClientConnected and StreamClientDisconnected track the websocket
// client gauge.
func (c *Collector) StreamClientConnected() {
	if c == nil || c.streamClients == nil {
		return
	}
	c.streamClients.Add(context.Background(), 1)
}

func (c *Collector) StreamClientDisconnected() {
	if c == nil || c.streamClients == nil {
		return
	}
	c.streamClients.Add(context.Background(), -1)
}

// ObjectiveCountChanged moves the live objective gauge by delta.
func (c *Collector) ObjectiveCountChanged(delta int) {
	if c == nil || c.objectivesLive == nil {
		return
	}
	c.objectivesLive.Add(context.Background(), int64(delta))
}
