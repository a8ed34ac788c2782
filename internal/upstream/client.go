package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"corrector-proxy/internal/apierr"
	"corrector-proxy/internal/metrics"
)

// cap on how much of an error body is read for logging
const maxErrorBody = 64 * 1024

// Transform sends text to the completion endpoint using the prompt for
// req.Mode. The call is aborted once cfg.Timeout elapses. An empty
// completion is a valid result, not an error.
func (c *client) Transform(parentCtx context.Context, req Request) (string, error) {
	start := time.Now()

	if !req.Mode.Valid() {
		return "", apierr.New(apierr.InvalidRequest, "Invalid mode")
	}

	ctx, cancel := context.WithTimeout(parentCtx, c.cfg.Timeout)
	defer cancel()

	pReq := providerChatRequest{
		Model: c.cfg.Model,
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: SystemPrompt(req.Mode)},
			{Role: RoleUser, Content: req.Text},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	bodyBytes, err := json.Marshal(pReq)
	if err != nil {
		return "", c.fail(fmt.Errorf("marshal request: %w", err), apierr.New(apierr.Internal, ""), start)
	}

	url := c.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", c.fail(fmt.Errorf("build HTTP request: %w", err), apierr.New(apierr.Internal, ""), start)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", c.fail(err, mapTransportError(err), start)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		mapped := mapStatus(resp.StatusCode, resp.Header, time.Now())

		var perr providerErrorResponse
		if err := json.Unmarshal(body, &perr); err == nil && perr.Error.Message != "" {
			c.logger.Error("upstream provider error",
				zap.Int("status", resp.StatusCode),
				zap.String("error_type", perr.Error.Type),
				zap.String("error_message", truncate(perr.Error.Message, 200)),
				zap.String("mapped_code", string(mapped.Code)),
			)
		} else {
			c.logger.Error("upstream error",
				zap.Int("status", resp.StatusCode),
				zap.String("body", truncate(string(body), 200)),
				zap.String("mapped_code", string(mapped.Code)),
			)
		}
		metrics.UpstreamCallsTotal.WithLabelValues(string(mapped.Code)).Inc()
		return "", mapped
	}

	var pResp providerChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&pResp); err != nil {
		return "", c.fail(fmt.Errorf("decode upstream response: %w", err), mapTransportError(err), start)
	}

	output := firstContent(pResp)

	usage := providerUsage{}
	if pResp.Usage != nil {
		usage = *pResp.Usage
	}
	c.logger.Info("upstream request completed",
		zap.String("model", pResp.Model),
		zap.String("mode", string(req.Mode)),
		zap.Int("prompt_tokens", usage.PromptTokens),
		zap.Int("completion_tokens", usage.CompletionTokens),
		zap.Bool("empty_output", output == ""),
		zap.Duration("duration", time.Since(start)),
	)
	metrics.UpstreamCallsTotal.WithLabelValues("ok").Inc()

	return output, nil
}

func (c *client) fail(cause error, mapped *apierr.Error, start time.Time) error {
	c.logger.Error("upstream request failed",
		zap.Error(cause),
		zap.String("mapped_code", string(mapped.Code)),
		zap.String("mapped_message", mapped.Message),
		zap.Duration("duration", time.Since(start)),
	)
	metrics.UpstreamCallsTotal.WithLabelValues(string(mapped.Code)).Inc()
	return mapped
}

func firstContent(resp providerChatResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	msg := resp.Choices[0].Message
	if msg == nil || msg.Content == nil {
		return ""
	}
	return strings.TrimSpace(*msg.Content)
}

// truncate limits string length for logging
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
