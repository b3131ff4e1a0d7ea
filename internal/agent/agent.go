// Package agent implements the LLM collaborators the parsing pipeline
// delegates to: source classification, template proposal, review,
// refinement, and conflict adjudication.
//
// Every collaborator shares the same recovery behavior for malformed
// output: a response that cannot be decoded into its expected JSON shape is
// retried exactly once through a Corrector (the full prior exchange plus an
// error description is re-submitted) before the call is treated as a hard
// failure. The Corrector is injected at construction time; there is no
// shared global repair channel.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/bimmerbailey/templar/internal/llm"
	"github.com/bimmerbailey/templar/internal/metrics"
	"github.com/bimmerbailey/templar/internal/prompt"
)

// ErrCollaborator indicates an LLM call returned unusable content even
// after the single correction retry. Callers treat it as a per-line
// failure, never as a fatal condition.
var ErrCollaborator = errors.New("collaborator returned unusable content")

var (
	fenceOpen  = regexp.MustCompile("^```(?:json)?")
	fenceClose = regexp.MustCompile("```$")
	jsonObject = regexp.MustCompile(`(?s)\{.*\}`)
)

// StringList decodes a JSON field that collaborators sometimes emit as a
// bare string instead of a list. A scalar becomes a single-element list.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = []string{single}
		return nil
	}
	// Anything else (number, object) is kept verbatim rather than dropped.
	*s = []string{string(data)}
	return nil
}

// caller carries the shared plumbing every collaborator needs: the provider,
// chat options, the injected corrector, structured logging, and token
// accounting.
type caller struct {
	name      string
	client    llm.Provider
	opts      *llm.ChatOptions
	corrector *Corrector
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// chat performs one synchronous LLM round trip and rejects empty content.
func (c *caller) chat(ctx context.Context, messages []llm.Message) (string, error) {
	resp, err := c.client.Chat(ctx, messages, c.opts)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.name, err)
	}
	if c.metrics != nil && resp.TokensTotal > 0 {
		model := resp.Model
		if model == "" {
			model = "unknown"
		}
		c.metrics.AddTokens(model, resp.TokensTotal)
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", fmt.Errorf("%s: %w: empty response", c.name, ErrCollaborator)
	}
	c.logger.Debug("collaborator responded", "agent", c.name, "chars", len(content))
	return content, nil
}

// callJSON sends messages and decodes the response into target. A response
// that fails to decode is retried once through the corrector. On success it
// returns the accepted raw response and the conversation history including
// the assistant turn, so proposal conversations can be continued.
func (c *caller) callJSON(ctx context.Context, messages []llm.Message, target any, errDesc string) (string, []llm.Message, error) {
	history := append([]llm.Message(nil), messages...)

	response, err := c.chat(ctx, history)
	if err != nil {
		return "", nil, err
	}
	if decodeJSON(response, target) {
		history = append(history, llm.Message{Role: "assistant", Content: response})
		return response, history, nil
	}

	if c.corrector == nil {
		return "", nil, fmt.Errorf("%s: %w: no valid JSON in response", c.name, ErrCollaborator)
	}

	c.logger.Debug("collaborator response unparseable, attempting correction", "agent", c.name)
	repaired, err := c.corrector.Repair(ctx, history, response, errDesc)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w: correction failed: %v", c.name, ErrCollaborator, err)
	}
	if !decodeJSON(repaired, target) {
		return "", nil, fmt.Errorf("%s: %w: no valid JSON after correction retry", c.name, ErrCollaborator)
	}
	history = append(history, llm.Message{Role: "assistant", Content: repaired})
	return repaired, history, nil
}

// decodeJSON extracts a JSON object from free-form model output. Code
// fences are stripped; when the whole payload is not valid JSON, the first
// embedded object is tried.
func decodeJSON(payload string, target any) bool {
	text := strings.TrimSpace(payload)
	if strings.HasPrefix(text, "```") {
		text = fenceOpen.ReplaceAllString(text, "")
		text = fenceClose.ReplaceAllString(strings.TrimSpace(text), "")
		text = strings.TrimSpace(text)
	}
	if json.Unmarshal([]byte(text), target) == nil {
		return true
	}
	if embedded := jsonObject.FindString(text); embedded != "" {
		return json.Unmarshal([]byte(embedded), target) == nil
	}
	return false
}

// Corrector is the generic error-repair collaborator. It re-submits a full
// prior exchange together with a description of what was wrong and returns
// the regenerated reply.
type Corrector struct {
	caller
}

// NewCorrector creates the correction collaborator.
func NewCorrector(client llm.Provider, opts *llm.ChatOptions, logger *slog.Logger, m *metrics.Metrics) *Corrector {
	return &Corrector{caller: caller{
		name:    "corrector",
		client:  client,
		opts:    opts,
		logger:  logger,
		metrics: m,
	}}
}

// Repair asks the model to regenerate a corrected response for a failed
// exchange. The reply is returned verbatim; the caller re-attempts decoding.
func (c *Corrector) Repair(ctx context.Context, exchange []llm.Message, lastResponse, errorDescription string) (string, error) {
	messages, err := prompt.Build(prompt.TypeCorrection, prompt.BuildOptions{
		Exchange:         prompt.Transcript(exchange),
		LastResponse:     lastResponse,
		ErrorDescription: errorDescription,
	})
	if err != nil {
		return "", err
	}
	return c.chat(ctx, messages)
}
