package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bimmerbailey/templar/internal/llm"
	"github.com/bimmerbailey/templar/internal/metrics"
	"github.com/bimmerbailey/templar/internal/normalize"
	"github.com/bimmerbailey/templar/internal/prompt"
)

// Proposal is a candidate template for one log line.
type Proposal struct {
	Pattern   string `json:"pattern"`
	Reasoning string `json:"reasoning"`
}

// Proposer derives template patterns for individual log lines. It keeps the
// conversation of the most recent proposal so refinement requests can
// continue it instead of starting over.
type Proposer struct {
	caller

	history      []llm.Message
	lastResponse string
}

// NewProposer creates the proposal collaborator.
func NewProposer(client llm.Provider, corrector *Corrector, opts *llm.ChatOptions, logger *slog.Logger, m *metrics.Metrics) *Proposer {
	return &Proposer{caller: caller{
		name:      "proposer",
		client:    client,
		opts:      opts,
		corrector: corrector,
		logger:    logger,
		metrics:   m,
	}}
}

// Propose requests a candidate pattern for the line. It fails visibly,
// never with an empty pattern, when the collaborator produces nothing
// usable.
func (p *Proposer) Propose(ctx context.Context, line normalize.Line, sourceContext string) (Proposal, error) {
	if line.Canonical == "" {
		return Proposal{}, fmt.Errorf("proposer: %w: no content to derive a template from", ErrCollaborator)
	}

	messages, err := prompt.Build(prompt.TypePropose, prompt.BuildOptions{
		Line:    line.Canonical,
		Context: sourceContext,
	})
	if err != nil {
		return Proposal{}, err
	}

	var proposal Proposal
	response, history, err := p.callJSON(ctx, messages, &proposal, "Template derivation must return JSON")
	if err != nil {
		return Proposal{}, err
	}
	p.lastResponse = response
	p.history = history

	proposal.Pattern = strings.TrimSpace(proposal.Pattern)
	if proposal.Pattern == "" {
		return Proposal{}, fmt.Errorf("proposer: %w: response missing pattern", ErrCollaborator)
	}
	return proposal, nil
}

// FollowUp extends the most recent proposal conversation with an extra user
// turn and decodes the reply as a fresh proposal payload.
func (p *Proposer) FollowUp(ctx context.Context, userPrompt string) (Proposal, error) {
	if len(p.history) == 0 {
		return Proposal{}, fmt.Errorf("proposer: %w: no existing conversation to extend", ErrCollaborator)
	}

	conversation := append(append([]llm.Message(nil), p.history...), llm.Message{Role: "user", Content: userPrompt})

	var proposal Proposal
	response, history, err := p.callJSON(ctx, conversation, &proposal, "Template follow-up must return JSON")
	if err != nil {
		return Proposal{}, err
	}
	p.lastResponse = response
	p.history = history
	return proposal, nil
}

// LastResponse returns the raw text of the most recent accepted reply.
func (p *Proposer) LastResponse() string { return p.lastResponse }
