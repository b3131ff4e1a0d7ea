package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/bimmerbailey/templar/internal/normalize"
	"github.com/bimmerbailey/templar/internal/prompt"
)

// Repairer turns reviewer feedback into a refined pattern by continuing the
// proposer's conversation, so the model keeps the context of its own
// original derivation.
type Repairer struct {
	proposer *Proposer
}

// NewRepairer creates the refinement collaborator on top of an existing
// proposer.
func NewRepairer(proposer *Proposer) *Repairer {
	return &Repairer{proposer: proposer}
}

// Refine feeds the reviewer's issues and suggestions back and returns the
// regenerated pattern. If the follow-up itself fails, one recovery attempt
// is made by replaying the failure to the model; after that the error is
// surfaced to the caller as a repair failure.
func (r *Repairer) Refine(ctx context.Context, pattern string, issues, suggestions []string, line normalize.Line, sourceContext string) (string, error) {
	messages, err := prompt.Build(prompt.TypeRefine, prompt.BuildOptions{
		Pattern:     pattern,
		Line:        line.Canonical,
		Context:     sourceContext,
		Issues:      issues,
		Suggestions: suggestions,
	})
	if err != nil {
		return "", err
	}

	proposal, err := r.proposer.FollowUp(ctx, messages[0].Content)
	if err != nil {
		proposal, err = r.retryFromError(ctx, err, line, sourceContext)
		if err != nil {
			return "", err
		}
	}
	return extractPattern(proposal)
}

// retryFromError replays a failed follow-up to the model with the error
// attached, giving it one chance to regenerate a usable reply.
func (r *Repairer) retryFromError(ctx context.Context, cause error, line normalize.Line, sourceContext string) (Proposal, error) {
	lastReply := r.proposer.LastResponse()
	if lastReply == "" {
		lastReply = "[no previous response]"
	}

	var sb strings.Builder
	sb.WriteString("ERROR CORRECTION REQUEST\n")
	fmt.Fprintf(&sb, "Context: %s\n", sourceContext)
	fmt.Fprintf(&sb, "Sample: %s\n\n", line.Canonical)
	fmt.Fprintf(&sb, "Previous LLM response:\n%s\n\n", lastReply)
	fmt.Fprintf(&sb, "Processing error encountered:\n%v\n\n", cause)
	sb.WriteString("Analyze the issue and regenerate a correct JSON response that follows the original instructions.")

	return r.proposer.FollowUp(ctx, sb.String())
}

func extractPattern(proposal Proposal) (string, error) {
	pattern := strings.TrimSpace(proposal.Pattern)
	if pattern == "" {
		return "", fmt.Errorf("repairer: %w: follow-up missing pattern", ErrCollaborator)
	}
	return pattern, nil
}
