package agent

import (
	"context"
	"log/slog"

	"github.com/bimmerbailey/templar/internal/llm"
	"github.com/bimmerbailey/templar/internal/metrics"
	"github.com/bimmerbailey/templar/internal/normalize"
	"github.com/bimmerbailey/templar/internal/prompt"
)

// Adjudication decisions. Anything else in a resolution payload is invalid
// and escalated by the pipeline.
const (
	DecisionReplaceConflicting = "replace_conflicting"
	DecisionRefineCandidate    = "refine_candidate"
)

// TemplateConflict describes one stored template the candidate collides
// with.
type TemplateConflict struct {
	TemplateID string
	Pattern    string
	Example    string
}

// Resolution is the adjudicator's raw decision payload. The pipeline
// validates it before applying anything; Raw preserves the accepted
// response verbatim for escalation records.
type Resolution struct {
	Decision    string     `json:"decision"`
	Reasoning   string     `json:"reasoning"`
	NewPattern  string     `json:"new_pattern"`
	ReplacedIDs StringList `json:"replaced_ids"`

	Raw string `json:"-"`
}

// Adjudicator resolves conflicts between a candidate pattern and existing
// templates.
type Adjudicator struct {
	caller
}

// NewAdjudicator creates the conflict-resolution collaborator.
func NewAdjudicator(client llm.Provider, corrector *Corrector, opts *llm.ChatOptions, logger *slog.Logger, m *metrics.Metrics) *Adjudicator {
	return &Adjudicator{caller: caller{
		name:      "adjudicator",
		client:    client,
		opts:      opts,
		corrector: corrector,
		logger:    logger,
		metrics:   m,
	}}
}

// Resolve presents the conflict and returns the model's decision payload.
func (a *Adjudicator) Resolve(ctx context.Context, candidatePattern, reasoning string, line normalize.Line, sourceContext string, conflicts []TemplateConflict) (Resolution, error) {
	promptConflicts := make([]prompt.Conflict, len(conflicts))
	for i, c := range conflicts {
		promptConflicts[i] = prompt.Conflict{
			TemplateID: c.TemplateID,
			Pattern:    c.Pattern,
			Example:    c.Example,
		}
	}

	messages, err := prompt.Build(prompt.TypeAdjudicate, prompt.BuildOptions{
		Pattern:   candidatePattern,
		Line:      line.Canonical,
		Context:   sourceContext,
		Reasoning: reasoning,
		Conflicts: promptConflicts,
	})
	if err != nil {
		return Resolution{}, err
	}

	var resolution Resolution
	raw, _, err := a.callJSON(ctx, messages, &resolution, "Conflict resolver must return JSON")
	if err != nil {
		return Resolution{}, err
	}
	resolution.Raw = raw

	a.logger.Info("conflict adjudicated",
		"decision", resolution.Decision,
		"replaced", len(resolution.ReplacedIDs))
	return resolution, nil
}
