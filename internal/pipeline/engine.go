// Package pipeline drives the per-line decision flow: match against the
// stored templates or learn a new one through the LLM collaborators, with
// conflict detection and resolution keeping the template set unambiguous.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bimmerbailey/templar/internal/agent"
	"github.com/bimmerbailey/templar/internal/escalate"
	"github.com/bimmerbailey/templar/internal/metrics"
	"github.com/bimmerbailey/templar/internal/normalize"
	"github.com/bimmerbailey/templar/internal/store"
)

// Outcome statuses for one line's learning attempt. Every terminal failure
// is an escalation or a rejection; none aborts the run.
const (
	OutcomeStored       = "stored"
	OutcomeReplaced     = "replaced"
	OutcomeRefined      = "refined"
	OutcomeRejected     = "rejected"
	OutcomeRepairFailed = "repair_failed"
	OutcomeEscalated    = "escalated"
)

// Escalation task kinds.
const (
	TaskTemplateConflict    = "template_conflict"
	TaskCollaboratorFailure = "collaborator_failure"
)

// Outcome summarizes what happened to one unmatched line.
type Outcome struct {
	Status     string
	TemplateID string
	Detail     string
}

// Proposer derives a candidate template for a line.
type Proposer interface {
	Propose(ctx context.Context, line normalize.Line, sourceContext string) (agent.Proposal, error)
}

// Reviewer delivers a verdict on a candidate pattern.
type Reviewer interface {
	Review(ctx context.Context, pattern string, line normalize.Line, sourceContext string) (agent.Report, error)
}

// Repairer regenerates a rejected pattern from reviewer feedback.
type Repairer interface {
	Refine(ctx context.Context, pattern string, issues, suggestions []string, line normalize.Line, sourceContext string) (string, error)
}

// Adjudicator decides how to resolve a template conflict.
type Adjudicator interface {
	Resolve(ctx context.Context, candidatePattern, reasoning string, line normalize.Line, sourceContext string, conflicts []agent.TemplateConflict) (agent.Resolution, error)
}

// Engine is the per-line learning state machine.
type Engine struct {
	proposer    Proposer
	reviewer    Reviewer
	repairer    Repairer
	adjudicator Adjudicator

	queue   *escalate.Queue
	metrics *metrics.Metrics
	logger  *slog.Logger

	repairRetries int
}

// EngineOptions wires an Engine. All collaborator fields are required.
type EngineOptions struct {
	Proposer    Proposer
	Reviewer    Reviewer
	Repairer    Repairer
	Adjudicator Adjudicator
	Queue       *escalate.Queue
	Metrics     *metrics.Metrics
	Logger      *slog.Logger

	// RepairRetries bounds refinement rounds for a rejected candidate.
	// Values below 1 fall back to 1.
	RepairRetries int
}

// NewEngine creates the learning engine.
func NewEngine(opts EngineOptions) *Engine {
	retries := opts.RepairRetries
	if retries < 1 {
		retries = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		proposer:      opts.Proposer,
		reviewer:      opts.Reviewer,
		repairer:      opts.Repairer,
		adjudicator:   opts.Adjudicator,
		queue:         opts.Queue,
		metrics:       opts.Metrics,
		logger:        logger,
		repairRetries: retries,
	}
}

// ProcessLine runs the learning flow for one line that failed to match:
// propose, review, bounded repair, conflict check, then store or resolve.
// The examples map is the conflict-detection fixture set; ProcessLine
// records the line under any template id it stores.
func (e *Engine) ProcessLine(ctx context.Context, line normalize.Line, sourceContext string, lib *store.Library, examples map[string]normalize.Line) Outcome {
	proposal, err := e.proposer.Propose(ctx, line, sourceContext)
	if err != nil {
		return e.escalateFailure("template proposal failed", line, err)
	}

	report, err := e.reviewer.Review(ctx, proposal.Pattern, line, sourceContext)
	if err != nil {
		return e.escalateFailure("template review failed", line, err)
	}

	pattern := proposal.Pattern
	for attempt := 0; !report.Approved && attempt < e.repairRetries; attempt++ {
		refined, err := e.repairer.Refine(ctx, pattern, report.Issues, report.Suggestions, line, sourceContext)
		if err != nil {
			e.metrics.Pipeline.Escalations++
			e.logger.Warn("pattern repair failed", "error", err)
			return Outcome{Status: OutcomeRepairFailed, Detail: err.Error()}
		}
		pattern = refined
		report, err = e.reviewer.Review(ctx, pattern, line, sourceContext)
		if err != nil {
			return e.escalateFailure("template re-review failed", line, err)
		}
	}

	if !report.Approved {
		e.metrics.Pipeline.Escalations++
		return Outcome{Status: OutcomeRejected, Detail: strings.Join(report.Issues, "; ")}
	}

	candidate := store.TemplateRecord{Pattern: pattern, Notes: proposal.Reasoning}

	conflicts := DetectConflicts(pattern, lib, examples)
	if len(conflicts) == 0 {
		return e.storeCandidate(lib, candidate, line, examples, OutcomeStored, "stored without conflict")
	}

	agentConflicts := make([]agent.TemplateConflict, len(conflicts))
	for i, c := range conflicts {
		agentConflicts[i] = agent.TemplateConflict{
			TemplateID: c.Record.ID,
			Pattern:    c.Record.Pattern,
			Example:    c.Example.Canonical,
		}
	}

	resolution, err := e.adjudicator.Resolve(ctx, pattern, proposal.Reasoning, line, sourceContext, agentConflicts)
	if err != nil {
		return e.escalateConflict("conflict resolution error", candidate, line, map[string]any{"error": err.Error()})
	}

	return e.applyResolution(ctx, resolution, candidate, line, sourceContext, lib, examples)
}

// applyResolution validates and applies an adjudication decision. The
// resulting pattern must pass one more review before anything is mutated;
// a decision outside the two supported values, or one missing the new
// pattern text, escalates with the offending payload attached verbatim.
func (e *Engine) applyResolution(ctx context.Context, resolution agent.Resolution, candidate store.TemplateRecord, line normalize.Line, sourceContext string, lib *store.Library, examples map[string]normalize.Line) Outcome {
	newPattern := strings.TrimSpace(resolution.NewPattern)
	if newPattern == "" {
		return e.escalateConflict("resolution missing new pattern", candidate, line, resolution)
	}
	candidate.Pattern = newPattern

	report, err := e.reviewer.Review(ctx, candidate.Pattern, line, sourceContext)
	if err != nil {
		return e.escalateConflict("resolution re-review failed", candidate, line, map[string]any{"resolution": resolution, "error": err.Error()})
	}
	if !report.Approved {
		return e.escalateConflict("resolved pattern rejected by reviewer", candidate, line, resolution)
	}

	switch resolution.Decision {
	case agent.DecisionReplaceConflicting:
		// Unknown ids deactivate as no-ops, so a stale resolution cannot
		// corrupt the library.
		for _, id := range resolution.ReplacedIDs {
			lib.Deactivate(id)
			delete(examples, id)
		}
		return e.storeCandidate(lib, candidate, line, examples, OutcomeReplaced, resolution.Reasoning)

	case agent.DecisionRefineCandidate:
		return e.storeCandidate(lib, candidate, line, examples, OutcomeRefined, resolution.Reasoning)

	default:
		return e.escalateConflict("unsupported resolution decision", candidate, line, resolution)
	}
}

// storeCandidate adds the candidate to the library and records its example.
// A pattern the matcher cannot compile is treated as a rejected candidate,
// never as a crash.
func (e *Engine) storeCandidate(lib *store.Library, candidate store.TemplateRecord, line normalize.Line, examples map[string]normalize.Line, status, detail string) Outcome {
	stored, err := lib.Add(candidate)
	if err != nil {
		var patternErr *store.PatternError
		if errors.As(err, &patternErr) {
			e.metrics.Pipeline.Escalations++
			e.logger.Warn("candidate pattern failed to compile", "pattern", candidate.Pattern)
			return Outcome{Status: OutcomeRejected, Detail: err.Error()}
		}
		return e.escalateFailure("template storage failed", line, err)
	}
	examples[stored.ID] = line
	e.metrics.Pipeline.LearnedTemplates++
	e.logger.Info("template learned", "template_id", stored.ID, "status", status)
	return Outcome{Status: status, TemplateID: stored.ID, Detail: detail}
}

func (e *Engine) escalateFailure(description string, line normalize.Line, cause error) Outcome {
	e.metrics.Pipeline.Escalations++
	e.queue.Enqueue(TaskCollaboratorFailure, description, map[string]any{
		"sample": line.Canonical,
		"error":  cause.Error(),
	})
	e.logger.Warn("line escalated", "reason", description, "error", cause)
	return Outcome{Status: OutcomeEscalated, Detail: cause.Error()}
}

func (e *Engine) escalateConflict(description string, candidate store.TemplateRecord, line normalize.Line, payload any) Outcome {
	e.metrics.Pipeline.Escalations++
	e.queue.Enqueue(TaskTemplateConflict, description, map[string]any{
		"candidate": candidate,
		"sample":    line.Canonical,
		"plan":      payload,
	})
	e.logger.Warn("conflict escalated", "reason", description)
	return Outcome{Status: OutcomeEscalated, Detail: description}
}
