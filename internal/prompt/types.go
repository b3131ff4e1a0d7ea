package prompt

import (
	"errors"
	"fmt"
)

// PromptType identifies the collaborator task a prompt is designed to
// perform. Each type produces a distinct system persona and user message
// structure.
type PromptType string

const (
	// TypeClassify asks the model to identify the device type and vendor of
	// a log source from a bounded sample of leading lines. Used once per run.
	TypeClassify PromptType = "classify"

	// TypePropose asks the model to derive a template pattern for a single
	// log line, capturing variable values with named groups.
	TypePropose PromptType = "propose"

	// TypeReview asks the model for a verdict on a candidate pattern:
	// approved or not, with concrete issues and fix suggestions.
	TypeReview PromptType = "review"

	// TypeRefine feeds reviewer issues and suggestions back so the model can
	// regenerate an improved pattern. Continues the proposal conversation.
	TypeRefine PromptType = "refine"

	// TypeAdjudicate presents a template conflict and asks the model to pick
	// one of two resolutions: replace the conflicting templates or narrow
	// the candidate.
	TypeAdjudicate PromptType = "adjudicate"

	// TypeCorrection re-submits a full prior exchange together with an error
	// description so the model can regenerate a parseable response. This is
	// the single bounded retry applied to any malformed collaborator output.
	TypeCorrection PromptType = "correction"
)

// Conflict describes one existing template the candidate pattern collides
// with, for inclusion in an adjudication prompt.
type Conflict struct {
	TemplateID string
	Pattern    string
	Example    string
}

// BuildOptions holds all contextual information required to build a prompt.
// Not all fields are required for every [PromptType]; see [Build].
type BuildOptions struct {
	// Context is the source classification string
	// ("device=..., vendor=...") included with every line-scoped request.
	Context string

	// Samples are the raw leading lines for [TypeClassify].
	Samples []string

	// Line is the canonical log line under consideration.
	Line string

	// Raw is the original form of Line, shown to the reviewer.
	Raw string

	// Pattern is the candidate template text for review, refinement, and
	// adjudication requests.
	Pattern string

	// Captures describes what Pattern currently captures against Line.
	// Optional: included in review requests when non-empty.
	Captures string

	// Reasoning is the proposer's explanation for Pattern, shown to the
	// adjudicator.
	Reasoning string

	// Issues and Suggestions are the reviewer's feedback for [TypeRefine].
	Issues      []string
	Suggestions []string

	// Directives are extra operator instructions appended to review
	// requests.
	Directives []string

	// Conflicts are the colliding templates for [TypeAdjudicate].
	Conflicts []Conflict

	// Exchange, LastResponse, and ErrorDescription drive [TypeCorrection]:
	// the flattened prior conversation, the malformed reply, and what was
	// wrong with it.
	Exchange         string
	LastResponse     string
	ErrorDescription string
}

// ErrMissingField is returned by [Build] when a required field for the
// requested [PromptType] is absent from [BuildOptions].
var ErrMissingField = errors.New("prompt: missing required field")

// missingField wraps [ErrMissingField] with the specific field name.
func missingField(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}
