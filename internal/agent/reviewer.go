package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/bimmerbailey/templar/internal/llm"
	"github.com/bimmerbailey/templar/internal/metrics"
	"github.com/bimmerbailey/templar/internal/normalize"
	"github.com/bimmerbailey/templar/internal/prompt"
)

// Report is the reviewer's verdict on a candidate pattern.
type Report struct {
	Approved    bool       `json:"approved"`
	Issues      StringList `json:"issues"`
	Suggestions StringList `json:"suggestions"`
	Reasoning   string     `json:"reasoning"`
}

// Reviewer checks that a candidate pattern keeps structure literal and
// captures only variable values.
type Reviewer struct {
	caller

	directives []string
}

// NewReviewer creates the review collaborator. Directives are extra
// operator instructions appended to every review request.
func NewReviewer(client llm.Provider, corrector *Corrector, opts *llm.ChatOptions, directives []string, logger *slog.Logger, m *metrics.Metrics) *Reviewer {
	var kept []string
	for _, d := range directives {
		if trimmed := strings.TrimSpace(d); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return &Reviewer{
		caller: caller{
			name:      "reviewer",
			client:    client,
			opts:      opts,
			corrector: corrector,
			logger:    logger,
			metrics:   m,
		},
		directives: kept,
	}
}

// Review requests a verdict for pattern against the sample line.
func (r *Reviewer) Review(ctx context.Context, pattern string, line normalize.Line, sourceContext string) (Report, error) {
	messages, err := prompt.Build(prompt.TypeReview, prompt.BuildOptions{
		Pattern:    pattern,
		Line:       line.Canonical,
		Raw:        line.Raw,
		Context:    sourceContext,
		Captures:   describeCaptures(pattern, line.Canonical),
		Directives: r.directives,
	})
	if err != nil {
		return Report{}, err
	}

	var report Report
	if _, _, err := r.callJSON(ctx, messages, &report, "Reviewer must return a JSON verdict"); err != nil {
		return Report{}, err
	}

	r.logger.Debug("review verdict",
		"approved", report.Approved,
		"issues", len(report.Issues))
	return report, nil
}

// describeCaptures shows the reviewer what the pattern currently captures
// against the sample, so the verdict is grounded in actual behavior.
func describeCaptures(pattern, canonical string) string {
	matcher, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return "  (pattern failed to compile)"
	}
	groups := matcher.FindStringSubmatch(canonical)
	if groups == nil {
		return "  (pattern does not match sample)"
	}

	var lines []string
	for i, name := range matcher.SubexpNames() {
		if name == "" || i >= len(groups) {
			continue
		}
		lines = append(lines, fmt.Sprintf("  - %s: '%s'", name, groups[i]))
	}
	if len(lines) == 0 {
		return "  (no named groups)"
	}
	return strings.Join(lines, "\n")
}
