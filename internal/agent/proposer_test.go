package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/bimmerbailey/templar/internal/metrics"
	"github.com/bimmerbailey/templar/internal/normalize"
)

func TestProposerPropose(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"reasoning": "id varies", "pattern": "session (?P<id>\\d+) opened"}`,
	}}
	proposer := NewProposer(provider, nil, nil, testLogger(), metrics.New())

	proposal, err := proposer.Propose(context.Background(), normalize.Normalize("session 42 opened"), "device=firewall, vendor=acme")
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if proposal.Pattern != `session (?P<id>\d+) opened` {
		t.Errorf("pattern = %q", proposal.Pattern)
	}
	if proposer.LastResponse() == "" {
		t.Error("accepted response must be retained")
	}
}

func TestProposerRejectsEmptyLine(t *testing.T) {
	proposer := NewProposer(&fakeProvider{}, nil, nil, testLogger(), metrics.New())
	_, err := proposer.Propose(context.Background(), normalize.Normalize("   "), "ctx")
	if !errors.Is(err, ErrCollaborator) {
		t.Fatalf("err = %v, want ErrCollaborator", err)
	}
}

func TestProposerRejectsMissingPattern(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"reasoning": "no idea", "pattern": ""}`,
	}}
	proposer := NewProposer(provider, nil, nil, testLogger(), metrics.New())
	_, err := proposer.Propose(context.Background(), normalize.Normalize("line"), "ctx")
	if !errors.Is(err, ErrCollaborator) {
		t.Fatalf("err = %v, want ErrCollaborator", err)
	}
}

func TestProposerFollowUpRequiresConversation(t *testing.T) {
	proposer := NewProposer(&fakeProvider{}, nil, nil, testLogger(), metrics.New())
	_, err := proposer.FollowUp(context.Background(), "refine it")
	if !errors.Is(err, ErrCollaborator) {
		t.Fatalf("err = %v, want ErrCollaborator", err)
	}
}

func TestRepairerRefine(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"reasoning": "first try", "pattern": "session .* opened"}`,
		`{"reasoning": "narrowed", "pattern": "session (?P<id>\\d+) opened"}`,
	}}
	m := metrics.New()
	proposer := NewProposer(provider, nil, nil, testLogger(), m)
	repairer := NewRepairer(proposer)

	line := normalize.Normalize("session 42 opened")
	if _, err := proposer.Propose(context.Background(), line, "ctx"); err != nil {
		t.Fatalf("Propose: %v", err)
	}

	got, err := repairer.Refine(context.Background(), `session .* opened`,
		[]string{"captures too much"}, []string{"capture only the id"}, line, "ctx")
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if got != `session (?P<id>\d+) opened` {
		t.Errorf("refined pattern = %q", got)
	}
}

func TestRepairerRecoversFromFollowUpError(t *testing.T) {
	// Second response is unusable, the error-correction replay succeeds.
	provider := &fakeProvider{responses: []string{
		`{"reasoning": "first try", "pattern": "session .* opened"}`,
		`no json in this reply`,
		`{"reasoning": "fixed", "pattern": "session (?P<id>\\d+) opened"}`,
	}}
	m := metrics.New()
	proposer := NewProposer(provider, nil, nil, testLogger(), m)
	repairer := NewRepairer(proposer)

	line := normalize.Normalize("session 42 opened")
	if _, err := proposer.Propose(context.Background(), line, "ctx"); err != nil {
		t.Fatalf("Propose: %v", err)
	}

	got, err := repairer.Refine(context.Background(), `session .* opened`,
		[]string{"captures too much"}, nil, line, "ctx")
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if got != `session (?P<id>\d+) opened` {
		t.Errorf("refined pattern = %q", got)
	}
}

func TestDescribeCaptures(t *testing.T) {
	tests := []struct {
		name      string
		pattern   string
		canonical string
		want      string
	}{
		{
			name:      "named groups listed",
			pattern:   `session (?P<id>\d+) opened`,
			canonical: "session 42 opened",
			want:      "  - id: '42'",
		},
		{
			name:      "invalid pattern",
			pattern:   `broken (?P<`,
			canonical: "anything",
			want:      "  (pattern failed to compile)",
		},
		{
			name:      "no match",
			pattern:   `session \d+ opened`,
			canonical: "completely different",
			want:      "  (pattern does not match sample)",
		},
		{
			name:      "no named groups",
			pattern:   `session \d+ opened`,
			canonical: "session 42 opened",
			want:      "  (no named groups)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeCaptures(tt.pattern, tt.canonical); got != tt.want {
				t.Errorf("describeCaptures = %q, want %q", got, tt.want)
			}
		})
	}
}
