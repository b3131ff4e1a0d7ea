// Package metrics tracks process-wide counters for one parsing run.
package metrics

// Counters are the pipeline counters. All values are monotonically
// non-decreasing for the duration of a run and reset only at process start.
type Counters struct {
	ProcessedLines   int `json:"processed_lines"`
	MatchedLines     int `json:"matched_lines"`
	LearnedTemplates int `json:"learned_templates"`
	Escalations      int `json:"escalations"`
}

// Metrics aggregates pipeline counters and auxiliary token usage.
type Metrics struct {
	Pipeline Counters
	tokens   map[string]int
}

// New returns zeroed metrics.
func New() *Metrics {
	return &Metrics{tokens: make(map[string]int)}
}

// AddTokens accumulates token usage attributed to a provider.
func (m *Metrics) AddTokens(provider string, tokens int) {
	if tokens <= 0 {
		return
	}
	m.tokens[provider] += tokens
}

// Snapshot is the serializable view written to the metrics artifact.
type Snapshot struct {
	Pipeline Counters       `json:"pipeline"`
	Tokens   map[string]int `json:"tokens"`
}

// Snapshot returns a copy of the current state.
func (m *Metrics) Snapshot() Snapshot {
	tokens := make(map[string]int, len(m.tokens))
	for provider, n := range m.tokens {
		tokens[provider] = n
	}
	return Snapshot{Pipeline: m.Pipeline, Tokens: tokens}
}
