package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/bimmerbailey/templar/internal/llm"
	"github.com/bimmerbailey/templar/internal/metrics"
)

// fakeProvider replays scripted responses in order.
type fakeProvider struct {
	responses []string
	calls     int
	err       error
}

func (f *fakeProvider) Chat(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (*llm.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.responses) {
		return nil, errors.New("fake provider: no more scripted responses")
	}
	resp := f.responses[f.calls]
	f.calls++
	return &llm.Response{Content: resp, Model: "fake", TokensTotal: 10}, nil
}

func (f *fakeProvider) Heartbeat(ctx context.Context) error { return nil }

func (f *fakeProvider) ModelAvailable(ctx context.Context, model string) (bool, error) {
	return true, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		ok      bool
		want    string
	}{
		{
			name:    "plain object",
			payload: `{"pattern": "abc"}`,
			ok:      true,
			want:    "abc",
		},
		{
			name:    "fenced object",
			payload: "```json\n{\"pattern\": \"abc\"}\n```",
			ok:      true,
			want:    "abc",
		},
		{
			name:    "fence without language tag",
			payload: "```\n{\"pattern\": \"abc\"}\n```",
			ok:      true,
			want:    "abc",
		},
		{
			name:    "object embedded in prose",
			payload: "Here is the result:\n{\"pattern\": \"abc\"}\nHope that helps!",
			ok:      true,
			want:    "abc",
		},
		{
			name:    "no json at all",
			payload: "I could not produce a pattern.",
			ok:      false,
		},
		{
			name:    "empty payload",
			payload: "",
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var target struct {
				Pattern string `json:"pattern"`
			}
			ok := decodeJSON(tt.payload, &target)
			if ok != tt.ok {
				t.Fatalf("decodeJSON ok = %v, want %v", ok, tt.ok)
			}
			if ok && target.Pattern != tt.want {
				t.Errorf("pattern = %q, want %q", target.Pattern, tt.want)
			}
		})
	}
}

func TestStringListUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"list", `["a", "b"]`, []string{"a", "b"}},
		{"scalar string", `"just one"`, []string{"just one"}},
		{"empty list", `[]`, nil},
		{"number kept verbatim", `42`, []string{"42"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got StringList
			if err := json.Unmarshal([]byte(tt.input), &got); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestCallJSONRecoversThroughCorrector(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		"sorry, no JSON here",
		`{"device_type": "firewall", "vendor": "acme", "reasoning": "retry worked"}`,
	}}
	m := metrics.New()
	corrector := NewCorrector(provider, nil, testLogger(), m)
	classifier := NewClassifier(provider, corrector, nil, testLogger(), m)

	got, err := classifier.Classify(context.Background(), []string{"some log line"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.DeviceType != "firewall" || got.Vendor != "acme" {
		t.Errorf("got %s/%s, want firewall/acme", got.DeviceType, got.Vendor)
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2 (original + correction)", provider.calls)
	}
}

func TestCallJSONFailsAfterSingleCorrection(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		"still not JSON",
		"and neither is this",
	}}
	m := metrics.New()
	corrector := NewCorrector(provider, nil, testLogger(), m)
	classifier := NewClassifier(provider, corrector, nil, testLogger(), m)

	_, err := classifier.Classify(context.Background(), []string{"some log line"})
	if !errors.Is(err, ErrCollaborator) {
		t.Fatalf("err = %v, want ErrCollaborator", err)
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want exactly 2 (one correction, no more)", provider.calls)
	}
}

func TestClassifierSkipsLLMForEmptySamples(t *testing.T) {
	provider := &fakeProvider{}
	m := metrics.New()
	classifier := NewClassifier(provider, nil, nil, testLogger(), m)

	got, err := classifier.Classify(context.Background(), []string{"", "   ", "\t"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.DeviceType != "unknown" || got.Vendor != "unknown" {
		t.Errorf("got %s/%s, want unknown/unknown", got.DeviceType, got.Vendor)
	}
	if provider.calls != 0 {
		t.Errorf("provider calls = %d, want 0", provider.calls)
	}
}

func TestClassificationSourceID(t *testing.T) {
	tests := []struct {
		name string
		c    Classification
		want string
	}{
		{"simple", Classification{DeviceType: "firewall", Vendor: "acme"}, "firewall_acme"},
		{"spaces replaced", Classification{DeviceType: "load balancer", Vendor: "big corp"}, "load_balancer_big_corp"},
		{"empty fields default", Classification{}, "unknown_unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.SourceID(); got != tt.want {
				t.Errorf("SourceID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChatAccountsTokens(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"device_type": "router", "vendor": "acme", "reasoning": "ok"}`,
	}}
	m := metrics.New()
	classifier := NewClassifier(provider, nil, nil, testLogger(), m)

	if _, err := classifier.Classify(context.Background(), []string{"line"}); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	snap := m.Snapshot()
	if snap.Tokens["fake"] != 10 {
		t.Errorf("tokens[fake] = %d, want 10", snap.Tokens["fake"])
	}
}
