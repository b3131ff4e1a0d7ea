package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bimmerbailey/templar/internal/llm"
	"github.com/bimmerbailey/templar/internal/metrics"
	"github.com/bimmerbailey/templar/internal/prompt"
)

// Classification identifies the origin of a log sample batch.
type Classification struct {
	DeviceType string `json:"device_type"`
	Vendor     string `json:"vendor"`
	Reasoning  string `json:"reasoning"`
}

// SourceID derives the library key for this classification:
// "<deviceType>_<vendor>" with spaces replaced by underscores.
func (c Classification) SourceID() string {
	device := c.DeviceType
	if device == "" {
		device = "unknown"
	}
	vendor := c.Vendor
	if vendor == "" {
		vendor = "unknown"
	}
	return strings.ReplaceAll(device+"_"+vendor, " ", "_")
}

// Classifier categorizes a log source from a bounded sample of its lines.
// It is consulted once per run.
type Classifier struct {
	caller
}

// NewClassifier creates the classification collaborator.
func NewClassifier(client llm.Provider, corrector *Corrector, opts *llm.ChatOptions, logger *slog.Logger, m *metrics.Metrics) *Classifier {
	return &Classifier{caller: caller{
		name:      "classifier",
		client:    client,
		opts:      opts,
		corrector: corrector,
		logger:    logger,
		metrics:   m,
	}}
}

// Classify identifies the device type and vendor behind the sample lines.
// Blank samples are dropped; with nothing left to classify the result is
// "unknown"/"unknown" without a collaborator call.
func (c *Classifier) Classify(ctx context.Context, samples []string) (Classification, error) {
	var kept []string
	for _, line := range samples {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	if len(kept) == 0 {
		return Classification{
			DeviceType: "unknown",
			Vendor:     "unknown",
			Reasoning:  "no samples provided",
		}, nil
	}

	messages, err := prompt.Build(prompt.TypeClassify, prompt.BuildOptions{Samples: kept})
	if err != nil {
		return Classification{}, err
	}

	var decision Classification
	if _, _, err := c.callJSON(ctx, messages, &decision, "Classifier must return a JSON object"); err != nil {
		return Classification{}, err
	}

	decision.DeviceType = strings.TrimSpace(decision.DeviceType)
	decision.Vendor = strings.TrimSpace(decision.Vendor)
	if decision.DeviceType == "" {
		decision.DeviceType = "unknown"
	}
	if decision.Vendor == "" {
		decision.Vendor = "unknown"
	}

	c.logger.Info("classified log source",
		"device_type", decision.DeviceType,
		"vendor", decision.Vendor)
	return decision, nil
}
