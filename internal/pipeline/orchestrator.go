package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bimmerbailey/templar/internal/agent"
	"github.com/bimmerbailey/templar/internal/escalate"
	"github.com/bimmerbailey/templar/internal/metrics"
	"github.com/bimmerbailey/templar/internal/normalize"
	"github.com/bimmerbailey/templar/internal/store"
)

// Classifier identifies a log source from a sample of its lines.
type Classifier interface {
	Classify(ctx context.Context, samples []string) (agent.Classification, error)
}

// Report is the result of one complete parsing run.
type Report struct {
	Source    store.SourceDescriptor `json:"source"`
	Counters  metrics.Counters       `json:"counters"`
	Templates []store.TemplateRecord `json:"templates"`
	Artifacts Artifacts              `json:"artifacts"`
}

// Artifacts lists the files a run wrote.
type Artifacts struct {
	Parsed    string `json:"parsed"`
	Templates string `json:"templates"`
	Metrics   string `json:"metrics"`
}

// Orchestrator runs the two-phase flow over one log file: a streaming pass
// that matches or learns line by line, then a reconciliation pass that
// re-matches everything against the final template set so the output
// labeling is consistent with it.
type Orchestrator struct {
	classifier Classifier
	engine     *Engine
	store      *store.Store
	catalog    *store.Catalog
	queue      *escalate.Queue
	metrics    *metrics.Metrics
	logger     *slog.Logger

	outputDir   string
	sampleLines int
}

// Options wires an Orchestrator.
type Options struct {
	Classifier Classifier
	Engine     *Engine
	Store      *store.Store
	Catalog    *store.Catalog
	Queue      *escalate.Queue
	Metrics    *metrics.Metrics
	Logger     *slog.Logger

	// OutputDir receives the parsed/templates/metrics artifacts.
	OutputDir string
	// SampleLines bounds how many leading lines feed classification.
	SampleLines int
}

// NewOrchestrator creates a run orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	samples := opts.SampleLines
	if samples < 1 {
		samples = 12
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		classifier:  opts.Classifier,
		engine:      opts.Engine,
		store:       opts.Store,
		catalog:     opts.Catalog,
		queue:       opts.Queue,
		metrics:     opts.Metrics,
		logger:      logger,
		outputDir:   opts.OutputDir,
		sampleLines: samples,
	}
}

// Run processes the log file at logPath end to end and persists all state.
func (o *Orchestrator) Run(ctx context.Context, logPath string) (Report, error) {
	raws, err := ReadLines(logPath)
	if err != nil {
		return Report{}, err
	}
	lines := normalize.NormalizeAll(raws)

	desc, err := o.classify(ctx, raws)
	if err != nil {
		return Report{}, err
	}
	o.catalog.Register(desc)

	lib, err := o.store.Library(desc.SourceID)
	if err != nil {
		return Report{}, err
	}
	sourceContext := fmt.Sprintf("device=%s, vendor=%s", desc.DeviceType, desc.Vendor)

	// Streaming pass. The example cache maps each active template to one
	// line it explains; conflict detection compares candidates against
	// these fixtures.
	examples := make(map[string]normalize.Line)
	for _, line := range lines {
		if line.Canonical == "" {
			continue
		}
		o.metrics.Pipeline.ProcessedLines++

		if rec, _, ok := lib.Match(line); ok {
			o.metrics.Pipeline.MatchedLines++
			if _, seen := examples[rec.ID]; !seen {
				examples[rec.ID] = line
			}
			continue
		}

		outcome := o.engine.ProcessLine(ctx, line, sourceContext, lib, examples)
		o.logger.Info("line learned",
			"status", outcome.Status,
			"template_id", outcome.TemplateID)
	}

	// Reconciliation pass over the final template set.
	results := MatchAll(lib, lines)

	artifacts, err := o.writeArtifacts(logPath, lib, results)
	if err != nil {
		return Report{}, err
	}

	if err := o.store.SaveAll(); err != nil {
		return Report{}, err
	}
	if err := o.catalog.Save(); err != nil {
		return Report{}, err
	}
	if err := o.queue.Save(); err != nil {
		return Report{}, err
	}

	return Report{
		Source:    desc,
		Counters:  o.metrics.Pipeline,
		Templates: lib.Records(),
		Artifacts: artifacts,
	}, nil
}

// classify samples the first non-empty raw lines and asks the classifier.
// A malformed collaborator response falls back to an unknown source rather
// than aborting the run; an unreachable provider is still fatal.
func (o *Orchestrator) classify(ctx context.Context, raws []string) (store.SourceDescriptor, error) {
	var samples []string
	for _, raw := range raws {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		samples = append(samples, raw)
		if len(samples) >= o.sampleLines {
			break
		}
	}

	classification, err := o.classifier.Classify(ctx, samples)
	if err != nil {
		if !errors.Is(err, agent.ErrCollaborator) {
			return store.SourceDescriptor{}, err
		}
		o.logger.Warn("classification failed, treating source as unknown", "error", err)
		classification = agent.Classification{DeviceType: "unknown", Vendor: "unknown"}
	}

	return store.SourceDescriptor{
		SourceID:   classification.SourceID(),
		DeviceType: classification.DeviceType,
		Vendor:     classification.Vendor,
		Metadata:   map[string]string{"reasoning": classification.Reasoning},
	}, nil
}

func (o *Orchestrator) writeArtifacts(logPath string, lib *store.Library, results []MatchResult) (Artifacts, error) {
	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	base := filepath.Base(logPath)
	artifacts := Artifacts{
		Parsed:    filepath.Join(o.outputDir, base+".parsed.tsv"),
		Templates: filepath.Join(o.outputDir, base+".templates.json"),
		Metrics:   filepath.Join(o.outputDir, base+".metrics.json"),
	}

	if err := writeParsedTSV(artifacts.Parsed, results); err != nil {
		return Artifacts{}, err
	}
	if err := writeJSON(artifacts.Templates, lib.Records()); err != nil {
		return Artifacts{}, err
	}
	if err := writeJSON(artifacts.Metrics, o.metrics.Snapshot()); err != nil {
		return Artifacts{}, err
	}
	return artifacts, nil
}

func writeParsedTSV(path string, results []MatchResult) error {
	var b strings.Builder
	b.WriteString("line\ttemplate_id\traw\n")
	for _, r := range results {
		fmt.Fprintf(&b, "%d\t%s\t%s\n", r.LineNumber, r.TemplateID, sanitizeTSV(r.Raw))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write parsed output %s: %w", path, err)
	}
	return nil
}

// sanitizeTSV keeps raw lines one-per-row in the TSV.
func sanitizeTSV(s string) string {
	r := strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")
	return r.Replace(s)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
