package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/bimmerbailey/templar/internal/agent"
	"github.com/bimmerbailey/templar/internal/config"
	"github.com/bimmerbailey/templar/internal/escalate"
	"github.com/bimmerbailey/templar/internal/llm"
	"github.com/bimmerbailey/templar/internal/metrics"
	"github.com/bimmerbailey/templar/internal/output"
	"github.com/bimmerbailey/templar/internal/pipeline"
	"github.com/bimmerbailey/templar/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] <file>...",
	Short: "Parse log files, learning templates as needed",
	Long: `Parse one or more log files. Each file is classified, matched against
the per-source template library, and every unmatched line goes through the
learning loop. Artifacts (parsed TSV, template set, metrics) are written
under the state directory.

Examples:
  templar parse /var/log/fw/asa.log
  templar parse --format json "/var/log/fw/*.log"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

// stack bundles the wired pipeline for one CLI invocation.
type stack struct {
	cfg        *config.Config
	logger     *slog.Logger
	provider   llm.Provider
	classifier *agent.Classifier
	engine     *pipeline.Engine
	store      *store.Store
	catalog    *store.Catalog
	queue      *escalate.Queue
	metrics    *metrics.Metrics
}

// buildStack wires configuration, persistence, and the LLM collaborators,
// and runs the provider preflight.
func buildStack(ctx context.Context) (*stack, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Verbose)

	provider, err := llm.NewProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := provider.Heartbeat(ctx); err != nil {
		return nil, fmt.Errorf("llm preflight failed: %w", err)
	}
	available, err := provider.ModelAvailable(ctx, cfg.LLM.Ollama.Model)
	if err != nil {
		return nil, fmt.Errorf("llm preflight failed: %w", err)
	}
	if !available {
		return nil, fmt.Errorf("model %q is not available, pull it first", cfg.LLM.Ollama.Model)
	}

	catalog, err := store.NewCatalog(filepath.Join(cfg.StateDir, "source_catalog.json"))
	if err != nil {
		return nil, err
	}
	queue, err := escalate.NewQueue(filepath.Join(cfg.StateDir, "escalations.json"))
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	opts := &llm.ChatOptions{
		Model:       cfg.LLM.Ollama.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}

	corrector := agent.NewCorrector(provider, opts, logger, m)
	proposer := agent.NewProposer(provider, corrector, opts, logger, m)
	reviewer := agent.NewReviewer(provider, corrector, opts, cfg.Learning.ReviewDirectives, logger, m)

	engine := pipeline.NewEngine(pipeline.EngineOptions{
		Proposer:      proposer,
		Reviewer:      reviewer,
		Repairer:      agent.NewRepairer(proposer),
		Adjudicator:   agent.NewAdjudicator(provider, corrector, opts, logger, m),
		Queue:         queue,
		Metrics:       m,
		Logger:        logger,
		RepairRetries: cfg.Learning.RepairRetries,
	})

	return &stack{
		cfg:        cfg,
		logger:     logger,
		provider:   provider,
		classifier: agent.NewClassifier(provider, corrector, opts, logger, m),
		engine:     engine,
		store:      store.New(filepath.Join(cfg.StateDir, "template_libraries")),
		catalog:    catalog,
		queue:      queue,
		metrics:    m,
	}, nil
}

func runParse(cmd *cobra.Command, args []string) error {
	files, err := config.ExpandGlobs(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := buildStack(ctx)
	if err != nil {
		return err
	}

	orch := pipeline.NewOrchestrator(pipeline.Options{
		Classifier:  st.classifier,
		Engine:      st.engine,
		Store:       st.store,
		Catalog:     st.catalog,
		Queue:       st.queue,
		Metrics:     st.metrics,
		Logger:      st.logger,
		OutputDir:   filepath.Join(st.cfg.StateDir, "outputs"),
		SampleLines: st.cfg.Learning.SampleLines,
	})

	format := output.ParseFormat(viper.GetString("format"))
	writer := output.New(cmd.OutOrStdout(), format)

	for _, file := range files {
		report, err := orch.Run(ctx, file)
		if err != nil {
			return fmt.Errorf("parse %s: %w", file, err)
		}
		if err := writer.WriteReport(report); err != nil {
			return err
		}
	}
	return nil
}
