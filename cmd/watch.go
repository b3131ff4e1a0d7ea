package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bimmerbailey/templar/internal/follow"
	"github.com/bimmerbailey/templar/internal/normalize"
	"github.com/bimmerbailey/templar/internal/output"
	"github.com/bimmerbailey/templar/internal/store"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] <file>",
	Short: "Follow a log file and learn templates live",
	Long: `Follow a growing log file, running the matching and learning pipeline on
each appended line. Matched lines are labeled with their template id; new
lines go through the full learning loop as they arrive. State is persisted
on shutdown.

Examples:
  templar watch /var/log/fw/asa.log
  templar watch --from-start --follow-rotate /var/log/fw/asa.log`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("from-start", false, "process existing content before following")
	watchCmd.Flags().Bool("follow-rotate", false, "keep following through log rotations")
	watchCmd.Flags().String("color", "auto", "when to color output (auto, always, never)")

	rootCmd.AddCommand(watchCmd)
}

func parseColorMode(s string) output.ColorMode {
	switch s {
	case "always":
		return output.ColorAlways
	case "never":
		return output.ColorNever
	default:
		return output.ColorAuto
	}
}

// watchSession holds the per-source state a live watch accumulates. The
// source is classified lazily from the first non-empty line, since a
// followed file may start empty.
type watchSession struct {
	st      *stack
	writer  *output.Writer
	color   output.ColorMode
	lib     *store.Library
	context string
	// examples maps template id to the line that anchors conflict checks.
	examples map[string]normalize.Line
}

func (s *watchSession) ensureSource(ctx context.Context, raw string) error {
	if s.lib != nil {
		return nil
	}

	classification, err := s.st.classifier.Classify(ctx, []string{raw})
	if err != nil {
		return err
	}
	desc := store.SourceDescriptor{
		SourceID:   classification.SourceID(),
		DeviceType: classification.DeviceType,
		Vendor:     classification.Vendor,
		Metadata:   map[string]string{"reasoning": classification.Reasoning},
	}
	s.st.catalog.Register(desc)

	lib, err := s.st.store.Library(desc.SourceID)
	if err != nil {
		return err
	}
	s.lib = lib
	s.context = fmt.Sprintf("device=%s, vendor=%s", desc.DeviceType, desc.Vendor)
	s.examples = make(map[string]normalize.Line)
	return nil
}

func (s *watchSession) handleLine(ctx context.Context, raw string) error {
	line := normalize.Normalize(raw)
	if line.Canonical == "" {
		return nil
	}
	if err := s.ensureSource(ctx, raw); err != nil {
		return err
	}
	s.st.metrics.Pipeline.ProcessedLines++

	if rec, _, ok := s.lib.Match(line); ok {
		s.st.metrics.Pipeline.MatchedLines++
		if _, seen := s.examples[rec.ID]; !seen {
			s.examples[rec.ID] = line
		}
		return s.writer.WriteEvent("matched", rec.ID, line.Raw, s.color)
	}

	outcome := s.st.engine.ProcessLine(ctx, line, s.context, s.lib, s.examples)
	return s.writer.WriteEvent(outcome.Status, outcome.TemplateID, line.Raw, s.color)
}

func runWatch(cmd *cobra.Command, args []string) error {
	fromStart, _ := cmd.Flags().GetBool("from-start")
	followRotate, _ := cmd.Flags().GetBool("follow-rotate")
	colorStr, _ := cmd.Flags().GetString("color")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := buildStack(ctx)
	if err != nil {
		return err
	}

	session := &watchSession{
		st:     st,
		writer: output.New(cmd.OutOrStdout(), output.FormatText),
		color:  parseColorMode(colorStr),
	}

	follower := follow.New(follow.Options{
		FilePath:     args[0],
		FromStart:    fromStart,
		FollowRotate: followRotate,
		Handler: func(raw string) error {
			return session.handleLine(ctx, raw)
		},
	})

	runErr := follower.Run(ctx)

	// Persist whatever was learned, even on an interrupted session.
	if err := st.store.SaveAll(); err != nil {
		return err
	}
	if err := st.catalog.Save(); err != nil {
		return err
	}
	if err := st.queue.Save(); err != nil {
		return err
	}

	return runErr
}
