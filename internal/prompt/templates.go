package prompt

import (
	"fmt"
	"strings"

	"github.com/bimmerbailey/templar/internal/llm"
)

// Build constructs a []llm.Message slice ready to be sent to any
// llm.Provider.
//
// The returned slice always begins with a system message whose content is
// determined by pt, followed by a user message that encodes the request.
// [TypeRefine] is the exception: it returns only the continuation user
// message, because refinement extends an existing proposal conversation
// rather than starting a fresh one.
//
// Required fields per PromptType:
//   - TypeClassify:   Samples
//   - TypePropose:    Line, Context
//   - TypeReview:     Pattern, Line
//   - TypeRefine:     Pattern, Line
//   - TypeAdjudicate: Pattern, Line, Conflicts
//   - TypeCorrection: LastResponse, ErrorDescription
//
// Returns ErrMissingField if a required field is absent.
func Build(pt PromptType, opts BuildOptions) ([]llm.Message, error) {
	switch pt {
	case TypeClassify:
		return buildClassify(opts)
	case TypePropose:
		return buildPropose(opts)
	case TypeReview:
		return buildReview(opts)
	case TypeRefine:
		return buildRefine(opts)
	case TypeAdjudicate:
		return buildAdjudicate(opts)
	case TypeCorrection:
		return buildCorrection(opts)
	default:
		return nil, fmt.Errorf("prompt: unknown prompt type %q", pt)
	}
}

func buildClassify(opts BuildOptions) ([]llm.Message, error) {
	if len(opts.Samples) == 0 {
		return nil, missingField("Samples")
	}

	var sb strings.Builder
	sb.WriteString("You are a log routing specialist. ")
	sb.WriteString("Analyze the following log samples and classify the OVERALL log source. ")
	sb.WriteString("All samples are from the SAME device/system. ")
	sb.WriteString("Respond with a SINGLE JSON object (not an array):\n")
	sb.WriteString(`{"device_type": "<category>", "vendor": "<vendor>", "reasoning": "<brief reasoning>"}`)
	sb.WriteString("\n\n")
	sb.WriteString("Allowed device_type values: wifi_router, wifi_network, firewall, switch, application, mobile_device, server, storage, security, unknown.\n")
	sb.WriteString("Vendor examples: aruba, ubiquiti, cisco, meraki, palo_alto, apple, android, generic, unknown.\n\n")
	sb.WriteString("Log samples:\n")
	sb.WriteString(strings.Join(opts.Samples, "\n"))

	return []llm.Message{
		{Role: "system", Content: systemPrompt(TypeClassify)},
		{Role: "user", Content: sb.String()},
	}, nil
}

func buildPropose(opts BuildOptions) ([]llm.Message, error) {
	if opts.Line == "" {
		return nil, missingField("Line")
	}
	if opts.Context == "" {
		return nil, missingField("Context")
	}

	sections := []string{
		fmt.Sprintf("Context: %s", opts.Context),
		"Generate a template pattern for this log line:",
		fmt.Sprintf("Log line: %s", opts.Line),
		"Remember: Distinguish between business data variables and structural elements. Return ONLY the JSON object.",
	}

	return []llm.Message{
		{Role: "system", Content: systemPrompt(TypePropose)},
		{Role: "user", Content: strings.Join(sections, "\n\n")},
	}, nil
}

func buildReview(opts BuildOptions) ([]llm.Message, error) {
	if opts.Pattern == "" {
		return nil, missingField("Pattern")
	}
	if opts.Line == "" {
		return nil, missingField("Line")
	}

	var sb strings.Builder
	sb.WriteString("TEMPLATE REVIEW REQUEST\n\n")
	fmt.Fprintf(&sb, "Context:\n  %s\n\n", opts.Context)
	fmt.Fprintf(&sb, "Template to review:\n  pattern: %s\n\n", opts.Pattern)
	fmt.Fprintf(&sb, "Example log line:\n  raw: %s\n  canonical: %s\n\n", opts.Raw, opts.Line)

	captures := opts.Captures
	if captures == "" {
		captures = "  (not evaluated)"
	}
	fmt.Fprintf(&sb, "Captured variables:\n%s\n\n", captures)

	if len(opts.Directives) > 0 {
		sb.WriteString("Additional instructions:\n")
		for _, d := range opts.Directives {
			fmt.Fprintf(&sb, "  - %s\n", d)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Task: Review this template and determine if it correctly distinguishes business variables from structural constants. Return JSON only.")

	return []llm.Message{
		{Role: "system", Content: systemPrompt(TypeReview)},
		{Role: "user", Content: sb.String()},
	}, nil
}

// buildRefine produces only the continuation user message; the caller
// appends it to the proposal conversation history.
func buildRefine(opts BuildOptions) ([]llm.Message, error) {
	if opts.Pattern == "" {
		return nil, missingField("Pattern")
	}
	if opts.Line == "" {
		return nil, missingField("Line")
	}

	issues := bulletList(opts.Issues, "unspecified reviewer issue")
	suggestions := bulletList(opts.Suggestions, "ensure structure stays literal and variables remain (?P<name>.*)")

	var sb strings.Builder
	sb.WriteString("VALIDATION FEEDBACK\n")
	fmt.Fprintf(&sb, "Context: %s\n", opts.Context)
	fmt.Fprintf(&sb, "Sample: %s\n\n", opts.Line)
	fmt.Fprintf(&sb, "Issues reported:\n%s\n\n", issues)
	fmt.Fprintf(&sb, "Suggested fixes:\n%s\n\n", suggestions)
	sb.WriteString("Regenerate a JSON response with an improved pattern that satisfies the feedback.")

	return []llm.Message{
		{Role: "user", Content: sb.String()},
	}, nil
}

func buildAdjudicate(opts BuildOptions) ([]llm.Message, error) {
	if opts.Pattern == "" {
		return nil, missingField("Pattern")
	}
	if opts.Line == "" {
		return nil, missingField("Line")
	}
	if len(opts.Conflicts) == 0 {
		return nil, missingField("Conflicts")
	}

	var conflicts strings.Builder
	for _, c := range opts.Conflicts {
		fmt.Fprintf(&conflicts, "- template_id: %s\n  pattern: %s\n  example: %s\n", c.TemplateID, c.Pattern, c.Example)
	}

	var sb strings.Builder
	sb.WriteString("CONFLICT DETECTED:\n")
	sb.WriteString(opts.Context)
	sb.WriteString("\n")
	sb.WriteString("Your pattern matches not only your example but also examples from existing templates.\n")
	sb.WriteString("This creates ambiguity: the same log line could match multiple templates.\n\n")
	fmt.Fprintf(&sb, "Your template:\n  pattern: %s\n  example: %s\n  your reasoning: %s\n\n", opts.Pattern, opts.Line, opts.Reasoning)
	fmt.Fprintf(&sb, "Conflicting templates (your pattern also matches their examples):\n%s\n", conflicts.String())
	sb.WriteString(`Analyze the conflict and choose one decision:

1. replace_conflicting:
   Use when the candidate template correctly identifies business variables that conflicting templates incorrectly hardcoded.
   Result: Deactivate all conflicting templates, use the candidate template instead.
   WARNING: Only use this when the captured position is truly a BUSINESS VARIABLE.
   Return JSON:
{
  "reasoning": "explanation of why this decision is correct",
  "decision": "replace_conflicting",
  "new_pattern": "the pattern to use (candidate as-is)",
  "replaced_ids": ["template_id1", "template_id2"]
}

2. refine_candidate:
   Use when the candidate template is overly generalized, capturing structural constants as variables.
   Result: Adjust the candidate pattern to be more specific so it doesn't conflict.
   Return JSON:
{
  "reasoning": "explanation of why this decision is correct",
  "decision": "refine_candidate",
  "new_pattern": "the new more specific pattern to use"
}
Respond with JSON only.`)

	return []llm.Message{
		{Role: "system", Content: systemPrompt(TypeAdjudicate)},
		{Role: "user", Content: sb.String()},
	}, nil
}

// buildCorrection re-submits a full prior exchange so the model can fix a
// malformed response. Exchange transcription happens here so every
// collaborator shares the exact same correction shape.
func buildCorrection(opts BuildOptions) ([]llm.Message, error) {
	if opts.LastResponse == "" {
		return nil, missingField("LastResponse")
	}
	if opts.ErrorDescription == "" {
		return nil, missingField("ErrorDescription")
	}

	var sb strings.Builder
	sb.WriteString("ORIGINAL CONVERSATION:\n")
	sb.WriteString(opts.Exchange)
	sb.WriteString("\n\n")
	sb.WriteString("PREVIOUS ASSISTANT RESPONSE:\n")
	sb.WriteString(opts.LastResponse)
	sb.WriteString("\n\n")
	sb.WriteString("ERROR:\n")
	sb.WriteString(opts.ErrorDescription)
	sb.WriteString("\n\n")
	sb.WriteString("Regenerate a corrected response that satisfies the original instructions and output JSON only if requested.")

	return []llm.Message{
		{Role: "system", Content: systemPrompt(TypeCorrection)},
		{Role: "user", Content: sb.String()},
	}, nil
}

// Transcript flattens a conversation for inclusion in a correction request.
func Transcript(messages []llm.Message) string {
	var sb strings.Builder
	for i, msg := range messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s: %s", strings.ToUpper(msg.Role), msg.Content)
	}
	return sb.String()
}

func bulletList(items []string, fallback string) string {
	if len(items) == 0 {
		return "- " + fallback
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}
