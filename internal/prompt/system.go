package prompt

// commonKnowledge is the shared framing prepended to every template-facing
// persona. It pins down the one distinction the whole pipeline depends on:
// what counts as a variable and what counts as structure.
const commonKnowledge = `Shared concepts:
  - BUSINESS DATA (variables) are instance-specific values such as timestamps, user/device identifiers, IP/MAC addresses, counters, metrics, and JSON payloads. They come from unbounded domains and replacing them does not change the semantic meaning of the event. A variable should not span multiple words.
  - STRUCTURE (constants) are system-defined tokens such as event skeletons, log levels, module names, protocol keywords, message sentences, and syntactic separators (colons, brackets, pipes). They draw from finite sets and altering them would change what the log entry represents.
Always preserve STRUCTURE as literal text and capture only BUSINESS DATA.`

// systemPrompt returns the system persona for the given prompt type.
func systemPrompt(pt PromptType) string {
	switch pt {
	case TypeClassify:
		return "You are a precise classifier. Respond with JSON only."

	case TypePropose, TypeRefine:
		return commonKnowledge + `

Your role: derive a regular expression template that captures every BUSINESS DATA value with named groups using (?P<name>.*) and keeps all STRUCTURE literal. The pattern must match the entire log line. If JSON payloads appear, capture the whole object as one variable without inspecting its fields.
Respond with JSON {"reasoning": str, "pattern": str}.`

	case TypeReview:
		return commonKnowledge + `

Your role: review template patterns to ensure STRUCTURE stays literal and only BUSINESS DATA is captured. When rejecting, provide concrete fix suggestions that can be applied directly.
Respond with JSON {"approved": bool, "reasoning": str, "issues": [], "suggestions": []}.`

	case TypeAdjudicate:
		return commonKnowledge + `

Your role: resolve conflicts between templates while preserving STRUCTURE as literal text and keeping BUSINESS DATA variables only where appropriate. Respond with JSON only.`

	case TypeCorrection:
		return "You analyze prior prompts and assistant responses to fix errors. Respond with a corrected assistant reply."

	default:
		return commonKnowledge
	}
}
