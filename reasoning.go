package ai

var reasoningFields = []string{"reasoning_content", "reasoning"}

// dataMarkers are the top-level fields of every structured result the
// MindScape flows ask for (mind maps, comparisons, quizzes).
var dataMarkers = []string{"topic", "mode", "similarities", "differences", "root"}

// IsReasoningOnly reports whether raw is an object holding the model's
// planning text but none of the expected result fields.
func IsReasoningOnly(raw any) bool {
	obj, ok := raw.(map[string]any)
	if !ok {
		return false
	}

	hasReasoning := false
	for _, f := range reasoningFields {
		if _, ok := obj[f]; ok {
			hasReasoning = true
			break
		}
	}
	if !hasReasoning {
		return false
	}

	for _, f := range dataMarkers {
		if _, ok := obj[f]; ok {
			return false
		}
	}
	if subTopics, ok := obj["subTopics"].([]any); ok && len(subTopics) > 0 {
		return false
	}
	return true
}
