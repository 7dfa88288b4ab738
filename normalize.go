package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// MinSalvageSubTopics is the subTopics length from which a result that fails
// schema validation is still accepted as-is.
const MinSalvageSubTopics = 4

var fencedBlock = regexp.MustCompile("```[A-Za-z0-9_-]*[ \\t]*\\r?\\n?([\\s\\S]*?)```")

// Normalize turns an upstream value into the caller's structure. Objects are
// validated directly; strings are fence-stripped, parsed, and if parsing
// fails, re-parsed from the first '{' to the last '}'.
//
// The brace span is a heuristic: prose that itself contains braces around
// the JSON will be mis-extracted.
func Normalize(raw any, schema Validator, strict bool) (any, error) {
	return normalize(zap.L(), raw, schema, strict)
}

// PerformSchemaValidation validates parsed against schema. Results with at
// least MinSalvageSubTopics subTopics are accepted even when validation
// fails. Otherwise strict mode returns a *StructuredOutputError carrying the
// schema error and non-strict mode returns parsed unvalidated.
func PerformSchemaValidation(parsed any, schema Validator, rawOutput string, strict bool) (any, error) {
	return performSchemaValidation(zap.L(), parsed, schema, rawOutput, strict)
}

func normalize(log *zap.Logger, raw any, schema Validator, strict bool) (any, error) {
	s, ok := raw.(string)
	if !ok {
		if schema == nil {
			return raw, nil
		}
		v, err := schema.TryParse(raw)
		if err == nil {
			return v, nil
		}
		if strict {
			return nil, &StructuredOutputError{
				Message:     "model output failed schema validation",
				RawOutput:   encodeRaw(raw),
				SchemaError: err,
			}
		}
		log.Warn("schema validation failed; returning unvalidated output", zap.Error(err))
		return raw, nil
	}

	cleaned := stripFencedBlocks(strings.TrimSpace(s))

	v, err := parseAndValidate(log, cleaned, schema, strict)
	if err == nil {
		return v, nil
	}

	start, end := jsonObjectSpan(cleaned)
	if start < 0 {
		var se *StructuredOutputError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &StructuredOutputError{
			Message:   "failed to parse JSON from model output",
			RawOutput: cleaned,
			Cause:     err,
		}
	}

	candidate := cleaned[start : end+1]
	v, err = parseAndValidate(log, candidate, schema, strict)
	if err == nil {
		return v, nil
	}
	var se *StructuredOutputError
	if errors.As(err, &se) {
		return nil, err
	}
	return nil, &StructuredOutputError{
		Message:   "failed to parse JSON from model output",
		RawOutput: candidate,
		Cause:     err,
	}
}

func parseAndValidate(log *zap.Logger, text string, schema Validator, strict bool) (any, error) {
	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, err
	}
	return performSchemaValidation(log, parsed, schema, text, strict)
}

func performSchemaValidation(log *zap.Logger, parsed any, schema Validator, rawOutput string, strict bool) (any, error) {
	if schema == nil {
		return parsed, nil
	}
	v, err := schema.TryParse(parsed)
	if err == nil {
		return v, nil
	}

	if n, ok := subTopicCount(parsed); ok && n >= MinSalvageSubTopics {
		log.Info("accepting partially valid output", zap.Int("sub_topics", n), zap.Error(err))
		return parsed, nil
	}

	if strict {
		return nil, &StructuredOutputError{
			Message:     "model output failed schema validation",
			RawOutput:   rawOutput,
			SchemaError: err,
		}
	}
	log.Warn("schema validation failed; returning unvalidated output", zap.Error(err))
	return parsed, nil
}

// stripFencedBlocks replaces every ``` block with its inner content.
func stripFencedBlocks(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	out := fencedBlock.ReplaceAllString(s, "$1")
	// An unterminated fence leaves a lone marker behind.
	out = strings.ReplaceAll(out, "```", "")
	return strings.TrimSpace(out)
}

// jsonObjectSpan returns the indexes of the first '{' and the last '}', or
// -1, -1 when no such ordered pair exists.
func jsonObjectSpan(s string) (int, int) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return -1, -1
	}
	return start, end
}

func subTopicCount(v any) (int, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return 0, false
	}
	subTopics, ok := obj["subTopics"].([]any)
	if !ok {
		return 0, false
	}
	return len(subTopics), true
}

func encodeRaw(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
