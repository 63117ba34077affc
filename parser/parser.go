package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"farmpulse-service/models"
)

const fence = "```"

// ExtractJSONFromMarkdown extracts the diagnosis JSON from markdown code
// blocks. A block explicitly labeled json wins; otherwise the first fenced
// block of any kind is used; otherwise the text is returned verbatim.
func ExtractJSONFromMarkdown(response string) string {
	if idx := strings.Index(response, fence+"json"); idx != -1 {
		rest := response[idx+len(fence+"json"):]
		if end := strings.Index(rest, fence); end != -1 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}

	if idx := strings.Index(response, fence); idx != -1 {
		rest := response[idx+len(fence):]
		if end := strings.Index(rest, fence); end != -1 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}

	return strings.TrimSpace(response)
}

// ParseDiagnosis turns the model's raw completion into a DiagnosisResult.
// Acceptance is deliberately lenient: any JSON object carrying a boolean
// disease_detected is taken, with absent or wrong-typed fields surfaced as
// nulls instead of rejected, so incomplete model output still reaches the
// caller. The timestamp is stamped here; anything the model emitted for it
// is discarded.
func ParseDiagnosis(response string) (*models.DiagnosisResult, error) {
	jsonContent := ExtractJSONFromMarkdown(strings.TrimSpace(response))

	var obj map[string]any
	if err := json.Unmarshal([]byte(jsonContent), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	detected, ok := obj["disease_detected"].(bool)
	if !ok {
		return nil, errors.New("disease_detected boolean is required")
	}

	return &models.DiagnosisResult{
		DiseaseDetected: &detected,
		DiseaseName:     stringField(obj, "disease_name"),
		Confidence:      intField(obj, "confidence"),
		CropType:        stringField(obj, "crop_type"),
		ProbableCause:   stringField(obj, "probable_cause"),
		Description:     stringField(obj, "description"),
		Solution:        stringField(obj, "solution"),
		Message:         stringField(obj, "message"),
		Severity:        stringField(obj, "severity"),
		Timestamp:       time.Now().Format(time.RFC3339),
	}, nil
}

func stringField(obj map[string]any, key string) *string {
	if s, ok := obj[key].(string); ok {
		return &s
	}
	return nil
}

func intField(obj map[string]any, key string) *int {
	if f, ok := obj[key].(float64); ok {
		n := int(f)
		return &n
	}
	return nil
}
