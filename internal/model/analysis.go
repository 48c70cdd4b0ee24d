package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

var ErrMalformedAnalysis = errors.New("malformed analysis result")

// AnalysisSchema is the response schema the upstream model is constrained to.
func AnalysisSchema() *jsonschema.Definition {
	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"summary": {
				Type:        jsonschema.String,
				Description: "A concise, easy-to-understand summary of the document in plain English.",
			},
			"keyTerms": {
				Type:        jsonschema.Array,
				Description: "A list of important legal terms or jargon found in the document, with simple definitions.",
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"term": {
							Type:        jsonschema.String,
							Description: "The legal term.",
						},
						"definition": {
							Type:        jsonschema.String,
							Description: "A simple, plain-English definition of the term.",
						},
					},
					Required: []string{"term", "definition"},
				},
			},
			"potentialRisks": {
				Type:        jsonschema.Array,
				Description: "A list of potential risks, liabilities, or points of caution for the user.",
				Items: &jsonschema.Definition{
					Type: jsonschema.String,
				},
			},
		},
		Required: []string{"summary", "keyTerms", "potentialRisks"},
	}
}

// ParseAnalysisResult validates raw model output against the AnalysisResult
// shape. A surrounding Markdown code fence is tolerated. summary must be a
// non-empty string; keyTerms and potentialRisks must be arrays.
func ParseAnalysisResult(data []byte) (*AnalysisResult, error) {
	body := StripCodeFence(data)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
	}

	var summary string
	if err := json.Unmarshal(fields["summary"], &summary); err != nil || strings.TrimSpace(summary) == "" {
		return nil, fmt.Errorf("%w: summary missing", ErrMalformedAnalysis)
	}
	for _, key := range []string{"keyTerms", "potentialRisks"} {
		if !isJSONArray(fields[key]) {
			return nil, fmt.Errorf("%w: %s is not an array", ErrMalformedAnalysis, key)
		}
	}

	var result AnalysisResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
	}
	return &result, nil
}

// StripCodeFence removes a leading ```lang line and a trailing ``` if both
// are present.
func StripCodeFence(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("```")) {
		return trimmed
	}
	nl := bytes.IndexByte(trimmed, '\n')
	if nl < 0 {
		return trimmed
	}
	inner := bytes.TrimSpace(trimmed[nl+1:])
	if !bytes.HasSuffix(inner, []byte("```")) {
		return trimmed
	}
	return bytes.TrimSpace(inner[:len(inner)-3])
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
