package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/wonny/threes/backend/internal/contracts"
)

// DecodeVariant tells which decode path produced an evaluation
type DecodeVariant string

const (
	VariantStrict     DecodeVariant = "strict"
	VariantNormalized DecodeVariant = "normalized"
)

// Evaluation is a decoded evaluator response
type Evaluation struct {
	Scores         contracts.ScoreVector
	Justifications map[contracts.Dimension]string
	Summary        string
	Variant        DecodeVariant
}

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ExtractJSON pulls the first JSON object out of fenced or prose-wrapped text
func ExtractJSON(text string) (string, error) {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		if obj, ok := firstObject(m[1]); ok {
			return obj, nil
		}
	}
	if obj, ok := firstObject(text); ok {
		return obj, nil
	}
	return "", fmt.Errorf("%w: no JSON object found", contracts.ErrMalformedOutput)
}

// firstObject returns the first balanced {...} span, string-aware
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		depth := 0
		inStr := false
		escaped := false
	scan:
		for i := start; i < len(s); i++ {
			c := s[i]
			if inStr {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inStr = false
				}
				continue
			}
			switch c {
			case '"':
				inStr = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					candidate := s[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					break scan
				}
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// DecodeObject extracts and decodes a JSON object into v
func DecodeObject(text string, v interface{}) error {
	obj, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrMalformedOutput, err)
	}
	return nil
}

// strictScore is the canonical per-dimension shape
type strictScore struct {
	Score  *float64 `json:"score"`
	Reason string   `json:"reason"`
}

// DecodeEvaluation decodes the evaluator response. The strict canonical
// shape is tried first; if any dimension is missing or malformed the whole
// object goes through Normalize. An object with no usable dimension at all
// is ErrMalformedOutput.
func DecodeEvaluation(text string) (*Evaluation, error) {
	obj, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	raw, err := decodeRaw(obj)
	if err != nil {
		return nil, err
	}
	raw = unwrapScores(raw)

	if ev, ok := decodeStrict(raw); ok {
		return ev, nil
	}

	n := Normalize(raw)
	if n.Matched == 0 {
		return nil, fmt.Errorf("%w: no score dimension recognised", contracts.ErrMalformedOutput)
	}
	return &Evaluation{
		Scores:         n.Scores,
		Justifications: n.Justifications,
		Summary:        summaryOf(raw),
		Variant:        VariantNormalized,
	}, nil
}

func decodeRaw(obj string) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(obj)))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrMalformedOutput, err)
	}
	return raw, nil
}

// unwrapScores descends into {"scores": {...}} style wrappers, keeping
// top-level summary fields reachable
func unwrapScores(raw map[string]interface{}) map[string]interface{} {
	for _, k := range []string{"scores", "score_vector", "evaluation", "dimensions"} {
		inner, ok := raw[k].(map[string]interface{})
		if !ok {
			continue
		}
		merged := make(map[string]interface{}, len(inner)+1)
		for ik, iv := range inner {
			merged[ik] = iv
		}
		if s, ok := raw["summary"]; ok {
			merged["summary"] = s
		}
		return merged
	}
	return raw
}

// decodeStrict succeeds only when all six canonical keys hold a number or
// a {score, reason} object
func decodeStrict(raw map[string]interface{}) (*Evaluation, bool) {
	ev := &Evaluation{
		Scores:         make(contracts.ScoreVector, len(contracts.Dimensions)),
		Justifications: make(map[contracts.Dimension]string),
		Summary:        summaryOf(raw),
		Variant:        VariantStrict,
	}
	for _, d := range contracts.Dimensions {
		v, ok := raw[string(d)]
		if !ok {
			return nil, false
		}
		switch x := v.(type) {
		case json.Number:
			f, err := x.Float64()
			if err != nil || !finite(f) {
				return nil, false
			}
			ev.Scores[d] = contracts.ClampScoreFloat(f)
		case map[string]interface{}:
			b, _ := json.Marshal(x)
			var s strictScore
			if err := json.Unmarshal(b, &s); err != nil || s.Score == nil || !finite(*s.Score) {
				return nil, false
			}
			ev.Scores[d] = contracts.ClampScoreFloat(*s.Score)
			if r := strings.TrimSpace(s.Reason); r != "" {
				ev.Justifications[d] = r
			}
		default:
			return nil, false
		}
	}
	return ev, true
}

func summaryOf(raw map[string]interface{}) string {
	for _, k := range []string{"summary", "rationale", "overall"} {
		if s, ok := raw[k].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
