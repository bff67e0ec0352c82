package engine

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/evalforge/evalforge/internal/domain"
)

// ScoreOutcome records which parsing path produced a score result, so
// callers and tests can tell a genuine judge score from the neutral
// substitute.
type ScoreOutcome string

const (
	// ScoreParsed means the judge's payload decoded and validated.
	ScoreParsed ScoreOutcome = "parsed"

	// ScoreFallbackDefault means parsing or validation failed and neutral
	// defaults were substituted.
	ScoreFallbackDefault ScoreOutcome = "fallback_default"
)

const (
	// fallbackScore is the neutral value substituted for every dimension
	// when the judge's output cannot be used.
	fallbackScore = 50

	// fallbackExplanation is the fixed explanation accompanying neutral
	// defaults.
	fallbackExplanation = "scoring parse failed, default applied"
)

// scorePayload is the judge's expected JSON shape. Pointer fields
// distinguish absent from zero: a missing dimension fails validation
// rather than silently scoring zero.
type scorePayload struct {
	OverallScore              *float64 `json:"overallScore"`
	CoherenceScore            *float64 `json:"coherenceScore"`
	TaskCompletionScore       *float64 `json:"taskCompletionScore"`
	InstructionAdherenceScore *float64 `json:"instructionAdherenceScore"`
	EfficiencyScore           *float64 `json:"efficiencyScore"`
	Explanation               string   `json:"explanation"`
}

// parseScores extracts the judge's structured payload from its free-text
// reply and validates it. Parsing never fails the evaluation: any decode or
// validation problem yields neutral defaults with the fallback outcome, so
// the caller always receives usable metrics.
func parseScores(raw string) (domain.SuccessMetrics, ScoreOutcome) {
	blob, ok := extractJSON(raw)
	if !ok {
		return fallbackMetrics(), ScoreFallbackDefault
	}

	var payload scorePayload
	if err := json.Unmarshal([]byte(blob), &payload); err != nil {
		return fallbackMetrics(), ScoreFallbackDefault
	}

	scores := []*float64{
		payload.OverallScore,
		payload.CoherenceScore,
		payload.TaskCompletionScore,
		payload.InstructionAdherenceScore,
		payload.EfficiencyScore,
	}
	for _, s := range scores {
		if s == nil || *s < domain.MinScore || *s > domain.MaxScore {
			return fallbackMetrics(), ScoreFallbackDefault
		}
	}

	return domain.SuccessMetrics{
		OverallScore:              round(*payload.OverallScore),
		CoherenceScore:            round(*payload.CoherenceScore),
		TaskCompletionScore:       round(*payload.TaskCompletionScore),
		InstructionAdherenceScore: round(*payload.InstructionAdherenceScore),
		EfficiencyScore:           round(*payload.EfficiencyScore),
		Explanation:               payload.Explanation,
	}, ScoreParsed
}

func round(v float64) int {
	return int(math.Round(v))
}

func fallbackMetrics() domain.SuccessMetrics {
	return domain.SuccessMetrics{
		OverallScore:              fallbackScore,
		CoherenceScore:            fallbackScore,
		TaskCompletionScore:       fallbackScore,
		InstructionAdherenceScore: fallbackScore,
		EfficiencyScore:           fallbackScore,
		Explanation:               fallbackExplanation,
	}
}

// extractJSON locates the outermost balanced JSON object inside prose.
// Models frequently wrap the payload in commentary or a fenced code block;
// brace matching tracks string literals so braces inside the explanation
// text do not truncate the object.
func extractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
