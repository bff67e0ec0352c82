package engine

import (
	"fmt"

	"github.com/evalforge/evalforge/internal/llm/transport"
)

// scoringTemperature keeps the judge close to deterministic. The primary
// call honors the caller's temperature; the scoring call never does.
const scoringTemperature = 0.1

// scoringSystemPrompt pins the judge's role and output contract. The
// response must be a single JSON object so the parser can locate it even
// when the model wraps it in prose.
const scoringSystemPrompt = `You are an expert evaluator grading how well an AI model followed its instructions.

Score the response on a 0-100 integer scale across five dimensions and reply with a single JSON object, no other text:

{
  "overallScore": <0-100>,
  "coherenceScore": <0-100>,
  "taskCompletionScore": <0-100>,
  "instructionAdherenceScore": <0-100>,
  "efficiencyScore": <0-100>,
  "explanation": "<2-3 sentence justification>"
}`

const scoringUserTemplate = `Evaluate the following exchange.

INSTRUCTIONS GIVEN TO THE MODEL:
%s

TEST PROMPT:
%s

MODEL RESPONSE:
%s`

// scoringMessages builds the deterministic judge conversation embedding the
// original instructions, the test prompt, and the primary model's raw
// response.
func scoringMessages(instructions, prompt, response string) []transport.ChatMessage {
	return []transport.ChatMessage{
		{Role: transport.RoleSystem, Content: scoringSystemPrompt},
		{Role: transport.RoleUser, Content: fmt.Sprintf(scoringUserTemplate, instructions, prompt, response)},
	}
}

// primaryMessages builds the primary-execution conversation: the user's
// instructions as the system message, the test prompt as the user message.
func primaryMessages(instructions, prompt string) []transport.ChatMessage {
	return []transport.ChatMessage{
		{Role: transport.RoleSystem, Content: instructions},
		{Role: transport.RoleUser, Content: prompt},
	}
}
