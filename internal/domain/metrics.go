// Package domain defines the core data model for the evaluation subsystem:
// success metrics, evaluation requests and results, test history records,
// and user settings. Types here are pure data with validation; they have no
// network, storage, or crypto dependencies.
package domain

import (
	"math"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator instance used for struct validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Score range bounds for every metric dimension.
const (
	MinScore = 0
	MaxScore = 100
)

// Overall-score weights. TaskCompletion and InstructionAdherence dominate
// because they measure whether the model actually did what was asked;
// coherence and efficiency refine the ranking.
const (
	WeightTaskCompletion       = 0.30
	WeightInstructionAdherence = 0.30
	WeightCoherence            = 0.25
	WeightEfficiency           = 0.15
)

// SuccessMetrics is the five-dimension score a scoring call produces, plus
// the judge's free-text explanation. All five scores must be present and
// within [0,100] or the record is rejected.
type SuccessMetrics struct {
	OverallScore              int    `json:"overallScore" validate:"gte=0,lte=100"`
	CoherenceScore            int    `json:"coherenceScore" validate:"gte=0,lte=100"`
	TaskCompletionScore       int    `json:"taskCompletionScore" validate:"gte=0,lte=100"`
	InstructionAdherenceScore int    `json:"instructionAdherenceScore" validate:"gte=0,lte=100"`
	EfficiencyScore           int    `json:"efficiencyScore" validate:"gte=0,lte=100"`
	Explanation               string `json:"explanation"`
}

// Validate checks every score dimension against the [0,100] range.
func (m *SuccessMetrics) Validate() error {
	return validate.Struct(m)
}

// CalculateOverallScore recomputes the overall score as a fixed weighted sum
// of the four component dimensions, rounded to the nearest integer. Callers
// use it when they want a deterministic overall number instead of trusting
// the judge's self-reported one.
func CalculateOverallScore(m SuccessMetrics) int {
	weighted := float64(m.TaskCompletionScore)*WeightTaskCompletion +
		float64(m.InstructionAdherenceScore)*WeightInstructionAdherence +
		float64(m.CoherenceScore)*WeightCoherence +
		float64(m.EfficiencyScore)*WeightEfficiency
	return int(math.Round(weighted))
}
