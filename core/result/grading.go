package result

import (
	"github.com/pkg/errors"

	"github.com/trezcool/matokeo/core"
)

var errPercentOutOfRange = errors.New("percentage must be between 0 and 100")

// GradeTier is one row of the grading table: every percentage at or above
// MinPercent (and below the next tier up) maps to (Label, Point).
type GradeTier struct {
	MinPercent float64 `json:"min_percent"`
	Label      string  `json:"label"`
	Point      float64 `json:"point"`
}

// GradeTable is the single source of truth for grading, ordered highest
// threshold first. First matching tier wins; thresholds are inclusive lower
// bounds with no gaps.
var GradeTable = []GradeTier{
	{90, "A+", 4.0},
	{80, "A", 3.6},
	{70, "B+", 3.2},
	{60, "B", 2.8},
	{50, "C+", 2.4},
	{40, "C", 2.0},
	{35, "D", 1.6},
	{0, "F", 0.0},
}

// GradeFor looks up the grade tier for a percentage in [0, 100].
func GradeFor(pct float64) (GradeTier, error) {
	if pct < 0 || pct > 100 {
		return GradeTier{}, core.NewValidationError(errPercentOutOfRange,
			core.FieldError{Field: "percentage", Error: errPercentOutOfRange.Error()})
	}
	for _, tier := range GradeTable {
		if pct >= tier.MinPercent {
			return tier, nil
		}
	}
	return GradeTable[len(GradeTable)-1], nil // unreachable: bottom tier starts at 0
}
