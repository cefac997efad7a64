package result

import (
	"github.com/pkg/errors"

	"github.com/trezcool/matokeo/core"
)

var (
	errNonPositiveFullMarks = errors.New("full marks must be greater than 0")
	errNonPositiveCredit    = errors.New("credit must be greater than 0")
)

type (
	// GradeItem is one subject's score to be graded.
	GradeItem struct {
		SubjectName   string
		MarksObtained float64
		FullMarks     float64
		Credit        float64
	}

	// SubjectGrade is one subject's computed grade.
	SubjectGrade struct {
		SubjectName string  `json:"subject_name"`
		Percent     float64 `json:"percent"`
		Grade       string  `json:"grade"`
		GradePoint  float64 `json:"grade_point"`
		Credit      float64 `json:"credit"`
	}

	// Summary is the aggregated outcome of grading a set of subjects.
	// GPA is the credit-weighted average of grade points, rounded half-up to
	// 2 decimal places; AvgPercent is the credit-weighted average percentage
	// the overall grade is derived from.
	Summary struct {
		GPA          float64        `json:"gpa"`
		AvgPercent   float64        `json:"avg_percent"`
		TotalMarks   float64        `json:"total_marks"`
		TotalCredits float64        `json:"total_credits"`
		Subjects     []SubjectGrade `json:"subjects"`
	}
)

// ComputeGPA grades each item and accumulates the credit-weighted GPA.
// An empty item list is not an error: it yields a zero Summary ("no graded
// subjects yet"). Pure computation; persistence is the caller's concern.
func ComputeGPA(items []GradeItem) (Summary, error) {
	summary := Summary{Subjects: make([]SubjectGrade, 0, len(items))}

	var weightedPoints, weightedPct float64
	for _, item := range items {
		if item.FullMarks <= 0 {
			return Summary{}, core.NewValidationError(errNonPositiveFullMarks,
				core.FieldError{Field: "full_marks", Error: errNonPositiveFullMarks.Error()})
		}
		if item.Credit <= 0 {
			return Summary{}, core.NewValidationError(errNonPositiveCredit,
				core.FieldError{Field: "credit", Error: errNonPositiveCredit.Error()})
		}

		pct := item.MarksObtained / item.FullMarks * 100
		tier, err := GradeFor(pct)
		if err != nil {
			return Summary{}, err
		}

		weightedPoints += tier.Point * item.Credit
		weightedPct += pct * item.Credit
		summary.TotalMarks += item.MarksObtained
		summary.TotalCredits += item.Credit

		summary.Subjects = append(summary.Subjects, SubjectGrade{
			SubjectName: item.SubjectName,
			Percent:     core.Round2(pct),
			Grade:       tier.Label,
			GradePoint:  tier.Point,
			Credit:      item.Credit,
		})
	}

	if summary.TotalCredits > 0 {
		summary.GPA = core.Round2(weightedPoints / summary.TotalCredits)
		summary.AvgPercent = weightedPct / summary.TotalCredits
	}
	return summary, nil
}
