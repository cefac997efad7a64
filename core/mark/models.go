package mark

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/matokeo/core"
)

// ExamType qualifies which exam instance a mark was recorded for.
// Only final marks feed result aggregation.
type ExamType string

const (
	ExamInternal ExamType = "internal"
	ExamFinal    ExamType = "final"
	ExamOther    ExamType = "other"
)

var AllExamTypes = []ExamType{ExamInternal, ExamFinal, ExamOther}

func (et ExamType) IsValid() bool {
	for _, t := range AllExamTypes {
		if et == t {
			return true
		}
	}
	return false
}

// Mark is one subject's recorded score for one student in one exam instance.
// At most one Mark exists per (student, subject, exam type, exam year).
// SubjectName, FullMarks and Credit are denormalized off the subject row at
// creation time so that historical results survive subject edits.
type Mark struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"student_id"`
	SubjectID     string    `json:"subject_id"`
	SubjectName   string    `json:"subject_name"`
	MarksObtained float64   `json:"marks_obtained"`
	FullMarks     float64   `json:"full_marks"`
	Credit        float64   `json:"credit"`
	ExamType      ExamType  `json:"exam_type"`
	ExamYear      int       `json:"exam_year"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// NewMark contains information needed to record a new Mark.
// FullMarks and Credit are resolved from the subject; MarksObtained is
// bound-checked against the subject's full marks at service level.
type NewMark struct {
	StudentID     string  `json:"student_id" validate:"required,uuid4"`
	SubjectID     string  `json:"subject_id" validate:"required,uuid4"`
	MarksObtained float64 `json:"marks_obtained" validate:"min=0"`
	ExamType      string  `json:"exam_type" validate:"required,examtype"`
	ExamYear      int     `json:"exam_year" validate:"required,min=1900"`
}

func (nm *NewMark) Validate(validate *validator.Validate) error {
	nm.ExamType = core.CleanString(nm.ExamType, true /* lower */)
	return validate.Struct(nm)
}

// UpdateMark only allows mutating the obtained score; everything else is
// fixed by the (student, subject, exam type, exam year) identity.
type UpdateMark struct {
	MarksObtained float64 `json:"marks_obtained" validate:"min=0"`
}

func (um *UpdateMark) Validate(validate *validator.Validate) error {
	return validate.Struct(um)
}

// BulkUpdateMarks applies score updates to several marks at once.
type BulkUpdateMarks struct {
	Marks []BulkMarkItem `json:"marks" validate:"required,min=1,dive"`
}

type BulkMarkItem struct {
	ID            string  `json:"id" validate:"required,uuid4"`
	MarksObtained float64 `json:"marks_obtained" validate:"min=0"`
}

func (bu *BulkUpdateMarks) Validate(validate *validator.Validate) error {
	return validate.Struct(bu)
}

type QueryFilter struct {
	StudentID string   `query:"student_id"`
	SubjectID string   `query:"subject_id"`
	ExamType  ExamType `query:"exam_type"`
	ExamYear  int      `query:"exam_year"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.SubjectID == "" && qf.ExamType == "" && qf.ExamYear == 0
}

func (qf *QueryFilter) Clean() {
	qf.ExamType = ExamType(core.CleanString(string(qf.ExamType), true /* lower */))
}
