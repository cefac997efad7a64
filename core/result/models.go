package result

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matokeo/core"
)

// Status is a result's lifecycle state. The only modeled transition is
// pending → published; a final-mark mutation moves a published result back
// to pending (it becomes provisional again until republished).
type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
)

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusPublished
}

// Result is one student's aggregated outcome for one (semester, exam year)
// cohort. Exactly one Result exists per (student, semester, exam year).
// Rank is null while the result is pending.
type Result struct {
	ID           string      `json:"id"`
	StudentID    string      `json:"student_id"`
	StudentName  string      `json:"student_name"`
	RollNo       string      `json:"roll_no"`
	Program      string      `json:"program"`
	Semester     int         `json:"semester"`
	ExamYear     int         `json:"exam_year"`
	TotalMarks   float64     `json:"total_marks"`
	TotalCredits float64     `json:"total_credits"`
	GPA          float64     `json:"gpa"`
	Grade        string      `json:"grade"`
	Rank         null.Int    `json:"rank"`
	Status       Status      `json:"status"`
	PublishedAt  null.Time   `json:"published_at"`
	ApprovedBy   null.String `json:"approved_by"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
}

// Cohort identifies the set of results ranked together: same semester and
// exam year, optionally narrowed to one program. Not a stored entity.
type Cohort struct {
	Semester int
	ExamYear int
	Program  string // empty: all programs
}

// Key is the cohort's lock key. Program intentionally does not participate:
// program-filtered rankings still contend with the semester+year cohort.
func (c Cohort) Key() string {
	return fmt.Sprintf("%d:%d", c.Semester, c.ExamYear)
}

type QueryFilter struct {
	StudentID string `query:"student_id"`
	Semester  int    `query:"semester"`
	ExamYear  int    `query:"exam_year"`
	Program   string `query:"program"`
	Status    Status `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.Semester == 0 && qf.ExamYear == 0 && qf.Program == "" && qf.Status == ""
}

func (qf *QueryFilter) Clean() {
	qf.Program = core.CleanString(qf.Program)
	qf.Status = Status(core.CleanString(string(qf.Status), true /* lower */))
}

// PublishFilter scopes a publish action. All fields optional; the broadest
// call publishes every pending result.
type PublishFilter struct {
	Semester int    `json:"semester"`
	ExamYear int    `json:"exam_year"`
	Program  string `json:"program"`
}
