package subject

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/matokeo/core"
)

// DefaultFullMarks applies when a subject is created without explicit full marks.
const DefaultFullMarks = 100

// Subject is a taught course a student can be graded on.
type Subject struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Program   string    `json:"program"`
	Semester  int       `json:"semester"`
	FullMarks float64   `json:"full_marks"`
	Credit    float64   `json:"credit"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Code      string  `json:"code" validate:"required,alphanum_"`
	Name      string  `json:"name" validate:"required"`
	Program   string  `json:"program" validate:"required"`
	Semester  int     `json:"semester" validate:"required,min=1,max=12"`
	FullMarks float64 `json:"full_marks" validate:"omitempty,gt=0"`
	Credit    float64 `json:"credit" validate:"required,gt=0"`
}

func (ns *NewSubject) Validate(validate *validator.Validate, svc Service) error {
	ns.Code = core.CleanString(ns.Code, true /* lower */)
	ns.Name = core.CleanString(ns.Name)
	ns.Program = core.CleanString(ns.Program)
	if ns.FullMarks == 0 {
		ns.FullMarks = DefaultFullMarks
	}

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(ns.Code)
}

// UpdateSubject defines what information may be provided to modify an existing Subject.
type UpdateSubject struct {
	Code      string  `json:"code" validate:"omitempty,alphanum_"`
	Name      string  `json:"name"`
	Program   string  `json:"program"`
	Semester  int     `json:"semester" validate:"omitempty,min=1,max=12"`
	FullMarks float64 `json:"full_marks" validate:"omitempty,gt=0"`
	Credit    float64 `json:"credit" validate:"omitempty,gt=0"`
}

func (us *UpdateSubject) Validate(validate *validator.Validate, orig Subject, svc Service) error {
	if code := core.CleanString(us.Code, true /* lower */); code != "" {
		us.Code = code
	} else {
		us.Code = orig.Code
	}
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if prog := core.CleanString(us.Program); prog != "" {
		us.Program = prog
	} else {
		us.Program = orig.Program
	}
	if us.Semester == 0 {
		us.Semester = orig.Semester
	}
	if us.FullMarks == 0 {
		us.FullMarks = orig.FullMarks
	}
	if us.Credit == 0 {
		us.Credit = orig.Credit
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(us.Code, orig)
}

type QueryFilter struct {
	Search   string `query:"search"` // matches Code or Name
	Program  string `query:"program"`
	Semester int    `query:"semester"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Program == "" && qf.Semester == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Program = core.CleanString(qf.Program)
}
