package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matokeo/core"
)

// Student is an enrolled student. It may optionally be linked to a login
// account (User) via UserID.
type Student struct {
	ID            string      `json:"id"`
	UserID        null.String `json:"user_id,omitempty"`
	Name          string      `json:"name"`
	RollNo        string      `json:"roll_no"`
	Email         string      `json:"email,omitempty"`
	Program       string      `json:"program"`
	Semester      int         `json:"semester"`
	AdmissionYear int         `json:"admission_year"`
	CreatedAt     time.Time   `json:"created_at"` // UTC
	UpdatedAt     time.Time   `json:"updated_at"` // UTC
}

// NewStudent contains information needed to enroll a new Student.
type NewStudent struct {
	Name          string `json:"name" validate:"required"`
	RollNo        string `json:"roll_no" validate:"required,alphanum_"`
	Email         string `json:"email" validate:"omitempty,email"`
	Program       string `json:"program" validate:"required"`
	Semester      int    `json:"semester" validate:"required,min=1,max=12"`
	AdmissionYear int    `json:"admission_year" validate:"required,min=1900"`
	UserID        string `json:"user_id" validate:"omitempty,uuid4"`
}

func (ns *NewStudent) Validate(validate *validator.Validate, svc Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.RollNo = core.CleanString(ns.RollNo, true /* lower */)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Program = core.CleanString(ns.Program)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckRollNoUniqueness(ns.RollNo)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	Name          string `json:"name"`
	RollNo        string `json:"roll_no" validate:"omitempty,alphanum_"`
	Email         string `json:"email" validate:"omitempty,email"`
	Program       string `json:"program"`
	Semester      int    `json:"semester" validate:"omitempty,min=1,max=12"`
	AdmissionYear int    `json:"admission_year" validate:"omitempty,min=1900"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate, orig Student, svc Service) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if roll := core.CleanString(us.RollNo, true /* lower */); roll != "" {
		us.RollNo = roll
	} else {
		us.RollNo = orig.RollNo
	}
	if email := core.CleanString(us.Email, true /* lower */); email != "" {
		us.Email = email
	} else {
		us.Email = orig.Email
	}
	if prog := core.CleanString(us.Program); prog != "" {
		us.Program = prog
	} else {
		us.Program = orig.Program
	}
	if us.Semester == 0 {
		us.Semester = orig.Semester
	}
	if us.AdmissionYear == 0 {
		us.AdmissionYear = orig.AdmissionYear
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckRollNoUniqueness(us.RollNo, orig)
}

type QueryFilter struct {
	Search   string `query:"search"` // matches Name or RollNo
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
