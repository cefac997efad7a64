package student

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matokeo/core"
)

var (
	// errors
	ErrNotFound     = errors.New("student not found")
	ErrRollNoExists = errors.New("a student with this roll number already exists")
)

type (
	Repository interface {
		CheckRollNoUniqueness(ctx context.Context, rollNo string, excludedStudents ...Student) error
		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		GetStudentByRollNo(ctx context.Context, rollNo string) (Student, error)
		GetStudentByUserID(ctx context.Context, userID string) (Student, error)
		// FilterStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Student.Name or Student.RollNo.
		FilterStudents(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		// DeleteStudentsByID deletes students along with their marks and results.
		DeleteStudentsByID(ctx context.Context, ids ...string) (int, error)
	}

	Service struct {
		repo Repository
		conf *core.Config
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, conf: conf}
}

func (svc *Service) CheckRollNoUniqueness(rollNo string, exclStudents ...Student) error {
	if err := svc.repo.CheckRollNoUniqueness(context.Background(), rollNo, exclStudents...); err != nil {
		if errors.Cause(err) == ErrRollNoExists {
			return core.NewValidationError(err, core.FieldError{Field: "roll_no", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	std := Student{
		UserID:        null.NewString(ns.UserID, ns.UserID != ""),
		Name:          ns.Name,
		RollNo:        ns.RollNo,
		Email:         ns.Email,
		Program:       ns.Program,
		Semester:      ns.Semester,
		AdmissionYear: ns.AdmissionYear,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	std, err := svc.repo.CreateStudent(ctx, std)
	return std, errors.Wrap(err, "creating student")
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) GetByRollNo(ctx context.Context, rollNo string) (Student, error) {
	return svc.repo.GetStudentByRollNo(ctx, core.CleanString(rollNo, true /* lower */))
}

func (svc *Service) GetByUserID(ctx context.Context, userID string) (Student, error) {
	return svc.repo.GetStudentByUserID(ctx, userID)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Student, error) {
	filter.Clean()
	return svc.repo.FilterStudents(ctx, filter, ordering...)
}

func (svc *Service) Update(ctx context.Context, orig Student, us UpdateStudent) (Student, error) {
	std := orig
	std.Name = us.Name
	std.RollNo = us.RollNo
	std.Email = us.Email
	std.Program = us.Program
	std.Semester = us.Semester
	std.AdmissionYear = us.AdmissionYear
	std.UpdatedAt = time.Now().UTC()

	std, err := svc.repo.UpdateStudent(ctx, std)
	return std, errors.Wrap(err, "updating student")
}

func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	cnt, err := svc.repo.DeleteStudentsByID(ctx, ids...)
	return cnt, errors.Wrap(err, "deleting students")
}
