package subject

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/matokeo/core"
)

var (
	// errors
	ErrNotFound   = errors.New("subject not found")
	ErrCodeExists = errors.New("a subject with this code already exists")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string, excludedSubjects ...Subject) error
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		GetSubjectByCode(ctx context.Context, code string) (Subject, error)
		// FilterSubjects applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Subject.Code or Subject.Name.
		FilterSubjects(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Subject, error)
		UpdateSubject(ctx context.Context, sub Subject) (Subject, error)
		DeleteSubjectsByID(ctx context.Context, ids ...string) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckCodeUniqueness(code string, exclSubjects ...Subject) error {
	if err := svc.repo.CheckCodeUniqueness(context.Background(), code, exclSubjects...); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	now := time.Now().UTC()
	sub := Subject{
		Code:      ns.Code,
		Name:      ns.Name,
		Program:   ns.Program,
		Semester:  ns.Semester,
		FullMarks: ns.FullMarks,
		Credit:    ns.Credit,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sub, err := svc.repo.CreateSubject(ctx, sub)
	return sub, errors.Wrap(err, "creating subject")
}

func (svc *Service) GetByID(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *Service) GetByCode(ctx context.Context, code string) (Subject, error) {
	return svc.repo.GetSubjectByCode(ctx, core.CleanString(code, true /* lower */))
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Subject, error) {
	filter.Clean()
	return svc.repo.FilterSubjects(ctx, filter, ordering...)
}

func (svc *Service) Update(ctx context.Context, orig Subject, us UpdateSubject) (Subject, error) {
	sub := orig
	sub.Code = us.Code
	sub.Name = us.Name
	sub.Program = us.Program
	sub.Semester = us.Semester
	sub.FullMarks = us.FullMarks
	sub.Credit = us.Credit
	sub.UpdatedAt = time.Now().UTC()

	sub, err := svc.repo.UpdateSubject(ctx, sub)
	return sub, errors.Wrap(err, "updating subject")
}

func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	cnt, err := svc.repo.DeleteSubjectsByID(ctx, ids...)
	return cnt, errors.Wrap(err, "deleting subjects")
}
