package mark

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/student"
	"github.com/trezcool/matokeo/core/subject"
)

var (
	// errors
	ErrNotFound   = errors.New("mark not found")
	ErrMarkExists = errors.New("a mark for this student, subject and exam already exists")
)

type (
	Repository interface {
		CreateMark(ctx context.Context, m Mark) (Mark, error)
		GetMarkByID(ctx context.Context, id string) (Mark, error)
		MarkExists(ctx context.Context, studentID, subjectID string, examType ExamType, examYear int) (bool, error)
		// FilterMarks applies AND operation on available QueryFilter fields.
		FilterMarks(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Mark, error)
		UpdateMark(ctx context.Context, m Mark) (Mark, error)
	}

	// Aggregator recomputes a student's aggregated result for an exam year.
	// Implemented by the result service; declared here so recording a final
	// mark can trigger aggregation without an import cycle.
	Aggregator interface {
		Aggregate(ctx context.Context, studentID string, examYear int) error
	}

	Service struct {
		repo       Repository
		subjectSvc *subject.Service
		studentSvc *student.Service
		aggregator Aggregator
	}
)

func NewService(repo Repository, subjectSvc *subject.Service, studentSvc *student.Service, aggregator Aggregator) *Service {
	return &Service{
		repo:       repo,
		subjectSvc: subjectSvc,
		studentSvc: studentSvc,
		aggregator: aggregator,
	}
}

// Create records a new mark. The subject's name, full marks and credit are
// denormalized onto the mark; the obtained score must not exceed the
// subject's full marks. Recording a final mark triggers result aggregation
// for the student's exam year.
func (svc *Service) Create(ctx context.Context, nm NewMark) (Mark, error) {
	if _, err := svc.studentSvc.GetByID(ctx, nm.StudentID); err != nil {
		return Mark{}, err
	}
	sub, err := svc.subjectSvc.GetByID(ctx, nm.SubjectID)
	if err != nil {
		return Mark{}, err
	}
	if nm.MarksObtained > sub.FullMarks {
		return Mark{}, core.NewValidationError(nil, core.FieldError{
			Field: "marks_obtained",
			Error: fmt.Sprintf("marks obtained cannot exceed full marks (%g)", sub.FullMarks),
		})
	}

	examType := ExamType(nm.ExamType)
	exists, err := svc.repo.MarkExists(ctx, nm.StudentID, nm.SubjectID, examType, nm.ExamYear)
	if err != nil {
		return Mark{}, errors.Wrap(err, "checking mark uniqueness")
	}
	if exists {
		return Mark{}, core.NewValidationError(ErrMarkExists)
	}

	now := time.Now().UTC()
	m := Mark{
		StudentID:     nm.StudentID,
		SubjectID:     nm.SubjectID,
		SubjectName:   sub.Name,
		MarksObtained: nm.MarksObtained,
		FullMarks:     sub.FullMarks,
		Credit:        sub.Credit,
		ExamType:      examType,
		ExamYear:      nm.ExamYear,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m, err = svc.repo.CreateMark(ctx, m)
	if err != nil {
		return Mark{}, errors.Wrap(err, "creating mark")
	}

	if err = svc.aggregate(ctx, m); err != nil {
		return m, err
	}
	return m, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Mark, error) {
	return svc.repo.GetMarkByID(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Mark, error) {
	return svc.repo.FilterMarks(ctx, filter, ordering...)
}

// Update mutates a mark's obtained score in place and, for final marks,
// triggers result aggregation for the student's exam year.
func (svc *Service) Update(ctx context.Context, orig Mark, um UpdateMark) (Mark, error) {
	if um.MarksObtained > orig.FullMarks {
		return Mark{}, core.NewValidationError(nil, core.FieldError{
			Field: "marks_obtained",
			Error: fmt.Sprintf("marks obtained cannot exceed full marks (%g)", orig.FullMarks),
		})
	}

	m := orig
	m.MarksObtained = um.MarksObtained
	m.UpdatedAt = time.Now().UTC()

	m, err := svc.repo.UpdateMark(ctx, m)
	if err != nil {
		return Mark{}, errors.Wrap(err, "updating mark")
	}

	if err = svc.aggregate(ctx, m); err != nil {
		return m, err
	}
	return m, nil
}

// BulkUpdate applies score updates to several marks, then aggregates each
// affected (student, exam year) pair once.
func (svc *Service) BulkUpdate(ctx context.Context, bu BulkUpdateMarks) ([]Mark, error) {
	type studentYear struct {
		studentID string
		examYear  int
	}

	updated := make([]Mark, 0, len(bu.Marks))
	affected := make(map[studentYear]bool, len(bu.Marks))

	for _, item := range bu.Marks {
		orig, err := svc.repo.GetMarkByID(ctx, item.ID)
		if err != nil {
			return updated, err
		}
		if item.MarksObtained > orig.FullMarks {
			return updated, core.NewValidationError(nil, core.FieldError{
				Field: "marks_obtained",
				Error: fmt.Sprintf("marks obtained cannot exceed full marks (%g) for mark %s", orig.FullMarks, orig.ID),
			})
		}

		m := orig
		m.MarksObtained = item.MarksObtained
		m.UpdatedAt = time.Now().UTC()

		m, err = svc.repo.UpdateMark(ctx, m)
		if err != nil {
			return updated, errors.Wrap(err, "updating mark")
		}
		updated = append(updated, m)

		if m.ExamType == ExamFinal {
			affected[studentYear{m.StudentID, m.ExamYear}] = true
		}
	}

	for sy := range affected {
		if err := svc.aggregator.Aggregate(ctx, sy.studentID, sy.examYear); err != nil {
			return updated, errors.Wrap(err, "aggregating results")
		}
	}
	return updated, nil
}

func (svc *Service) aggregate(ctx context.Context, m Mark) error {
	if m.ExamType != ExamFinal {
		return nil
	}
	return errors.Wrap(svc.aggregator.Aggregate(ctx, m.StudentID, m.ExamYear), "aggregating result")
}
