package mark_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/mark"
	"github.com/trezcool/matokeo/core/student"
	"github.com/trezcool/matokeo/core/subject"
	dummydb "github.com/trezcool/matokeo/storage/database/dummy"
)

// aggregatorStub records aggregation requests instead of computing results.
type aggregatorStub struct {
	calls []string
}

func (a *aggregatorStub) Aggregate(_ context.Context, studentID string, examYear int) error {
	a.calls = append(a.calls, fmt.Sprintf("%s:%d", studentID, examYear))
	return nil
}

type testDeps struct {
	svc    *mark.Service
	stdSvc *student.Service
	subSvc *subject.Service
	agg    *aggregatorStub
}

func setup(t *testing.T) testDeps {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	stdSvc := student.NewService(dummydb.NewStudentRepository(db), &core.Config{TestMode: true})
	subSvc := subject.NewService(dummydb.NewSubjectRepository(db))
	agg := new(aggregatorStub)
	svc := mark.NewService(dummydb.NewMarkRepository(db), subSvc, stdSvc, agg)
	return testDeps{svc: svc, stdSvc: stdSvc, subSvc: subSvc, agg: agg}
}

func createStudent(t *testing.T, deps testDeps, rollNo string) student.Student {
	std, err := deps.stdSvc.Create(context.Background(), student.NewStudent{
		Name:          "Asha Juma",
		RollNo:        rollNo,
		Program:       "BSc CS",
		Semester:      1,
		AdmissionYear: 2024,
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return std
}

func createSubject(t *testing.T, deps testDeps, code, name string, fullMarks, credit float64) subject.Subject {
	sub, err := deps.subSvc.Create(context.Background(), subject.NewSubject{
		Code:      code,
		Name:      name,
		Program:   "BSc CS",
		Semester:  1,
		FullMarks: fullMarks,
		Credit:    credit,
	})
	if err != nil {
		t.Fatalf("createSubject() failed: %v", err)
	}
	return sub
}

func TestService_Create(t *testing.T) {
	deps := setup(t)
	ctx := context.Background()

	std := createStudent(t, deps, "cs001")
	sub := createSubject(t, deps, "mat101", "Mathematics", 100, 3)

	m, err := deps.svc.Create(ctx, mark.NewMark{
		StudentID:     std.ID,
		SubjectID:     sub.ID,
		MarksObtained: 80,
		ExamType:      string(mark.ExamFinal),
		ExamYear:      2026,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	// the subject's name, full marks and credit are denormalized onto the mark
	assert.Equal(t, "Mathematics", m.SubjectName)
	assert.Equal(t, float64(100), m.FullMarks)
	assert.Equal(t, float64(3), m.Credit)
	assert.Equal(t, mark.ExamFinal, m.ExamType)

	// a final mark triggers aggregation
	assert.Equal(t, []string{std.ID + ":2026"}, deps.agg.calls)
}

func TestService_Create_nonFinalSkipsAggregation(t *testing.T) {
	deps := setup(t)
	ctx := context.Background()

	std := createStudent(t, deps, "cs001")
	sub := createSubject(t, deps, "mat101", "Mathematics", 20, 3)

	_, err := deps.svc.Create(ctx, mark.NewMark{
		StudentID:     std.ID,
		SubjectID:     sub.ID,
		MarksObtained: 15,
		ExamType:      string(mark.ExamInternal),
		ExamYear:      2026,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	assert.Empty(t, deps.agg.calls)
}

func TestService_Create_unknownStudent(t *testing.T) {
	deps := setup(t)

	sub := createSubject(t, deps, "mat101", "Mathematics", 100, 3)

	_, err := deps.svc.Create(context.Background(), mark.NewMark{
		StudentID:     "404",
		SubjectID:     sub.ID,
		MarksObtained: 80,
		ExamType:      string(mark.ExamFinal),
		ExamYear:      2026,
	})
	assert.Equal(t, student.ErrNotFound, err)
}

func TestService_Create_exceedsFullMarks(t *testing.T) {
	deps := setup(t)

	std := createStudent(t, deps, "cs001")
	sub := createSubject(t, deps, "mat101", "Mathematics", 50, 3)

	_, err := deps.svc.Create(context.Background(), mark.NewMark{
		StudentID:     std.ID,
		SubjectID:     sub.ID,
		MarksObtained: 51,
		ExamType:      string(mark.ExamFinal),
		ExamYear:      2026,
	})
	assert.True(t, core.IsValidationError(err))
	assert.Empty(t, deps.agg.calls)
}

func TestService_Create_duplicate(t *testing.T) {
	deps := setup(t)
	ctx := context.Background()

	std := createStudent(t, deps, "cs001")
	sub := createSubject(t, deps, "mat101", "Mathematics", 100, 3)

	nm := mark.NewMark{
		StudentID:     std.ID,
		SubjectID:     sub.ID,
		MarksObtained: 80,
		ExamType:      string(mark.ExamFinal),
		ExamYear:      2026,
	}
	if _, err := deps.svc.Create(ctx, nm); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	_, err := deps.svc.Create(ctx, nm)
	assert.True(t, core.IsValidationError(err))

	// same subject, different exam type is allowed
	nm.ExamType = string(mark.ExamInternal)
	nm.MarksObtained = 15
	if _, err = deps.svc.Create(ctx, nm); err != nil {
		t.Errorf("Create() failed: %v", err)
	}
}

func TestService_Update(t *testing.T) {
	deps := setup(t)
	ctx := context.Background()

	std := createStudent(t, deps, "cs001")
	sub := createSubject(t, deps, "mat101", "Mathematics", 100, 3)

	m, err := deps.svc.Create(ctx, mark.NewMark{
		StudentID:     std.ID,
		SubjectID:     sub.ID,
		MarksObtained: 80,
		ExamType:      string(mark.ExamFinal),
		ExamYear:      2026,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	_, err = deps.svc.Update(ctx, m, mark.UpdateMark{MarksObtained: 101})
	assert.True(t, core.IsValidationError(err))

	updated, err := deps.svc.Update(ctx, m, mark.UpdateMark{MarksObtained: 90})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	assert.Equal(t, float64(90), updated.MarksObtained)
	assert.Equal(t, m.ID, updated.ID)

	// create + update both aggregated
	assert.Equal(t, []string{std.ID + ":2026", std.ID + ":2026"}, deps.agg.calls)
}

func TestService_BulkUpdate(t *testing.T) {
	deps := setup(t)
	ctx := context.Background()

	std := createStudent(t, deps, "cs001")
	mat := createSubject(t, deps, "mat101", "Mathematics", 100, 3)
	phy := createSubject(t, deps, "phy101", "Physics", 100, 2)

	m1, err := deps.svc.Create(ctx, mark.NewMark{
		StudentID: std.ID, SubjectID: mat.ID, MarksObtained: 80, ExamType: string(mark.ExamFinal), ExamYear: 2026,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	m2, err := deps.svc.Create(ctx, mark.NewMark{
		StudentID: std.ID, SubjectID: phy.ID, MarksObtained: 60, ExamType: string(mark.ExamFinal), ExamYear: 2026,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	deps.agg.calls = nil

	updated, err := deps.svc.BulkUpdate(ctx, mark.BulkUpdateMarks{
		Marks: []mark.BulkMarkItem{
			{ID: m1.ID, MarksObtained: 85},
			{ID: m2.ID, MarksObtained: 65},
		},
	})
	if err != nil {
		t.Fatalf("BulkUpdate() failed: %v", err)
	}
	assert.Len(t, updated, 2)

	// both marks belong to the same student and year: one aggregation
	assert.Equal(t, []string{std.ID + ":2026"}, deps.agg.calls)
}
