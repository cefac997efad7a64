package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/mark"
)

type markRepository struct {
	db *markTable
}

var _ mark.Repository = (*markRepository)(nil) // interface compliance check

func NewMarkRepository(db *DB) mark.Repository {
	return &markRepository{db: db.mark}
}

func (repo *markRepository) query() []mark.Mark {
	marks := make([]mark.Mark, 0, len(repo.db.table))
	for _, m := range repo.db.table {
		marks = append(marks, *m)
	}
	return marks
}

func (repo *markRepository) CreateMark(_ context.Context, m mark.Mark) (mark.Mark, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	m.ID = uuid.New().String()
	repo.db.table[m.ID] = &m
	return m, nil
}

func (repo *markRepository) GetMarkByID(_ context.Context, id string) (mark.Mark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.table[id]; ok {
		return *m, nil
	}
	return mark.Mark{}, mark.ErrNotFound
}

func (repo *markRepository) MarkExists(_ context.Context, studentID, subjectID string, examType mark.ExamType, examYear int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, m := range repo.query() {
		if m.StudentID == studentID && m.SubjectID == subjectID && m.ExamType == examType && m.ExamYear == examYear {
			return true, nil
		}
	}
	return false, nil
}

func (repo *markRepository) FilterMarks(_ context.Context, filter mark.QueryFilter, ordering ...core.DBOrdering) ([]mark.Mark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	match := func(m mark.Mark) bool {
		if filter.StudentID != "" && m.StudentID != filter.StudentID {
			return false
		}
		if filter.SubjectID != "" && m.SubjectID != filter.SubjectID {
			return false
		}
		if filter.ExamType != "" && m.ExamType != filter.ExamType {
			return false
		}
		if filter.ExamYear != 0 && m.ExamYear != filter.ExamYear {
			return false
		}
		return true
	}

	marks := make([]mark.Mark, 0, len(repo.db.table))
	for _, m := range repo.query() {
		if match(m) {
			marks = append(marks, m)
		}
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].SubjectName < marks[j].SubjectName })
	return marks, nil
}

func (repo *markRepository) UpdateMark(_ context.Context, m mark.Mark) (mark.Mark, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[m.ID]; !ok {
		return mark.Mark{}, mark.ErrNotFound
	}
	repo.db.table[m.ID] = &m
	return m, nil
}
