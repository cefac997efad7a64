package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/student"
)

type studentRepository struct {
	db      *studentTable
	marks   *markTable
	results *resultTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student, marks: db.mark, results: db.result}
}

func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		students = append(students, *s)
	}
	return students
}

func (repo *studentRepository) CheckRollNoUniqueness(_ context.Context, rollNo string, excludedStudents ...student.Student) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, std := range repo.query() {
		var excluded bool
		for _, excl := range excludedStudents {
			if std.ID == excl.ID {
				excluded = true
				break
			}
		}
		if !excluded && std.RollNo == rollNo {
			return student.ErrRollNoExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	std.ID = uuid.New().String()
	repo.db.table[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if std, ok := repo.db.table[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentByRollNo(_ context.Context, rollNo string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, std := range repo.query() {
		if std.RollNo == rollNo {
			return std, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentByUserID(_ context.Context, userID string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, std := range repo.query() {
		if std.UserID.Valid && std.UserID.String == userID {
			return std, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) FilterStudents(_ context.Context, filter student.QueryFilter, ordering ...core.DBOrdering) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	match := func(std student.Student) bool {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !(strings.Contains(strings.ToLower(std.Name), search) ||
				strings.Contains(strings.ToLower(std.RollNo), search)) {
				return false
			}
		}
		if filter.Program != "" && !strings.EqualFold(std.Program, filter.Program) {
			return false
		}
		if filter.Semester != 0 && std.Semester != filter.Semester {
			return false
		}
		return true
	}

	students := make([]student.Student, 0, len(repo.db.table))
	for _, std := range repo.query() {
		if match(std) {
			students = append(students, std)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].RollNo < students[j].RollNo })
	return students, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[std.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	repo.db.table[std.ID] = &std
	return std, nil
}

// DeleteStudentsByID cascades marks and results, mimicking the FK constraints.
func (repo *studentRepository) DeleteStudentsByID(_ context.Context, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.marks.Lock()
	defer repo.marks.Unlock()
	repo.results.Lock()
	defer repo.results.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; !ok {
			continue
		}
		delete(repo.db.table, id)
		cnt++

		for mid, m := range repo.marks.table {
			if m.StudentID == id {
				delete(repo.marks.table, mid)
			}
		}
		for rid, res := range repo.results.table {
			if res.StudentID == id {
				delete(repo.results.table, rid)
			}
		}
	}
	return cnt, nil
}
