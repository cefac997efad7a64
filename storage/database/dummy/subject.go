package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/subject"
)

type subjectRepository struct {
	db *subjectTable
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *DB) subject.Repository {
	return &subjectRepository{db: db.subject}
}

func (repo *subjectRepository) query() []subject.Subject {
	subjects := make([]subject.Subject, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		subjects = append(subjects, *s)
	}
	return subjects
}

func (repo *subjectRepository) CheckCodeUniqueness(_ context.Context, code string, excludedSubjects ...subject.Subject) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sub := range repo.query() {
		var excluded bool
		for _, excl := range excludedSubjects {
			if sub.ID == excl.ID {
				excluded = true
				break
			}
		}
		if !excluded && sub.Code == code {
			return subject.ErrCodeExists
		}
	}
	return nil
}

func (repo *subjectRepository) CreateSubject(_ context.Context, sub subject.Subject) (subject.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sub.ID = uuid.New().String()
	repo.db.table[sub.ID] = &sub
	return sub, nil
}

func (repo *subjectRepository) GetSubjectByID(_ context.Context, id string) (subject.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sub, ok := repo.db.table[id]; ok {
		return *sub, nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) GetSubjectByCode(_ context.Context, code string) (subject.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sub := range repo.query() {
		if sub.Code == code {
			return sub, nil
		}
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) FilterSubjects(_ context.Context, filter subject.QueryFilter, ordering ...core.DBOrdering) ([]subject.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	match := func(sub subject.Subject) bool {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !(strings.Contains(strings.ToLower(sub.Code), search) ||
				strings.Contains(strings.ToLower(sub.Name), search)) {
				return false
			}
		}
		if filter.Program != "" && !strings.EqualFold(sub.Program, filter.Program) {
			return false
		}
		if filter.Semester != 0 && sub.Semester != filter.Semester {
			return false
		}
		return true
	}

	subjects := make([]subject.Subject, 0, len(repo.db.table))
	for _, sub := range repo.query() {
		if match(sub) {
			subjects = append(subjects, sub)
		}
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Code < subjects[j].Code })
	return subjects, nil
}

func (repo *subjectRepository) UpdateSubject(_ context.Context, sub subject.Subject) (subject.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[sub.ID]; !ok {
		return subject.Subject{}, subject.ErrNotFound
	}
	repo.db.table[sub.ID] = &sub
	return sub, nil
}

func (repo *subjectRepository) DeleteSubjectsByID(_ context.Context, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}
