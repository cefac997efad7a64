package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/result"
)

type resultRepository struct {
	db *resultTable
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(db *DB) result.Repository {
	return &resultRepository{db: db.result}
}

func (repo *resultRepository) query() []result.Result {
	results := make([]result.Result, 0, len(repo.db.table))
	for _, res := range repo.db.table {
		results = append(results, *res)
	}
	return results
}

func (repo *resultRepository) GetResultByID(_ context.Context, id string) (result.Result, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if res, ok := repo.db.table[id]; ok {
		return *res, nil
	}
	return result.Result{}, result.ErrNotFound
}

func (repo *resultRepository) GetResult(_ context.Context, studentID string, semester, examYear int) (result.Result, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, res := range repo.query() {
		if res.StudentID == studentID && res.Semester == semester && res.ExamYear == examYear {
			return res, nil
		}
	}
	return result.Result{}, result.ErrNotFound
}

func (repo *resultRepository) UpsertResult(_ context.Context, res result.Result) (result.Result, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.table {
		if existing.StudentID == res.StudentID && existing.Semester == res.Semester && existing.ExamYear == res.ExamYear {
			res.ID = existing.ID
			res.CreatedAt = existing.CreatedAt
			repo.db.table[res.ID] = &res
			return res, nil
		}
	}
	res.ID = uuid.New().String()
	repo.db.table[res.ID] = &res
	return res, nil
}

func matchResult(res result.Result, filter result.QueryFilter) bool {
	if filter.StudentID != "" && res.StudentID != filter.StudentID {
		return false
	}
	if filter.Semester != 0 && res.Semester != filter.Semester {
		return false
	}
	if filter.ExamYear != 0 && res.ExamYear != filter.ExamYear {
		return false
	}
	if filter.Program != "" && res.Program != filter.Program {
		return false
	}
	if filter.Status != "" && res.Status != filter.Status {
		return false
	}
	return true
}

func (repo *resultRepository) FilterResults(_ context.Context, filter result.QueryFilter, page core.Pagination, ordering ...core.DBOrdering) ([]result.Result, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	results := make([]result.Result, 0, len(repo.db.table))
	for _, res := range repo.query() {
		if matchResult(res, filter) {
			results = append(results, res)
		}
	}
	sortResults(results)

	total := len(results)
	if page.Limit > 0 {
		offset := page.Offset()
		if offset >= total {
			return []result.Result{}, total, nil
		}
		end := offset + page.Limit
		if end > total {
			end = total
		}
		results = results[offset:end]
	}
	return results, total, nil
}

func (repo *resultRepository) QueryCohort(_ context.Context, cohort result.Cohort) ([]result.Result, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	results := make([]result.Result, 0, len(repo.db.table))
	for _, res := range repo.query() {
		if res.Semester != cohort.Semester || res.ExamYear != cohort.ExamYear {
			continue
		}
		if cohort.Program != "" && res.Program != cohort.Program {
			continue
		}
		results = append(results, res)
	}
	sortResults(results)
	return results, nil
}

func (repo *resultRepository) UpdateRank(_ context.Context, id string, rank null.Int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	res, ok := repo.db.table[id]
	if !ok {
		return result.ErrNotFound
	}
	res.Rank = rank
	res.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *resultRepository) SetStatus(_ context.Context, ids []string, status result.Status, approvedBy null.String, publishedAt null.Time) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var affected int
	for _, id := range ids {
		res, ok := repo.db.table[id]
		if !ok || res.Status == status {
			continue
		}
		res.Status = status
		res.ApprovedBy = approvedBy
		res.PublishedAt = publishedAt
		res.UpdatedAt = time.Now().UTC()
		affected++
	}
	return affected, nil
}

func sortResults(results []result.Result) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.GPA != b.GPA {
			return a.GPA > b.GPA
		}
		if a.TotalMarks != b.TotalMarks {
			return a.TotalMarks > b.TotalMarks
		}
		return a.StudentID < b.StudentID
	})
}
