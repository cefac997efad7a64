package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/result"
)

type resultRepository struct {
	db *sqlx.DB
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(db *sqlx.DB) *resultRepository {
	return &resultRepository{db: db}
}

type resultRow struct {
	ID           string      `db:"id"`
	StudentID    string      `db:"student_id"`
	StudentName  string      `db:"student_name"`
	RollNo       string      `db:"roll_no"`
	Program      string      `db:"program"`
	Semester     int         `db:"semester"`
	ExamYear     int         `db:"exam_year"`
	TotalMarks   float64     `db:"total_marks"`
	TotalCredits float64     `db:"total_credits"`
	GPA          float64     `db:"gpa"`
	Grade        string      `db:"grade"`
	Rank         null.Int    `db:"rank"`
	Status       string      `db:"status"`
	PublishedAt  null.Time   `db:"published_at"`
	ApprovedBy   null.String `db:"approved_by"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (r resultRow) toResult() result.Result {
	return result.Result{
		ID:           r.ID,
		StudentID:    r.StudentID,
		StudentName:  r.StudentName,
		RollNo:       r.RollNo,
		Program:      r.Program,
		Semester:     r.Semester,
		ExamYear:     r.ExamYear,
		TotalMarks:   r.TotalMarks,
		TotalCredits: r.TotalCredits,
		GPA:          r.GPA,
		Grade:        r.Grade,
		Rank:         r.Rank,
		Status:       result.Status(r.Status),
		PublishedAt:  r.PublishedAt,
		ApprovedBy:   r.ApprovedBy,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toResults(rows []resultRow) []result.Result {
	results := make([]result.Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.toResult())
	}
	return results
}

// trapNoRowsErr maps psql "no rows" err to result.ErrNotFound
func (repo resultRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return result.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const resultOrdering = `gpa DESC, total_marks DESC, student_id ASC`

func (repo resultRepository) GetResultByID(ctx context.Context, id string) (result.Result, error) {
	var row resultRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM result WHERE id = $1`, id); err != nil {
		return result.Result{}, repo.trapNoRowsErr(err, "getting result by id")
	}
	return row.toResult(), nil
}

func (repo resultRepository) GetResult(ctx context.Context, studentID string, semester, examYear int) (result.Result, error) {
	var row resultRow
	query := `SELECT * FROM result WHERE student_id = $1 AND semester = $2 AND exam_year = $3`
	if err := repo.db.GetContext(ctx, &row, query, studentID, semester, examYear); err != nil {
		return result.Result{}, repo.trapNoRowsErr(err, "getting result")
	}
	return row.toResult(), nil
}

func (repo resultRepository) UpsertResult(ctx context.Context, res result.Result) (result.Result, error) {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	query := `
INSERT INTO result (id, student_id, student_name, roll_no, program, semester, exam_year,
                    total_marks, total_credits, gpa, grade, rank, status, published_at, approved_by,
                    created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (student_id, semester, exam_year) DO UPDATE
SET student_name = EXCLUDED.student_name,
    roll_no = EXCLUDED.roll_no,
    program = EXCLUDED.program,
    total_marks = EXCLUDED.total_marks,
    total_credits = EXCLUDED.total_credits,
    gpa = EXCLUDED.gpa,
    grade = EXCLUDED.grade,
    rank = EXCLUDED.rank,
    status = EXCLUDED.status,
    published_at = EXCLUDED.published_at,
    approved_by = EXCLUDED.approved_by,
    updated_at = EXCLUDED.updated_at
RETURNING *`
	var row resultRow
	err := repo.db.GetContext(ctx, &row, query,
		res.ID, res.StudentID, res.StudentName, res.RollNo, res.Program, res.Semester, res.ExamYear,
		res.TotalMarks, res.TotalCredits, res.GPA, res.Grade, res.Rank, string(res.Status),
		res.PublishedAt, res.ApprovedBy, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return result.Result{}, errors.Wrap(err, "upserting result")
	}
	return row.toResult(), nil
}

func resultConds(args *argList, filter result.QueryFilter) []string {
	var conds []string
	if filter.StudentID != "" {
		conds = append(conds, `student_id = `+args.add(filter.StudentID))
	}
	if filter.Semester != 0 {
		conds = append(conds, `semester = `+args.add(filter.Semester))
	}
	if filter.ExamYear != 0 {
		conds = append(conds, `exam_year = `+args.add(filter.ExamYear))
	}
	if filter.Program != "" {
		conds = append(conds, `program = `+args.add(filter.Program))
	}
	if filter.Status != "" {
		conds = append(conds, `status = `+args.add(string(filter.Status)))
	}
	return conds
}

func (repo resultRepository) FilterResults(ctx context.Context, filter result.QueryFilter, page core.Pagination, ordering ...core.DBOrdering) ([]result.Result, int, error) {
	args := new(argList)
	conds := resultConds(args, filter)
	where := whereClause(conds)

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM result`+where, args.args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting results")
	}

	query := `SELECT * FROM result` + where + orderByClause(ordering, resultOrdering)
	if page.Limit > 0 {
		query += ` LIMIT ` + args.add(page.Limit) + ` OFFSET ` + args.add(page.Offset())
	}
	var rows []resultRow
	if err := repo.db.SelectContext(ctx, &rows, query, args.args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering results")
	}
	return toResults(rows), total, nil
}

func (repo resultRepository) QueryCohort(ctx context.Context, cohort result.Cohort) ([]result.Result, error) {
	args := new(argList)
	conds := []string{
		`semester = ` + args.add(cohort.Semester),
		`exam_year = ` + args.add(cohort.ExamYear),
	}
	if cohort.Program != "" {
		conds = append(conds, `program = `+args.add(cohort.Program))
	}

	query := `SELECT * FROM result` + whereClause(conds) + ` ORDER BY ` + resultOrdering
	var rows []resultRow
	if err := repo.db.SelectContext(ctx, &rows, query, args.args...); err != nil {
		return nil, errors.Wrap(err, "querying cohort")
	}
	return toResults(rows), nil
}

func (repo resultRepository) UpdateRank(ctx context.Context, id string, rank null.Int) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE result SET rank = $2, updated_at = $3 WHERE id = $1`, id, rank, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "updating rank")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return result.ErrNotFound
	}
	return nil
}

func (repo resultRepository) SetStatus(ctx context.Context, ids []string, status result.Status, approvedBy null.String, publishedAt null.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `
UPDATE result
SET status = $2, approved_by = $3, published_at = $4, updated_at = $5
WHERE id = ANY($1) AND status <> $2`
	res, err := repo.db.ExecContext(ctx, query, pq.Array(ids), string(status), approvedBy, publishedAt, time.Now().UTC())
	if err != nil {
		return 0, errors.Wrap(err, "setting result status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "setting result status")
	}
	return int(n), nil
}
