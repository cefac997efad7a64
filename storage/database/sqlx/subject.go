package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/subject"
)

type subjectRepository struct {
	db *sqlx.DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *sqlx.DB) *subjectRepository {
	return &subjectRepository{db: db}
}

type subjectRow struct {
	ID        string    `db:"id"`
	Code      string    `db:"code"`
	Name      string    `db:"name"`
	Program   string    `db:"program"`
	Semester  int       `db:"semester"`
	FullMarks float64   `db:"full_marks"`
	Credit    float64   `db:"credit"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r subjectRow) toSubject() subject.Subject {
	return subject.Subject{
		ID:        r.ID,
		Code:      r.Code,
		Name:      r.Name,
		Program:   r.Program,
		Semester:  r.Semester,
		FullMarks: r.FullMarks,
		Credit:    r.Credit,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to subject.ErrNotFound
func (repo subjectRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return subject.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo subjectRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedSubjects ...subject.Subject) error {
	args := new(argList)
	query := `SELECT COUNT(*) FROM subject WHERE code = ` + args.add(code)
	if len(excludedSubjects) > 0 {
		ids := make([]string, 0, len(excludedSubjects))
		for _, sub := range excludedSubjects {
			ids = append(ids, sub.ID)
		}
		query += ` AND NOT (id = ANY(` + args.add(pq.Array(ids)) + `))`
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, query, args.args...); err != nil {
		return errors.Wrap(err, "checking subject code uniqueness")
	}
	if count > 0 {
		return subject.ErrCodeExists
	}
	return nil
}

func (repo subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	sub.ID = uuid.New().String()
	query := `
INSERT INTO subject (id, code, name, program, semester, full_marks, credit, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.db.ExecContext(ctx, query,
		sub.ID, sub.Code, sub.Name, sub.Program, sub.Semester,
		sub.FullMarks, sub.Credit, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "creating subject")
	}
	return sub, nil
}

func (repo subjectRepository) getSubject(ctx context.Context, where string, msg string, args ...interface{}) (subject.Subject, error) {
	var row subjectRow
	query := `SELECT * FROM subject WHERE ` + where
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return subject.Subject{}, repo.trapNoRowsErr(err, msg)
	}
	return row.toSubject(), nil
}

func (repo subjectRepository) GetSubjectByID(ctx context.Context, id string) (subject.Subject, error) {
	return repo.getSubject(ctx, `id = $1`, "getting subject by id", id)
}

func (repo subjectRepository) GetSubjectByCode(ctx context.Context, code string) (subject.Subject, error) {
	return repo.getSubject(ctx, `code = $1`, "getting subject by code", code)
}

func (repo subjectRepository) FilterSubjects(ctx context.Context, filter subject.QueryFilter, ordering ...core.DBOrdering) ([]subject.Subject, error) {
	args := new(argList)
	var conds []string
	if filter.Search != "" {
		ph := args.add("%" + filter.Search + "%")
		conds = append(conds, `(code ILIKE `+ph+` OR name ILIKE `+ph+`)`)
	}
	if filter.Program != "" {
		conds = append(conds, `program = `+args.add(filter.Program))
	}
	if filter.Semester != 0 {
		conds = append(conds, `semester = `+args.add(filter.Semester))
	}

	query := `SELECT * FROM subject` + whereClause(conds) + orderByClause(ordering, "code ASC")
	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, query, args.args...); err != nil {
		return nil, errors.Wrap(err, "filtering subjects")
	}
	subjects := make([]subject.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, row.toSubject())
	}
	return subjects, nil
}

func (repo subjectRepository) UpdateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	query := `
UPDATE subject
SET code = $2, name = $3, program = $4, semester = $5, full_marks = $6, credit = $7, updated_at = $8
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		sub.ID, sub.Code, sub.Name, sub.Program, sub.Semester,
		sub.FullMarks, sub.Credit, sub.UpdatedAt,
	)
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "updating subject")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return subject.Subject{}, subject.ErrNotFound
	}
	return sub, nil
}

func (repo subjectRepository) DeleteSubjectsByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM subject WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting subjects")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting subjects")
	}
	return int(n), nil
}
