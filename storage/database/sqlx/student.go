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
	"github.com/trezcool/matokeo/core/student"
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

type studentRow struct {
	ID            string      `db:"id"`
	UserID        null.String `db:"user_id"`
	Name          string      `db:"name"`
	RollNo        string      `db:"roll_no"`
	Email         string      `db:"email"`
	Program       string      `db:"program"`
	Semester      int         `db:"semester"`
	AdmissionYear int         `db:"admission_year"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func (r studentRow) toStudent() student.Student {
	return student.Student{
		ID:            r.ID,
		UserID:        r.UserID,
		Name:          r.Name,
		RollNo:        r.RollNo,
		Email:         r.Email,
		Program:       r.Program,
		Semester:      r.Semester,
		AdmissionYear: r.AdmissionYear,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to student.ErrNotFound
func (repo studentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo studentRepository) CheckRollNoUniqueness(ctx context.Context, rollNo string, excludedStudents ...student.Student) error {
	args := new(argList)
	query := `SELECT COUNT(*) FROM student WHERE roll_no = ` + args.add(rollNo)
	if len(excludedStudents) > 0 {
		ids := make([]string, 0, len(excludedStudents))
		for _, std := range excludedStudents {
			ids = append(ids, std.ID)
		}
		query += ` AND NOT (id = ANY(` + args.add(pq.Array(ids)) + `))`
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, query, args.args...); err != nil {
		return errors.Wrap(err, "checking roll number uniqueness")
	}
	if count > 0 {
		return student.ErrRollNoExists
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	std.ID = uuid.New().String()
	query := `
INSERT INTO student (id, user_id, name, roll_no, email, program, semester, admission_year, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := repo.db.ExecContext(ctx, query,
		std.ID, std.UserID, std.Name, std.RollNo, std.Email,
		std.Program, std.Semester, std.AdmissionYear, std.CreatedAt, std.UpdatedAt,
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "creating student")
	}
	return std, nil
}

func (repo studentRepository) getStudent(ctx context.Context, where string, msg string, args ...interface{}) (student.Student, error) {
	var row studentRow
	query := `SELECT * FROM student WHERE ` + where
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, msg)
	}
	return row.toStudent(), nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	return repo.getStudent(ctx, `id = $1`, "getting student by id", id)
}

func (repo studentRepository) GetStudentByRollNo(ctx context.Context, rollNo string) (student.Student, error) {
	return repo.getStudent(ctx, `roll_no = $1`, "getting student by roll number", rollNo)
}

func (repo studentRepository) GetStudentByUserID(ctx context.Context, userID string) (student.Student, error) {
	return repo.getStudent(ctx, `user_id = $1`, "getting student by user id", userID)
}

func (repo studentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter, ordering ...core.DBOrdering) ([]student.Student, error) {
	args := new(argList)
	var conds []string
	if filter.Search != "" {
		ph := args.add("%" + filter.Search + "%")
		conds = append(conds, `(name ILIKE `+ph+` OR roll_no ILIKE `+ph+`)`)
	}
	if filter.Program != "" {
		conds = append(conds, `program = `+args.add(filter.Program))
	}
	if filter.Semester != 0 {
		conds = append(conds, `semester = `+args.add(filter.Semester))
	}

	query := `SELECT * FROM student` + whereClause(conds) + orderByClause(ordering, "roll_no ASC")
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args.args...); err != nil {
		return nil, errors.Wrap(err, "filtering students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}
	return students, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	query := `
UPDATE student
SET user_id = $2, name = $3, roll_no = $4, email = $5, program = $6, semester = $7, admission_year = $8, updated_at = $9
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query,
		std.ID, std.UserID, std.Name, std.RollNo, std.Email,
		std.Program, std.Semester, std.AdmissionYear, std.UpdatedAt,
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return std, nil
}

// DeleteStudentsByID removes students; their marks and results go with them
// via ON DELETE CASCADE.
func (repo studentRepository) DeleteStudentsByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM student WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	return int(n), nil
}
