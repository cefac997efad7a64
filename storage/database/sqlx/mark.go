package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/mark"
)

type markRepository struct {
	db *sqlx.DB
}

var _ mark.Repository = (*markRepository)(nil) // interface compliance check

func NewMarkRepository(db *sqlx.DB) *markRepository {
	return &markRepository{db: db}
}

type markRow struct {
	ID            string    `db:"id"`
	StudentID     string    `db:"student_id"`
	SubjectID     string    `db:"subject_id"`
	SubjectName   string    `db:"subject_name"`
	MarksObtained float64   `db:"marks_obtained"`
	FullMarks     float64   `db:"full_marks"`
	Credit        float64   `db:"credit"`
	ExamType      string    `db:"exam_type"`
	ExamYear      int       `db:"exam_year"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r markRow) toMark() mark.Mark {
	return mark.Mark{
		ID:            r.ID,
		StudentID:     r.StudentID,
		SubjectID:     r.SubjectID,
		SubjectName:   r.SubjectName,
		MarksObtained: r.MarksObtained,
		FullMarks:     r.FullMarks,
		Credit:        r.Credit,
		ExamType:      mark.ExamType(r.ExamType),
		ExamYear:      r.ExamYear,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to mark.ErrNotFound
func (repo markRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return mark.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo markRepository) CreateMark(ctx context.Context, m mark.Mark) (mark.Mark, error) {
	m.ID = uuid.New().String()
	query := `
INSERT INTO mark (id, student_id, subject_id, subject_name, marks_obtained, full_marks, credit, exam_type, exam_year, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := repo.db.ExecContext(ctx, query,
		m.ID, m.StudentID, m.SubjectID, m.SubjectName, m.MarksObtained,
		m.FullMarks, m.Credit, string(m.ExamType), m.ExamYear, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return mark.Mark{}, errors.Wrap(err, "creating mark")
	}
	return m, nil
}

func (repo markRepository) GetMarkByID(ctx context.Context, id string) (mark.Mark, error) {
	var row markRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM mark WHERE id = $1`, id); err != nil {
		return mark.Mark{}, repo.trapNoRowsErr(err, "getting mark by id")
	}
	return row.toMark(), nil
}

func (repo markRepository) MarkExists(ctx context.Context, studentID, subjectID string, examType mark.ExamType, examYear int) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM mark WHERE student_id = $1 AND subject_id = $2 AND exam_type = $3 AND exam_year = $4`
	if err := repo.db.GetContext(ctx, &count, query, studentID, subjectID, string(examType), examYear); err != nil {
		return false, errors.Wrap(err, "checking mark existence")
	}
	return count > 0, nil
}

func (repo markRepository) FilterMarks(ctx context.Context, filter mark.QueryFilter, ordering ...core.DBOrdering) ([]mark.Mark, error) {
	args := new(argList)
	var conds []string
	if filter.StudentID != "" {
		conds = append(conds, `student_id = `+args.add(filter.StudentID))
	}
	if filter.SubjectID != "" {
		conds = append(conds, `subject_id = `+args.add(filter.SubjectID))
	}
	if filter.ExamType != "" {
		conds = append(conds, `exam_type = `+args.add(string(filter.ExamType)))
	}
	if filter.ExamYear != 0 {
		conds = append(conds, `exam_year = `+args.add(filter.ExamYear))
	}

	query := `SELECT * FROM mark` + whereClause(conds) + orderByClause(ordering, "subject_name ASC")
	var rows []markRow
	if err := repo.db.SelectContext(ctx, &rows, query, args.args...); err != nil {
		return nil, errors.Wrap(err, "filtering marks")
	}
	marks := make([]mark.Mark, 0, len(rows))
	for _, row := range rows {
		marks = append(marks, row.toMark())
	}
	return marks, nil
}

func (repo markRepository) UpdateMark(ctx context.Context, m mark.Mark) (mark.Mark, error) {
	query := `UPDATE mark SET marks_obtained = $2, updated_at = $3 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, m.ID, m.MarksObtained, m.UpdatedAt)
	if err != nil {
		return mark.Mark{}, errors.Wrap(err, "updating mark")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return mark.Mark{}, mark.ErrNotFound
	}
	return m, nil
}
