package result

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/mark"
	"github.com/trezcool/matokeo/core/student"
)

var (
	// errors
	ErrNotFound = errors.New("result not found")
)

type (
	Repository interface {
		GetResultByID(ctx context.Context, id string) (Result, error)
		GetResult(ctx context.Context, studentID string, semester, examYear int) (Result, error)
		// UpsertResult inserts or updates keyed by (student, semester, exam year).
		UpsertResult(ctx context.Context, res Result) (Result, error)
		// FilterResults applies AND operation on available QueryFilter fields and
		// returns the page of rows plus the exact total count of the filtered set.
		FilterResults(ctx context.Context, filter QueryFilter, page core.Pagination, ordering ...core.DBOrdering) ([]Result, int, error)
		QueryCohort(ctx context.Context, cohort Cohort) ([]Result, error)
		UpdateRank(ctx context.Context, id string, rank null.Int) error
		SetStatus(ctx context.Context, ids []string, status Status, approvedBy null.String, publishedAt null.Time) (int, error)
	}

	// SubjectAverage is the mean final score recorded for one subject.
	SubjectAverage struct {
		SubjectName string  `json:"subject_name"`
		AvgMarks    float64 `json:"avg_marks"`
		AvgPercent  float64 `json:"avg_percent"`
		Count       int     `json:"count"`
	}

	Service struct {
		repo        Repository
		markRepo    mark.Repository
		studentRepo student.Repository
		mailSvc     core.EmailService
		conf        *core.Config
		policy      RankingPolicy

		// cohortLocks serializes aggregate+re-rank per cohort; distinct
		// cohorts proceed in parallel. The steps are separate storage calls,
		// so a failure between upsert and re-rank leaves fresh totals with
		// stale ranks until the next recompute.
		cohortLocks *core.KeyedMutex
	}
)

var _ mark.Aggregator = (*Service)(nil) // interface compliance check

func NewService(
	repo Repository,
	markRepo mark.Repository,
	studentRepo student.Repository,
	mailSvc core.EmailService,
	conf *core.Config,
	policy RankingPolicy,
) *Service {
	return &Service{
		repo:        repo,
		markRepo:    markRepo,
		studentRepo: studentRepo,
		mailSvc:     mailSvc,
		conf:        conf,
		policy:      policy,
		cohortLocks: core.NewKeyedMutex(),
	}
}

// Aggregate recomputes a student's result for an exam year from their stored
// final marks, then re-ranks the affected cohort. A student with no final
// marks for the year is a no-op: no result row is created and any existing
// one is left untouched. Any previously published result is reset to pending
// and loses its rank until republished.
func (svc *Service) Aggregate(ctx context.Context, studentID string, examYear int) error {
	std, err := svc.studentRepo.GetStudentByID(ctx, studentID)
	if err != nil {
		return errors.Wrap(err, "finding student")
	}

	marks, err := svc.markRepo.FilterMarks(ctx, mark.QueryFilter{
		StudentID: studentID,
		ExamType:  mark.ExamFinal,
		ExamYear:  examYear,
	})
	if err != nil {
		return errors.Wrap(err, "fetching final marks")
	}
	if len(marks) == 0 {
		return nil // nothing to aggregate
	}

	items := make([]GradeItem, 0, len(marks))
	for _, m := range marks {
		items = append(items, GradeItem{
			SubjectName:   m.SubjectName,
			MarksObtained: m.MarksObtained,
			FullMarks:     m.FullMarks,
			Credit:        m.Credit,
		})
	}
	summary, err := ComputeGPA(items)
	if err != nil {
		return err
	}
	tier, err := GradeFor(summary.AvgPercent)
	if err != nil {
		return err
	}

	cohort := Cohort{Semester: std.Semester, ExamYear: examYear}
	svc.cohortLocks.Lock(cohort.Key())
	defer svc.cohortLocks.Unlock(cohort.Key())

	now := time.Now().UTC()
	res := Result{
		StudentID:    std.ID,
		StudentName:  std.Name,
		RollNo:       std.RollNo,
		Program:      std.Program,
		Semester:     std.Semester,
		ExamYear:     examYear,
		TotalMarks:   summary.TotalMarks,
		TotalCredits: summary.TotalCredits,
		GPA:          summary.GPA,
		Grade:        tier.Label,
		Status:       StatusPending,
		UpdatedAt:    now,
	}

	existing, err := svc.repo.GetResult(ctx, std.ID, std.Semester, examYear)
	switch errors.Cause(err) {
	case nil:
		res.ID = existing.ID
		res.CreatedAt = existing.CreatedAt
	case ErrNotFound:
		res.CreatedAt = now
	default:
		return errors.Wrap(err, "finding existing result")
	}

	if _, err = svc.repo.UpsertResult(ctx, res); err != nil {
		return errors.Wrap(err, "upserting result")
	}
	return svc.rerank(ctx, cohort)
}

// Rerank recomputes ranks for a whole cohort under the cohort lock.
func (svc *Service) Rerank(ctx context.Context, cohort Cohort) error {
	svc.cohortLocks.Lock(cohort.Key())
	defer svc.cohortLocks.Unlock(cohort.Key())
	return svc.rerank(ctx, cohort)
}

// rerank assigns ranks to every non-pending result in the cohort and clears
// the rank of pending ones. Caller must hold the cohort lock. Idempotent:
// an unchanged cohort yields identical ranks and no writes.
func (svc *Service) rerank(ctx context.Context, cohort Cohort) error {
	rows, err := svc.repo.QueryCohort(ctx, cohort)
	if err != nil {
		return errors.Wrap(err, "querying cohort")
	}
	if len(rows) == 0 {
		return nil
	}

	eligible := make([]Result, 0, len(rows))
	for _, res := range rows {
		if res.Status != StatusPending {
			eligible = append(eligible, res)
		} else if res.Rank.Valid {
			if err = svc.repo.UpdateRank(ctx, res.ID, null.Int{}); err != nil {
				return errors.Wrap(err, "clearing rank")
			}
		}
	}

	prevRanks := make(map[string]null.Int, len(eligible))
	for _, res := range eligible {
		prevRanks[res.ID] = res.Rank
	}

	for _, res := range AssignRanks(eligible, svc.policy) {
		if prev := prevRanks[res.ID]; prev.Valid && prev.Int == res.Rank.Int {
			continue
		}
		if err = svc.repo.UpdateRank(ctx, res.ID, res.Rank); err != nil {
			return errors.Wrap(err, "updating rank")
		}
	}
	return nil
}

// Publish flips every pending result matching the filter to published,
// stamps the approver and publication time, re-ranks the touched cohorts and
// notifies the affected students by email. Publishing nothing is not an
// error; already-published rows are excluded from the affected count.
func (svc *Service) Publish(ctx context.Context, filter PublishFilter, approverID string) (int, error) {
	pending, _, err := svc.repo.FilterResults(ctx, QueryFilter{
		Semester: filter.Semester,
		ExamYear: filter.ExamYear,
		Program:  filter.Program,
		Status:   StatusPending,
	}, core.Pagination{})
	if err != nil {
		return 0, errors.Wrap(err, "querying pending results")
	}
	if len(pending) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(pending))
	for _, res := range pending {
		ids = append(ids, res.ID)
	}

	now := time.Now().UTC()
	affected, err := svc.repo.SetStatus(ctx, ids, StatusPublished, null.StringFrom(approverID), null.TimeFrom(now))
	if err != nil {
		return 0, errors.Wrap(err, "publishing results")
	}

	cohorts := make(map[Cohort]bool, 1)
	for _, res := range pending {
		cohorts[Cohort{Semester: res.Semester, ExamYear: res.ExamYear}] = true
	}
	for cohort := range cohorts {
		if err = svc.Rerank(ctx, cohort); err != nil {
			return affected, err
		}
	}

	svc.notifyPublished(ctx, pending)
	return affected, nil
}

// notifyPublished emails each affected student with an email on file.
// Failures to resolve a student only skip that notification.
func (svc *Service) notifyPublished(ctx context.Context, published []Result) {
	msgs := make([]*core.EmailMessage, 0, len(published))
	for _, res := range published {
		std, err := svc.studentRepo.GetStudentByID(ctx, res.StudentID)
		if err != nil || std.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: std.Name, Address: std.Email}},
			Subject:      fmt.Sprintf("Results published - Semester %d, %d", res.Semester, res.ExamYear),
			TemplateName: "results-published",
			TemplateData: struct {
				Name     string
				Semester int
				ExamYear int
				GPA      float64
				Grade    string
			}{std.Name, res.Semester, res.ExamYear, res.GPA, res.Grade},
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func (svc *Service) GetByID(ctx context.Context, id string) (Result, error) {
	return svc.repo.GetResultByID(ctx, id)
}

func (svc *Service) GetForStudent(ctx context.Context, studentID string, semester, examYear int) (Result, error) {
	return svc.repo.GetResult(ctx, studentID, semester, examYear)
}

// Filter returns a page of results plus the exact total count of the
// filtered set.
func (svc *Service) Filter(ctx context.Context, filter QueryFilter, page core.Pagination, ordering ...core.DBOrdering) ([]Result, int, error) {
	filter.Clean()
	return svc.repo.FilterResults(ctx, filter, page, ordering...)
}

// GradeDistribution counts a cohort's results per grade label.
func (svc *Service) GradeDistribution(ctx context.Context, cohort Cohort) (map[string]int, error) {
	rows, err := svc.repo.QueryCohort(ctx, cohort)
	if err != nil {
		return nil, errors.Wrap(err, "querying cohort")
	}
	dist := make(map[string]int, len(GradeTable))
	for _, res := range rows {
		dist[res.Grade]++
	}
	return dist, nil
}

// TopByGPA returns the cohort's top n results ordered like the ranking engine.
func (svc *Service) TopByGPA(ctx context.Context, cohort Cohort, n int) ([]Result, error) {
	rows, err := svc.repo.QueryCohort(ctx, cohort)
	if err != nil {
		return nil, errors.Wrap(err, "querying cohort")
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].GPA != rows[j].GPA {
			return rows[i].GPA > rows[j].GPA
		}
		if rows[i].TotalMarks != rows[j].TotalMarks {
			return rows[i].TotalMarks > rows[j].TotalMarks
		}
		return rows[i].StudentID < rows[j].StudentID
	})
	if n > 0 && n < len(rows) {
		rows = rows[:n]
	}
	return rows, nil
}

// SubjectAverages computes the mean final score per subject for an exam year.
func (svc *Service) SubjectAverages(ctx context.Context, examYear int) ([]SubjectAverage, error) {
	marks, err := svc.markRepo.FilterMarks(ctx, mark.QueryFilter{
		ExamType: mark.ExamFinal,
		ExamYear: examYear,
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetching final marks")
	}

	type acc struct {
		marks float64
		pct   float64
		count int
	}
	accs := make(map[string]*acc)
	for _, m := range marks {
		a, ok := accs[m.SubjectName]
		if !ok {
			a = new(acc)
			accs[m.SubjectName] = a
		}
		a.marks += m.MarksObtained
		a.pct += m.MarksObtained / m.FullMarks * 100
		a.count++
	}

	avgs := make([]SubjectAverage, 0, len(accs))
	for name, a := range accs {
		avgs = append(avgs, SubjectAverage{
			SubjectName: name,
			AvgMarks:    core.Round2(a.marks / float64(a.count)),
			AvgPercent:  core.Round2(a.pct / float64(a.count)),
			Count:       a.count,
		})
	}
	sort.Slice(avgs, func(i, j int) bool { return avgs[i].SubjectName < avgs[j].SubjectName })
	return avgs, nil
}
