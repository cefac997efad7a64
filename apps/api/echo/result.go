package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/result"
	"github.com/trezcool/matokeo/core/student"
	"github.com/trezcool/matokeo/core/user"
)

type resultApi struct {
	svc        *result.Service
	studentSvc *student.Service
	userSvc    *user.Service
	validate   *validator.Validate
}

func registerResultAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *result.Service,
	studentSvc *student.Service,
	userSvc *user.Service,
	validate *validator.Validate,
) {
	api := resultApi{
		svc:        svc,
		studentSvc: studentSvc,
		userSvc:    userSvc,
		validate:   validate,
	}

	rg := g.Group("/results", jwt)

	rg.GET("", api.query)
	rg.POST("/publish", api.publish, adminMiddleware())
	rg.POST("/rerank", api.rerank, staffMiddleware())

	stats := rg.Group("/stats", staffMiddleware())
	stats.GET("/grades", api.gradeDistribution)
	stats.GET("/top", api.topByGPA)
	stats.GET("/subjects", api.subjectAverages)

	rg.GET("/:id", api.retrieve)
}

// contextStudent resolves the student record behind a non-staff account.
func (api *resultApi) contextStudent(ctx echo.Context) (student.Student, error) {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "getting context user")
	}
	std, err := api.studentSvc.GetByUserID(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return student.Student{}, errHttpForbidden
		}
		return student.Student{}, errors.Wrap(err, "finding student by user ID")
	}
	return std, nil
}

// query lists results. Students only ever see their own published results;
// staff see everything.
func (api *resultApi) query(ctx echo.Context) error {
	filter := new(result.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, PaginatedResults{Results: []result.Result{}})
	}
	filter.Clean()

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !(claims.IsAdmin || claims.IsTeacher) {
		std, err := api.contextStudent(ctx)
		if err != nil {
			return err
		}
		filter.StudentID = std.ID
		filter.Status = result.StatusPublished
	}

	page := BindPagination(ctx)
	ordering := new(Ordering)
	ordering.Bind(ctx)

	results, total, err := api.svc.Filter(ctx.Request().Context(), *filter, page, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	if results == nil {
		results = []result.Result{}
	}
	return ctx.JSON(http.StatusOK, PaginatedResults{
		Results: results,
		Total:   total,
		Page:    page.Page,
		Limit:   page.Limit,
	})
}

func (api *resultApi) retrieve(ctx echo.Context) error {
	res, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == result.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding result by ID")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !(claims.IsAdmin || claims.IsTeacher) {
		std, err := api.contextStudent(ctx)
		if err != nil {
			return err
		}
		// pending results are not visible to students
		if res.StudentID != std.ID || res.Status != result.StatusPublished {
			return errHttpNotFound
		}
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *resultApi) publish(ctx echo.Context) error {
	var data result.PublishFilter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PublishFilter")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	count, err := api.svc.Publish(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "publishing results")
	}
	return ctx.JSON(http.StatusOK, PublishResponse{Published: count})
}

func (api *resultApi) rerank(ctx echo.Context) error {
	cohort, err := bindCohort(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.Rerank(ctx.Request().Context(), cohort); err != nil {
		return errors.Wrap(err, "re-ranking cohort")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *resultApi) gradeDistribution(ctx echo.Context) error {
	cohort, err := bindCohort(ctx)
	if err != nil {
		return err
	}

	dist, err := api.svc.GradeDistribution(ctx.Request().Context(), cohort)
	if err != nil {
		return errors.Wrap(err, "computing grade distribution")
	}
	return ctx.JSON(http.StatusOK, dist)
}

func (api *resultApi) topByGPA(ctx echo.Context) error {
	cohort, err := bindCohort(ctx)
	if err != nil {
		return err
	}
	n, _ := strconv.Atoi(ctx.QueryParam("n"))
	if n <= 0 {
		n = 10
	}

	top, err := api.svc.TopByGPA(ctx.Request().Context(), cohort, n)
	if err != nil {
		return errors.Wrap(err, "computing top results")
	}
	if top == nil {
		top = []result.Result{}
	}
	return ctx.JSON(http.StatusOK, top)
}

func (api *resultApi) subjectAverages(ctx echo.Context) error {
	examYear, err := strconv.Atoi(ctx.QueryParam("exam_year"))
	if err != nil || examYear <= 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "exam_year", Error: "a valid exam year is required"})
	}

	avgs, err := api.svc.SubjectAverages(ctx.Request().Context(), examYear)
	if err != nil {
		return errors.Wrap(err, "computing subject averages")
	}
	if avgs == nil {
		avgs = []result.SubjectAverage{}
	}
	return ctx.JSON(http.StatusOK, avgs)
}

func bindCohort(ctx echo.Context) (result.Cohort, error) {
	semester, err := strconv.Atoi(ctx.QueryParam("semester"))
	if err != nil || semester <= 0 {
		return result.Cohort{}, core.NewValidationError(nil, core.FieldError{Field: "semester", Error: "a valid semester is required"})
	}
	examYear, err := strconv.Atoi(ctx.QueryParam("exam_year"))
	if err != nil || examYear <= 0 {
		return result.Cohort{}, core.NewValidationError(nil, core.FieldError{Field: "exam_year", Error: "a valid exam year is required"})
	}
	return result.Cohort{
		Semester: semester,
		ExamYear: examYear,
		Program:  core.CleanString(ctx.QueryParam("program")),
	}, nil
}

type (
	PaginatedResults struct {
		Results []result.Result `json:"results"`
		Total   int             `json:"total"`
		Page    int             `json:"page"`
		Limit   int             `json:"limit"`
	}

	PublishResponse struct {
		Published int `json:"published"`
	}
)
