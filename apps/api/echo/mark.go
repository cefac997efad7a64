package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/matokeo/core/mark"
	"github.com/trezcool/matokeo/core/user"
)

type markApi struct {
	svc      *mark.Service
	userSvc  *user.Service
	validate *validator.Validate
}

func registerMarkAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *mark.Service,
	userSvc *user.Service,
	validate *validator.Validate,
) {
	api := markApi{
		svc:      svc,
		userSvc:  userSvc,
		validate: validate,
	}

	mg := g.Group("/marks", jwt, staffMiddleware())

	mg.POST("", api.create)
	mg.GET("", api.query)
	mg.PUT("/bulk", api.bulkUpdate)

	dg := mg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
}

func (api *markApi) create(ctx echo.Context) error {
	var data mark.NewMark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMark")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating mark")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *markApi) query(ctx echo.Context) error {
	filter := new(mark.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []mark.Mark{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	marks, err := api.svc.Filter(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying marks")
	}
	if marks == nil {
		marks = []mark.Mark{}
	}
	return ctx.JSON(http.StatusOK, marks)
}

func (api *markApi) retrieve(ctx echo.Context) error {
	m, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == mark.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding mark by ID")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *markApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	m, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == mark.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding mark by ID")
	}

	var data mark.UpdateMark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMark")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err = api.svc.Update(reqCtx, m, data)
	if err != nil {
		return errors.Wrap(err, "updating mark")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *markApi) bulkUpdate(ctx echo.Context) error {
	var data mark.BulkUpdateMarks
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkUpdateMarks")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	marks, err := api.svc.BulkUpdate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "bulk updating marks")
	}
	return ctx.JSON(http.StatusOK, marks)
}
