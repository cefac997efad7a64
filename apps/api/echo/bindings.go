package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/matokeo/core"
)

var (
	orderingParam = "ordering"
	pageParam     = "page"
	limitParam    = "limit"

	defaultPageLimit = 50
	maxPageLimit     = 500
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// BindPagination reads page/limit query params, clamping limit to a sane max.
func BindPagination(ctx echo.Context) core.Pagination {
	page := core.Pagination{Page: 1, Limit: defaultPageLimit}
	if v, err := strconv.Atoi(ctx.QueryParam(pageParam)); err == nil && v > 0 {
		page.Page = v
	}
	if v, err := strconv.Atoi(ctx.QueryParam(limitParam)); err == nil && v > 0 {
		if v > maxPageLimit {
			v = maxPageLimit
		}
		page.Limit = v
	}
	return page
}
