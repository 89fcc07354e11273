package echoweb

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lms-admin/core"
)

const orderingParam = "ordering"

var (
	orderingFieldRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

	errInvalidOrdering = errors.New("invalid ordering")
)

// Ordering is one sort key of a list screen; "-name" sorts by name, descending.
type Ordering struct {
	Field     string
	Ascending bool
}

func (ord Ordering) String() string {
	if ord.Ascending {
		return ord.Field
	}
	return "-" + ord.Field
}

// listQuery holds the query parameters the list screens forward to the remote API.
type listQuery struct {
	Page      int    `json:"page" validate:"omitempty,min=1"`
	Limit     int    `json:"limit" validate:"omitempty,min=1,max=100"`
	Search    string `json:"search" validate:"omitempty,max=100"`
	Orderings []Ordering
}

func (q *listQuery) Bind(ctx echo.Context) error {
	err := echo.QueryParamsBinder(ctx).
		Int("page", &q.Page).
		Int("limit", &q.Limit).
		String("search", &q.Search).
		BindError()
	if bErr, ok := err.(*echo.BindingError); ok {
		return bErr.HTTPError
	} else if err != nil {
		return err
	}
	q.Search = strings.TrimSpace(q.Search)

	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return nil
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		if !orderingFieldRe.MatchString(field) {
			return core.NewValidationError(
				errInvalidOrdering,
				core.FieldError{Field: orderingParam, Error: "unknown field '" + field + "'"},
			)
		}
		q.Orderings = append(q.Orderings, Ordering{Field: field, Ascending: !descending})
	}
	return nil
}

func (q listQuery) Values() url.Values {
	vals := url.Values{}
	if q.Page > 0 {
		vals.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		vals.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		vals.Set("search", q.Search)
	}
	if len(q.Orderings) > 0 {
		fields := make([]string, 0, len(q.Orderings))
		for _, ord := range q.Orderings {
			fields = append(fields, ord.String())
		}
		vals.Set(orderingParam, strings.Join(fields, ","))
	}
	return vals
}
