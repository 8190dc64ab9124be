package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/violation"
)

var errInvalidDegree = errors.New("degree must be between 1 and 4")

// bindDegrees parses the comma separated "degree" query param.
func bindDegrees(ctx echo.Context) ([]violation.Degree, error) {
	raw := ctx.QueryParam("degree")
	if raw == "" {
		return nil, nil
	}
	var degrees []violation.Degree
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || !violation.Degree(n).Valid() {
			return nil, errInvalidDegreeField()
		}
		degrees = append(degrees, violation.Degree(n))
	}
	return degrees, nil
}

func errInvalidDegreeField() error {
	return core.NewValidationError(errInvalidDegree, core.FieldError{Field: "degree", Error: errInvalidDegree.Error()})
}

// bindIntParam parses an integer path or query param.
func bindIntParam(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		msg := name + " must be a number"
		return 0, core.NewValidationError(errors.New(msg), core.FieldError{Field: name, Error: msg})
	}
	return n, nil
}

// stepParams returns the violation ID & step of a procedure route.
func stepParams(ctx echo.Context) (string, int, error) {
	step, err := bindIntParam(ctx.Param("step"), "step")
	return ctx.Param("id"), step, err
}
