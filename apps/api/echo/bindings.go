package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core"
)

const orderingParam = "ordering"

// bindOrdering parses `?ordering=name,-created_at` into orderings over `allowed`.
// Unknown fields are rejected; a repeated field keeps its first direction.
func bindOrdering(ctx echo.Context, allowed []string) ([]core.DBOrdering, error) {
	val := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if val == "" {
		return nil, nil
	}

	var orderings []core.DBOrdering
	seen := make(map[string]bool, len(allowed))
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if !isAllowed(field, allowed) {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: orderingParam,
				Error: "cannot order by " + field + "; use one of " + strings.Join(allowed, ", "),
			})
		}
		if seen[field] {
			continue
		}
		seen[field] = true
		orderings = append(orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings, nil
}

func isAllowed(field string, allowed []string) bool {
	for _, f := range allowed {
		if f == field {
			return true
		}
	}
	return false
}
