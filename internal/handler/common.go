package handler // http handlers for the back office API

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// getUserID extracts the user_id set by the JWT middleware and
// converts it to uint64. The claim arrives as float64 when decoded
// from JSON but other widths show up in tests, so all are handled.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// Pagination bounds shared by every list endpoint.
const (
	defaultPageLimit = 50
	maxPageLimit     = 1000
)

// pageParams reads ?page and ?limit, clamping page to >= 1 and limit
// into [1, 1000]. It returns the SQL offset alongside the clamped
// values.
func pageParams(c echo.Context) (page, limit, offset int) {
	page = 1
	limit = defaultPageLimit
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		limit = v
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset = (page - 1) * limit
	return page, limit, offset
}
