package middleware

// identity.go holds helpers shared by the rate limit and cache
// middleware for deriving a stable caller identity out of the request
// context.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// callerID returns a string identity for the current request: the
// user_id claim stored by JWTAuth when present, "guest" otherwise.
// The claim may arrive as a float64 (JSON number) or string depending
// on how the token was minted, so both are handled.
func callerID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("%.0f", v)
	case uint64:
		return fmt.Sprintf("%d", v)
	}
	return "guest"
}
