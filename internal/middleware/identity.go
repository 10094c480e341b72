package middleware

import (
	"encoding/json"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// claimUserID reads the operator id from the "sub" claim, falling back to
// "user_id".  Numeric claims decode as float64; string claims must parse
// as an unsigned integer.
func claimUserID(claims jwt.MapClaims) (uint64, bool) {
	for _, key := range []string{"sub", "user_id"} {
		switch v := claims[key].(type) {
		case float64:
			if v > 0 {
				return uint64(v), true
			}
		case json.Number:
			if n, err := strconv.ParseUint(v.String(), 10, 64); err == nil && n > 0 {
				return n, true
			}
		case string:
			if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
				return n, true
			}
		}
	}
	return 0, false
}

// userID returns the authenticated operator id as a string for use in
// cache and rate-limit keys, or "anon" before JWTAuth has run.
func userID(c echo.Context) string {
	if v, ok := c.Get("user_id").(uint64); ok && v > 0 {
		return strconv.FormatUint(v, 10)
	}
	return "anon"
}
