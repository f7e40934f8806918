// Package pagination normalizes the page and limit query parameters shared
// by every list endpoint.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Limits are clamped so one request cannot page through an entire tenant's
// history in a single call.
const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// Params is the normalized window requested by a list call.
type Params struct {
	Page  int
	Limit int
}

// Offset converts the window into a row offset.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Parse reads page and limit from the request query, falling back to the
// defaults on absent or malformed values.
func Parse(c *gin.Context) Params {
	return Params{
		Page:  clampedAtoi(c.Query("page"), defaultPage, 0),
		Limit: clampedAtoi(c.Query("limit"), defaultLimit, maxLimit),
	}
}

func clampedAtoi(raw string, fallback, max int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
