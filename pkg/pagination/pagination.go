package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
	MinLimit     = 1
)

// Params holds validated pagination parameters
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Clamp bounds limit to [MinLimit, MaxLimit] and offset to >= 0.
// A non-positive limit falls back to DefaultLimit.
func Clamp(limit, offset int) Params {
	if limit < MinLimit {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}

// Parse extracts and validates limit/offset from query parameters
func Parse(c *gin.Context) Params {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if err != nil {
		limit = DefaultLimit
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return Clamp(limit, offset)
}
