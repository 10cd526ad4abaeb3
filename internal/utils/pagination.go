package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wemake-app/wemake-api/internal/constants"
)

// PaginationParams is a page/limit pair from the query string with its row offset
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// PaginationResponse is the pagination block of list responses
type PaginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// GetPaginationParams reads ?page and ?limit. A missing or invalid page is 1;
// a limit outside [MinPageSize, MaxPageSize] falls back to DefaultPageSize.
func GetPaginationParams(c *gin.Context) PaginationParams {
	page := queryInt(c, "page", constants.MinPageSize)
	if page < constants.MinPageSize {
		page = constants.MinPageSize
	}

	limit := queryInt(c, "limit", constants.DefaultPageSize)
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// PageBounds clamps the params window to a slice of length n, for lists
// that are filtered in memory before paging.
func PageBounds(params PaginationParams, n int) (start, end int) {
	start = min(params.Offset, n)
	end = min(start+params.Limit, n)
	return start, end
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw, ok := c.GetQuery(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
