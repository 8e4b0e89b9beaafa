package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/gigmarket/pkg/common"
)

const (
	DefaultLimit  = 20
	MaxLimit      = 100
	DefaultOffset = 0
)

// Params is a parsed limit/offset pair.
type Params struct {
	Limit  int
	Offset int
}

// ParseParams reads limit and offset from the query string, capping the
// limit at MaxLimit.
func ParseParams(c *gin.Context) Params {
	return ParseParamsWithMax(c, MaxLimit)
}

// ParseParamsWithMax is ParseParams with a caller supplied cap.
func ParseParamsWithMax(c *gin.Context, maxLimit int) Params {
	limit := queryInt(c, "limit", DefaultLimit)
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := queryInt(c, "offset", DefaultOffset)
	if offset < 0 {
		offset = DefaultOffset
	}

	return Params{Limit: limit, Offset: offset}
}

// ParsePage converts ?page=N (1-based) into Params. Orders endpoints use page
// numbers rather than offsets.
func ParsePage(c *gin.Context, maxLimit int) Params {
	params := ParseParamsWithMax(c, maxLimit)
	if page := queryInt(c, "page", 0); page > 1 {
		params.Offset = (page - 1) * params.Limit
	}
	return params
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// BuildMeta builds the response meta block.
func BuildMeta(limit, offset int, total int64) *common.Meta {
	totalPages := 0
	if limit > 0 && total > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &common.Meta{
		Limit:      limit,
		Offset:     offset,
		Total:      total,
		TotalPages: totalPages,
	}
}

// HasMore reports whether rows remain after the current page.
func HasMore(offset, limit int, total int64) bool {
	return int64(offset+limit) < total
}

// GetCurrentPage returns the 1-based page for offset.
func GetCurrentPage(offset, limit int) int {
	if limit <= 0 {
		return 1
	}
	return offset/limit + 1
}
