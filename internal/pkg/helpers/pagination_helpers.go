package helpers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/coursehub/internal/app/models/dto"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultPage     = 1 // pages are 1-based
)

// PageRequest is a clamped, 1-based page position.
type PageRequest struct {
	Page     int
	PageSize int
}

// NewPageRequest clamps page to >= 1 and size to [1, maxSize], substituting
// defaultSize when size is missing or non-positive.
func NewPageRequest(page, size, defaultSize, maxSize int) PageRequest {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if maxSize < defaultSize {
		maxSize = defaultSize
	}
	if page < 1 {
		page = DefaultPage
	}
	switch {
	case size <= 0:
		size = defaultSize
	case size > maxSize:
		size = maxSize
	}
	return PageRequest{Page: page, PageSize: size}
}

// FixedPageRequest ignores any client-supplied size.
func FixedPageRequest(page, size int) PageRequest {
	return NewPageRequest(page, size, size, size)
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() uint64 {
	return uint64(p.Page-1) * uint64(p.PageSize)
}

// Limit returns the maximum number of rows to return.
func (p PageRequest) Limit() uint64 {
	return uint64(p.PageSize)
}

// TotalPages is ceil(total/size), and 0 for an empty collection.
func TotalPages(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// NewPaginationInfo creates a standard PaginationInfo DTO. The requested page
// is echoed back even when it lies past the last page.
func NewPaginationInfo(totalItems int64, p PageRequest) dto.PaginationInfo {
	return dto.PaginationInfo{
		CurrentPage: p.Page,
		TotalPages:  TotalPages(totalItems, p.PageSize),
		PageSize:    p.PageSize,
		TotalItems:  totalItems,
	}
}

// ParsePaginationParams extracts raw page and pageSize query values. Missing or
// malformed values come back as 0 and are resolved by NewPageRequest.
func ParsePaginationParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page"))
	size, _ = strconv.Atoi(c.Query("pageSize"))
	return page, size
}
