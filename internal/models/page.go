package models

// PageRequest carries zero-based pagination parameters.
type PageRequest struct {
	Page int
	Size int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps the request to sane bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the row offset for the page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// PageInfo describes a page of results in responses.
type PageInfo struct {
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int64 `json:"totalPages"`
}

func NewPageInfo(req PageRequest, total int64) PageInfo {
	pages := total / int64(req.Size)
	if total%int64(req.Size) != 0 {
		pages++
	}
	return PageInfo{
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}
