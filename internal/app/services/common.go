package services

import (
	"strings"

	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/pkg/helpers"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID int64
	Role   models.RoleType
	IP     string
}

// PageRequest is a 1-based page selection
type PageRequest struct {
	Page int
	Size int
}

func (p PageRequest) bounds() (offset, limit uint64) {
	return helpers.CalculateOffsetLimit(p.Page, p.Size)
}

func paginated(items interface{}, total int64, p PageRequest) *dto.PaginatedResponse {
	_, limit := p.bounds()
	return &dto.PaginatedResponse{
		Items:      items,
		Pagination: helpers.NewPaginationInfo(total, p.Page, int(limit)),
	}
}

// optionalString trims s and returns nil when it is empty
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func int64Ptr(v int64) *int64 { return &v }
