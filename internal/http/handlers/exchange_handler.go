// Exchange listing handlers.
//
// GET /api/v1/exchanges returns stored request/reply pairs newest-first with
// classic page/page_size pagination. This is the operational window into what
// the relay has processed; it exists for dashboards and debugging, not for
// the messaging provider.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kasunw/whatsapp-relay/internal/domain"
	"github.com/kasunw/whatsapp-relay/internal/repo"
	"github.com/kasunw/whatsapp-relay/internal/utils"
)

// Pagination describes the page window returned by list endpoints.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// ListExchangesResponse contains one page of exchanges plus metadata.
type ListExchangesResponse struct {
	Exchanges  []domain.Exchange `json:"exchanges"`
	Pagination Pagination        `json:"pagination"`
}

// clampPagination parses page/page_size query parameters with defaults and a
// hard cap on page size.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// ListExchanges handles GET /api/v1/exchanges.
func ListExchanges(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := clampPagination(c)

		total, err := repo.CountExchanges(c.Request.Context(), db)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, "failed to list exchanges")
			return
		}

		items, err := repo.ListExchangesPage(c.Request.Context(), db, (page-1)*pageSize, pageSize)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, "failed to list exchanges")
			return
		}
		if items == nil {
			items = []domain.Exchange{}
		}

		ok(c, http.StatusOK, ListExchangesResponse{
			Exchanges: items,
			Pagination: Pagination{
				Page:     page,
				PageSize: pageSize,
				Total:    total,
			},
		})
	}
}
