package query

import "github.com/alekl79/peachtree-bank-poc/internal/models"

type Result struct {
	Items      []*models.Transaction
	TotalCount int
	TotalPages int
	Page       int
	PageSize   int
}

func NewResult(items []*models.Transaction, totalCount int, p *Plan) *Result {
	return &Result{
		Items:      items,
		TotalCount: totalCount,
		TotalPages: TotalPages(totalCount, p.PageSize),
		Page:       p.Page,
		PageSize:   p.PageSize,
	}
}

func (r *Result) Empty() bool {
	return r.TotalCount == 0
}

// TotalPages is ceil(totalCount / pageSize).
func TotalPages(totalCount, pageSize int) int {
	if pageSize < 1 || totalCount < 1 {
		return 0
	}

	return (totalCount + pageSize - 1) / pageSize
}
