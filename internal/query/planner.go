package query

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/alekl79/peachtree-bank-poc/internal/models"
)

var (
	ErrInvalidQuery     = errors.New("invalid query")
	ErrInvalidPage      = fmt.Errorf("%w: page must be greater than zero", ErrInvalidQuery)
	ErrInvalidPageSize  = fmt.Errorf("%w: page size must be greater than zero", ErrInvalidQuery)
	ErrPageSizeTooLarge = fmt.Errorf("%w: page size exceeds maximum", ErrInvalidQuery)
	ErrUnknownSortField = fmt.Errorf("%w: unknown sort field", ErrInvalidQuery)
)

// DefaultSortField orders the canonical view, newest first.
var DefaultSortField = FieldCreated

const sortDirectionDescKey = "desc"

// Spec is the caller supplied combination of search, sort and page coordinates.
type Spec struct {
	SearchText    string
	SortBy        string
	SortDirection string
	Page          int
	PageSize      int
}

// Plan is a resolved Spec. It is safe to hand to any Record Store.
type Plan struct {
	Search     string
	Sort       *Field
	Descending bool
	Page       int
	PageSize   int
}

type Planner struct {
	maxPageSize int
}

// NewPlanner builds a planner. A maxPageSize of zero disables the upper bound.
func NewPlanner(maxPageSize int) *Planner {
	return &Planner{maxPageSize: maxPageSize}
}

func (p *Planner) Plan(spec Spec) (*Plan, error) {
	if spec.Page < 1 {
		return nil, ErrInvalidPage
	}

	if spec.PageSize < 1 {
		return nil, ErrInvalidPageSize
	}

	if p.maxPageSize > 0 && spec.PageSize > p.maxPageSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPageSizeTooLarge, spec.PageSize, p.maxPageSize)
	}

	plan := &Plan{
		Search:   strings.ToLower(spec.SearchText),
		Page:     spec.Page,
		PageSize: spec.PageSize,
	}

	if spec.SortBy == "" {
		// canonical view, direction is ignored
		plan.Sort = DefaultSortField
		plan.Descending = true

		return plan, nil
	}

	field, ok := LookupField(spec.SortBy)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSortField, spec.SortBy)
	}

	plan.Sort = field
	plan.Descending = strings.EqualFold(strings.TrimSpace(spec.SortDirection), sortDirectionDescKey)

	return plan, nil
}

// Offset is (Page-1)*PageSize, saturated at math.MaxInt so a page too far
// out to address still reads as past the end.
func (p *Plan) Offset() int {
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}

	return (p.Page - 1) * p.PageSize
}

func (p *Plan) Limit() int {
	return p.PageSize
}

// Matches reports whether t passes the search filter.
func (p *Plan) Matches(t *models.Transaction) bool {
	if p.Search == "" {
		return true
	}

	return strings.Contains(strings.ToLower(t.FromAccount), p.Search) ||
		strings.Contains(strings.ToLower(t.ToAccount), p.Search)
}

// Compare orders two transactions by the plan's sort field, then by id
// ascending so that equal sort keys still produce a stable order.
func (p *Plan) Compare(a, b *models.Transaction) int {
	c := p.Sort.Compare(a, b)
	if p.Descending {
		c = -c
	}

	if c != 0 {
		return c
	}

	return compareID(a, b)
}

// OrderBy renders the SQL ORDER BY list for the plan.
func (p *Plan) OrderBy() string {
	direction := "ASC"
	if p.Descending {
		direction = "DESC"
	}

	return fmt.Sprintf("%s %s, id ASC", p.Sort.Column, direction)
}

// Apply runs the filter, sort, count and page stages over an in-memory set.
// The input slice is not modified.
func Apply(items []*models.Transaction, p *Plan) ([]*models.Transaction, int) {
	filtered := make([]*models.Transaction, 0, len(items))
	for _, t := range items {
		if p.Matches(t) {
			filtered = append(filtered, t)
		}
	}

	slices.SortFunc(filtered, p.Compare)

	total := len(filtered)
	offset := p.Offset()
	if offset >= total {
		return []*models.Transaction{}, total
	}

	end := min(offset+p.Limit(), total)

	return filtered[offset:end], total
}
