package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/alekl79/peachtree-bank-poc/internal/logging"
	"github.com/alekl79/peachtree-bank-poc/internal/models"
	"github.com/alekl79/peachtree-bank-poc/internal/query"
	"github.com/alekl79/peachtree-bank-poc/internal/service"
)

type QueryTransactionsHandler struct {
	lg           *logging.ZapLogger
	transactions TransactionSearcher
}

type TransactionSearcher interface {
	Query(ctx context.Context, spec query.Spec) (*query.Result, error)
}

type ActiveFilters struct {
	Q             *string `json:"q"`
	SortBy        *string `json:"sortBy"`
	SortDirection *string `json:"sortDirection"`
}

type QueryTransactionsResponse struct {
	Data          []*models.Transaction `json:"data"`
	CurrentPage   int                   `json:"currentPage"`
	TotalPages    int                   `json:"totalPages"`
	PageSize      int                   `json:"pageSize"`
	ActiveFilters ActiveFilters         `json:"activeFilters"`
}

func NewQueryTransactionsHandler(transactions TransactionSearcher, lg *logging.ZapLogger) *QueryTransactionsHandler {
	return &QueryTransactionsHandler{transactions: transactions, lg: lg}
}

func (h *QueryTransactionsHandler) Handle(c *fiber.Ctx) error {
	page, err := c.ParamsInt("page")
	if err != nil {
		return BadRequest(c, "invalid_query", "page must be an integer")
	}

	pageSize, err := c.ParamsInt("pageSize")
	if err != nil {
		return BadRequest(c, "invalid_query", "pageSize must be an integer")
	}

	filters := ActiveFilters{
		Q:             optionalQuery(c, "q"),
		SortBy:        optionalQuery(c, "sortBy"),
		SortDirection: optionalQuery(c, "sortDirection"),
	}

	spec := query.Spec{
		SearchText:    c.Query("q"),
		SortBy:        c.Query("sortBy"),
		SortDirection: c.Query("sortDirection"),
		Page:          page,
		PageSize:      pageSize,
	}

	result, err := h.transactions.Query(c.UserContext(), spec)
	if err != nil {
		if errors.Is(err, service.ErrEmptyResult) {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return RespondError(c, h.lg, err)
	}

	return c.JSON(QueryTransactionsResponse{
		Data:          result.Items,
		CurrentPage:   result.Page,
		TotalPages:    result.TotalPages,
		PageSize:      result.PageSize,
		ActiveFilters: filters,
	})
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	if !c.Context().QueryArgs().Has(key) {
		return nil
	}

	v := c.Query(key)

	return &v
}
