package handlers

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

func parsePaginationParams(c echo.Context) (int, int, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)

	pageStr := c.QueryParam("page")
	pageSizeStr := c.QueryParam("pageSize")

	// Page
	page := defaultPage
	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = p
	}

	// Page size
	pageSize := defaultPageSize
	if pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}

		pageSize = ps
	}

	return page, pageSize, nil
}

func parseCampaignID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("campaign id must be a positive integer")
	}
	return id, nil
}
