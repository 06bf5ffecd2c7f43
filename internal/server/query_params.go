package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wattshare/wattshare/pkg/db/pagination"
)

const dateOnlyLayout = "2006-01-02"

func parsePagination(c *gin.Context) pagination.Pagination {
	p := pagination.Pagination{
		PageToken: strings.TrimSpace(c.Query("page_token")),
	}
	if raw := strings.TrimSpace(c.Query("page_size")); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 32); err == nil {
			p.PageSize = int32(parsed)
		}
	}
	return p
}

func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	parsed, err := time.Parse(dateOnlyLayout, trimmed)
	if err != nil {
		return nil, ErrInvalidRequest
	}
	if endOfDay {
		parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	} else {
		parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	}
	return &parsed, nil
}

func parseDateRange(c *gin.Context) (*time.Time, *time.Time, error) {
	start, err := parseOptionalTime(c.Query("start_date"), false)
	if err != nil {
		return nil, nil, err
	}
	end, err := parseOptionalTime(c.Query("end_date"), true)
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}
