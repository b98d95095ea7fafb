package api

import (
	"net/http"
	"strconv"
	"strings"
)

type paginationError struct{ msg string }

func (e paginationError) Error() string { return errInvalidPagination.Error() + ": " + e.msg }
func (e paginationError) Unwrap() error { return errInvalidPagination }

type pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

func (p pagination) offset() int { return (p.Page - 1) * p.PerPage }

type paginationMeta struct {
	Pagination pagination `json:"pagination"`
}

// parsePagination reads page and rows from the query. rows defaults to all
// rows; page defaults to 1. A page past the end is rejected only when there
// are rows to page through.
func parsePagination(r *http.Request, total int) (pagination, error) {
	q := r.URL.Query()

	page := 1
	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return pagination{}, paginationError{"Page number must be an integer."}
		}
		page = n
	}

	rows := max(total, 1)
	if raw := strings.TrimSpace(q.Get("rows")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return pagination{}, paginationError{"Rows per page must be an integer."}
		}
		rows = n
	}

	if page < 1 {
		return pagination{}, paginationError{"Page number must be greater than 0."}
	}
	if rows < 1 {
		return pagination{}, paginationError{"Rows per page must be greater than 0."}
	}

	pages := (total + rows - 1) / rows
	if page > pages && pages > 0 {
		return pagination{}, paginationError{"Page number exceeds total pages."}
	}
	return pagination{Total: total, Page: page, PerPage: rows, TotalPages: pages}, nil
}
