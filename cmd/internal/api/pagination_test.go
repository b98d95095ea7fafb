package api

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name  string
		query string
		total int
		want  pagination
		err   bool
	}{
		{"defaults to all rows", "", 7, pagination{Total: 7, Page: 1, PerPage: 7, TotalPages: 1}, false},
		{"empty listing", "", 0, pagination{Total: 0, Page: 1, PerPage: 1, TotalPages: 0}, false},
		{"window", "?page=2&rows=3", 7, pagination{Total: 7, Page: 2, PerPage: 3, TotalPages: 3}, false},
		{"last partial page", "?page=3&rows=3", 7, pagination{Total: 7, Page: 3, PerPage: 3, TotalPages: 3}, false},
		{"page past end", "?page=4&rows=3", 7, pagination{}, true},
		{"page zero", "?page=0", 7, pagination{}, true},
		{"rows zero", "?rows=0", 7, pagination{}, true},
		{"non integer page", "?page=x", 7, pagination{}, true},
		{"non integer rows", "?rows=1.5", 7, pagination{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/users"+tt.query, nil)
			got, err := parsePagination(r, tt.total)
			if tt.err {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errInvalidPagination))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPaginationOffset(t *testing.T) {
	assert.Equal(t, 0, pagination{Page: 1, PerPage: 10}.offset())
	assert.Equal(t, 20, pagination{Page: 3, PerPage: 10}.offset())
}

func TestRoutePrefix(t *testing.T) {
	assert.Equal(t, "/api", routePrefix("/api/"))
	assert.Equal(t, "/api", routePrefix("api"))
	assert.Equal(t, "", routePrefix("/"))
	assert.Equal(t, "", routePrefix(""))
	assert.Equal(t, "/a/b", routePrefix("/a/b/"))
}
