package presenters

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPageLinks(t *testing.T) {
	base := "http://localhost:8000/api/recipes/?limit=2"

	// First of three pages: only next.
	next, previous := BuildPageLinks(base, 1, 2, 5)
	require.NotNil(t, next)
	assert.Nil(t, previous)
	assert.Contains(t, *next, "page=2")
	assert.Contains(t, *next, "limit=2")

	// Middle page: both links.
	next, previous = BuildPageLinks(base, 2, 2, 5)
	require.NotNil(t, next)
	require.NotNil(t, previous)
	assert.Contains(t, *next, "page=3")
	assert.Contains(t, *previous, "page=1")

	// Last page: only previous.
	next, previous = BuildPageLinks(base, 3, 2, 5)
	assert.Nil(t, next)
	require.NotNil(t, previous)
	assert.Contains(t, *previous, "page=2")
}

func TestBuildPageLinksSinglePage(t *testing.T) {
	next, previous := BuildPageLinks("http://localhost:8000/api/users/", 1, 6, 4)
	assert.Nil(t, next)
	assert.Nil(t, previous)
}

func TestBuildPageLinksReplacesExistingPageParam(t *testing.T) {
	next, _ := BuildPageLinks("http://localhost:8000/api/recipes/?page=2&limit=2", 2, 2, 5)
	require.NotNil(t, next)
	assert.Contains(t, *next, "page=3")
	assert.NotContains(t, *next, "page=2")
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()

	var page, limit int
	app.Get("/probe", func(c *fiber.Ctx) error {
		page, limit = ParsePagination(c)
		return c.SendStatus(fiber.StatusOK)
	})

	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{"defaults", "", 1, DefaultPageSize},
		{"explicit", "?page=3&limit=10", 3, 10},
		{"limit capped", "?limit=500", 1, MaxPageSize},
		{"invalid values fall back", "?page=0&limit=-2", 1, DefaultPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/probe"+tt.query, nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}
