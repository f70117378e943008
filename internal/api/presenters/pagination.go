package presenters

import (
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	DefaultPageSize = 6
	MaxPageSize     = 100
)

type PaginatedData struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// ParsePagination reads the page and limit query parameters, applying the
// default page size and the upper bound.
func ParsePagination(c *fiber.Ctx) (page, limit int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	limit = c.QueryInt("limit", DefaultPageSize)
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	return page, limit
}

// PaginatedResponse writes the count/next/previous/results envelope.
func PaginatedResponse(c *fiber.Ctx, results any, count int64, page, limit int) error {
	next, previous := BuildPageLinks(c.BaseURL()+c.OriginalURL(), page, limit, count)
	return c.Status(fiber.StatusOK).JSON(PaginatedData{
		Count:    count,
		Next:     next,
		Previous: previous,
		Results:  results,
	})
}

// BuildPageLinks derives the next and previous page URLs from the request URL;
// a nil link marks the respective end of the listing.
func BuildPageLinks(rawURL string, page, limit int, count int64) (next, previous *string) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil
	}

	if int64(page)*int64(limit) < count {
		next = pageLink(parsed, page+1)
	}
	if page > 1 {
		previous = pageLink(parsed, page-1)
	}
	return next, previous
}

func pageLink(base *url.URL, page int) *string {
	u := *base
	query := u.Query()
	query.Set("page", strconv.Itoa(page))
	u.RawQuery = query.Encode()
	link := u.String()
	return &link
}
