package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func parsePaginationForTest(t *testing.T, query string) PaginationParams {
	t.Helper()

	app := fiber.New()
	var parsed PaginationParams
	app.Get("/notifications", func(c *fiber.Ctx) error {
		parsed = ParsePagination(c)
		return c.SendStatus(http.StatusOK)
	})

	path := "/notifications"
	if query != "" {
		path += "?" + query
	}
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	if err != nil {
		t.Fatalf("pagination request failed for query %q: %v", query, err)
	}
	resp.Body.Close()

	return parsed
}

func TestParsePagination(t *testing.T) {
	testCases := []struct {
		name  string
		query string
		want  PaginationParams
	}{
		{"defaults when no query params", "", PaginationParams{Page: 1, Limit: DefaultPageSize, Offset: 0}},
		{"uses explicit page and limit", "page=2&limit=10", PaginationParams{Page: 2, Limit: 10, Offset: 10}},
		{"normalizes page less than one", "page=0&limit=10", PaginationParams{Page: 1, Limit: 10, Offset: 0}},
		{"normalizes invalid page string", "page=abc&limit=10", PaginationParams{Page: 1, Limit: 10, Offset: 0}},
		{"normalizes limit less than one", "page=3&limit=0", PaginationParams{Page: 3, Limit: DefaultPageSize, Offset: 2 * DefaultPageSize}},
		{"caps limit at the ceiling", "page=1&limit=500", PaginationParams{Page: 1, Limit: MaxPageSize, Offset: 0}},
		{"normalizes invalid limit string", "page=4&limit=abc", PaginationParams{Page: 4, Limit: DefaultPageSize, Offset: 3 * DefaultPageSize}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parsePaginationForTest(t, tc.query); got != tc.want {
				t.Fatalf("ParsePagination(%q) = %+v, want %+v", tc.query, got, tc.want)
			}
		})
	}
}

func TestApplyPagination(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 user=test password=test dbname=test port=5432 sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("failed to create dry-run gorm db: %v", err)
	}

	params := PaginationParams{Page: 3, Limit: 15, Offset: 30}
	paginated := ApplyPagination(db.Table("notifications"), params)

	limitClause, ok := paginated.Statement.Clauses["LIMIT"]
	if !ok {
		t.Fatal("expected LIMIT clause to be set")
	}
	limitExpr, ok := limitClause.Expression.(clause.Limit)
	if !ok {
		t.Fatalf("expected clause.Limit expression, got %T", limitClause.Expression)
	}
	if limitExpr.Limit == nil || *limitExpr.Limit != params.Limit {
		t.Fatalf("expected limit=%d, got %v", params.Limit, limitExpr.Limit)
	}
	if limitExpr.Offset != params.Offset {
		t.Fatalf("expected offset=%d, got %d", params.Offset, limitExpr.Offset)
	}
}
