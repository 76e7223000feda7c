package http_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/arboimoveis/mapexplorer/internal/adapters/http"
)

func TestDeprecationMiddleware_MatchesParams(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(handler.DeprecationMiddleware([]handler.DeprecatedRoute{{
		Path:        "/v1/explorer/sessions/:id/camera",
		SunsetDate:  time.Now().Add(48 * time.Hour),
		Alternative: "/ws/explorer/:id",
	}}))
	app.Get("/*", func(c *fiber.Ctx) error { return c.SendString("ok") })

	tests := []struct {
		path       string
		deprecated bool
	}{
		{"/v1/explorer/sessions/abc/camera", true},
		{"/v1/explorer/sessions/abc/click", false},
		{"/v1/explorer/sessions/camera", false},
		{"/v1/explorer/sessions//camera", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil), -1)
			if err != nil {
				t.Fatalf("test request: %v", err)
			}
			got := resp.Header.Get("Deprecation") == "true"
			if got != tt.deprecated {
				t.Errorf("deprecated = %v, want %v", got, tt.deprecated)
			}
			if got && !strings.Contains(resp.Header.Get("Warning"), "sunset in") {
				t.Errorf("expected sunset warning, got %q", resp.Header.Get("Warning"))
			}
		})
	}
}

func TestETagMiddleware_NotModified(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(handler.ETagMiddleware())
	app.Get("/feed", func(c *fiber.Ctx) error { return c.SendString(`[{"id":"a"}]`) })

	resp, err := app.Test(httptest.NewRequest("GET", "/feed", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	etag := resp.Header.Get("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("expected weak etag, got %q", etag)
	}

	req := httptest.NewRequest("GET", "/feed", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/feed", nil)
	req.Header.Set("If-None-Match", `W/"stale", `+etag)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 304 {
		t.Errorf("expected 304 for a matching tag in a list, got %d", resp.StatusCode)
	}
}

func TestETagMiddleware_SkipsLiveSessions(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(handler.ETagMiddleware("/v1/explorer/"))
	app.Get("/v1/explorer/sessions/:id", func(c *fiber.Ctx) error { return c.SendString(`{"id":"s"}`) })

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/explorer/sessions/s", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.Header.Get("ETag") != "" {
		t.Errorf("expected no etag on a live session, got %q", resp.Header.Get("ETag"))
	}
}

func TestSetLinkHeaders(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/v1/properties", func(c *fiber.Ctx) error {
		handler.SetLinkHeaders(c, handler.Pagination{Offset: 0, Limit: 10, Total: 25})
		return c.SendStatus(200)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/properties", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	link := resp.Header.Get("Link")
	if strings.Contains(link, `rel="prev"`) {
		t.Errorf("first page should have no prev link: %q", link)
	}
	if !strings.Contains(link, `</v1/properties?offset=10&limit=10>; rel="next"`) {
		t.Errorf("missing next link: %q", link)
	}
	if !strings.Contains(link, `</v1/properties?offset=15&limit=10>; rel="last"`) {
		t.Errorf("missing last link: %q", link)
	}
}
