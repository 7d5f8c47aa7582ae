package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"rirblocks/internal/model"
)

type mockAllocationService struct {
	allBlocksFunc     func(ctx context.Context, registry, family string) (map[string][]string, error)
	countryBlocksFunc func(ctx context.Context, registry, family, country string) ([]string, error)
}

func (m *mockAllocationService) AllBlocks(ctx context.Context, registry, family string) (map[string][]string, error) {
	return m.allBlocksFunc(ctx, registry, family)
}

func (m *mockAllocationService) CountryBlocks(ctx context.Context, registry, family, country string) ([]string, error) {
	return m.countryBlocksFunc(ctx, registry, family, country)
}

func TestHandler_Blocks(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		countryBlocks []string
		allBlocks     map[string][]string
		mockError     error
		expectedCode  int
		expectedBody  string
	}{
		{
			name:          "country list",
			path:          "/api/v1/blocks/apnic/ipv4?country=AU",
			countryBlocks: []string{"1.0.0.0/24", "1.0.4.0/22"},
			expectedCode:  200,
			expectedBody:  `["1.0.0.0/24","1.0.4.0/22"]`,
		},
		{
			name:          "unknown country is an empty list",
			path:          "/api/v1/blocks/apnic/ipv4?country=ZZ",
			countryBlocks: []string{},
			expectedCode:  200,
			expectedBody:  `[]`,
		},
		{
			name:         "full mapping",
			path:         "/api/v1/blocks/apnic/ipv6",
			allBlocks:    map[string][]string{"JP": {"2001:200::/35"}},
			expectedCode: 200,
			expectedBody: `{"JP":["2001:200::/35"]}`,
		},
		{
			name:         "invalid family",
			path:         "/api/v1/blocks/apnic/ipv5",
			mockError:    fmt.Errorf("%w: unknown address family \"ipv5\"", model.ErrInvalidArgument),
			expectedCode: 400,
		},
		{
			name:         "feed unavailable without cache",
			path:         "/api/v1/blocks/apnic/ipv4",
			mockError:    fmt.Errorf("%w: apnic: connection refused", model.ErrFetchFailed),
			expectedCode: 502,
		},
		{
			name:         "corrupt cache",
			path:         "/api/v1/blocks/apnic/ipv4",
			mockError:    fmt.Errorf("%w: apnic", model.ErrCacheCorrupt),
			expectedCode: 500,
		},
	}

	logger, _ := zap.NewDevelopment()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &mockAllocationService{
				allBlocksFunc: func(ctx context.Context, registry, family string) (map[string][]string, error) {
					return tt.allBlocks, tt.mockError
				},
				countryBlocksFunc: func(ctx context.Context, registry, family, country string) ([]string, error) {
					return tt.countryBlocks, tt.mockError
				},
			}

			h := NewHandler(mockService, logger)
			app := fiber.New()
			h.RegisterRoutes(app)

			req := httptest.NewRequest("GET", tt.path, nil)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}

			if resp.StatusCode != tt.expectedCode {
				t.Errorf("expected status code %d, got %d", tt.expectedCode, resp.StatusCode)
			}

			if tt.expectedBody == "" {
				return
			}

			var got, want interface{}
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if err := json.Unmarshal([]byte(tt.expectedBody), &want); err != nil {
				t.Fatal(err)
			}

			gotJSON, _ := json.Marshal(got)
			wantJSON, _ := json.Marshal(want)
			if string(gotJSON) != string(wantJSON) {
				t.Errorf("expected body %s, got %s", wantJSON, gotJSON)
			}
		})
	}
}

func TestHandler_HealthCheck(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	h := NewHandler(nil, logger)

	app := fiber.New()
	h.RegisterRoutes(app)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("expected status code 200, got %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}

	if body["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %v", body["status"])
	}
}
