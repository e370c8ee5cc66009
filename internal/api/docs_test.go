package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAPIDocs(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.OpenAPIHandler(rr, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), "/v1/solve") { t.Fatalf("yaml: %d", rr.Code) }

	rr = httptest.NewRecorder()
	s.OpenAPIJSONHandler(rr, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	if rr.Code != 200 { t.Fatalf("json: %d %s", rr.Code, rr.Body) }
	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil { t.Fatal(err) }
	for _, p := range []string{"/v1/solve", "/v1/runs/{id}/ws", "/v1/admin/run-metrics"} {
		if _, ok := doc.Paths[p]; !ok { t.Fatalf("missing path %s", p) }
	}

	rr = httptest.NewRecorder()
	s.DocsHandler(rr, httptest.NewRequest(http.MethodGet, "/docs", nil))
	if !strings.Contains(rr.Body.String(), "redoc") { t.Fatalf("docs page: %s", rr.Body) }
}

func TestDebugJSON(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://secret@db/vrptw")
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.DebugJSON(rr, httptest.NewRequest(http.MethodGet, "/v1/admin/debug", nil))
	if rr.Code != 200 { t.Fatalf("debug: %d", rr.Code) }
	body := rr.Body.String()
	if strings.Contains(body, "secret") { t.Fatalf("debug output leaks DATABASE_URL") }
	if !strings.Contains(body, `"HAS_DATABASE_URL":true`) || !strings.Contains(body, `"pending":0`) { t.Fatalf("debug: %s", body) }
}
