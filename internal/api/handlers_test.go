package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"vrptw/internal/config"
	"vrptw/internal/model"
	"vrptw/internal/store"
	"vrptw/internal/webhooks"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServerWith(store.NewMemory(), NewBroker(), config.Default())
}

// squareBody is depot(0,0), A(0,10), B(10,0) with one vehicle of capacity 20.
func squareBody(extra string) []byte {
	return []byte(`{"instance":"square","capacity":20,"maxVehicles":1,` + extra + `"customers":[
		{"id":0,"x":0,"y":0,"due":1000},
		{"id":1,"x":0,"y":10,"demand":10,"due":100},
		{"id":2,"x":10,"y":0,"demand":10,"due":100}]}`)
}

func solve(t *testing.T, s *Server, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/solve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.SolveHandler(rr, req)
	return rr
}

func decodeRun(t *testing.T, body io.Reader) model.Run {
	t.Helper()
	var run model.Run
	if err := json.NewDecoder(body).Decode(&run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	return run
}

func TestHealthReadyVersion(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != 200 { t.Fatalf("health: got %d", rr.Code) }
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != 200 { t.Fatalf("ready: got %d", rr.Code) }
	rr = httptest.NewRecorder()
	s.VersionHandler(rr, httptest.NewRequest(http.MethodGet, "/version", nil))
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), "goVersion") { t.Fatalf("version: %d %s", rr.Code, rr.Body) }
}

func TestSolveSyncAndArtifact(t *testing.T) {
	s := newTestServer(t)
	rr := solve(t, s, squareBody(`"maxNoImprove":0,`))
	if rr.Code != 200 { t.Fatalf("solve: %d %s", rr.Code, rr.Body) }
	run := decodeRun(t, rr.Body)
	if run.Status != model.StatusCompleted { t.Fatalf("status %s", run.Status) }
	if math.Abs(run.TotalDistance-(20+math.Sqrt(200))) > 1e-9 { t.Fatalf("distance %v", run.TotalDistance) }
	if len(run.Routes) != 1 || len(run.Unrouted) != 0 { t.Fatalf("routes %v unrouted %v", run.Routes, run.Unrouted) }
	if run.System == nil { t.Fatal("system info missing") }

	rr = httptest.NewRecorder()
	s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/"+run.ID+"/artifact", nil))
	if rr.Code != 200 { t.Fatalf("artifact: %d", rr.Code) }
	body := rr.Body.String()
	for _, want := range []string{"Instance: square\n", "Route 1: 0 -> 2 -> 1 -> 0\n", "Total Distance: 34.14\n", " seconds\n"} {
		if !strings.Contains(body, want) { t.Fatalf("artifact missing %q:\n%s", want, body) }
	}
}

func TestSolveReportsUnrouted(t *testing.T) {
	s := newTestServer(t)
	rr := solve(t, s, []byte(`{"capacity":10,"maxVehicles":1,"maxNoImprove":0,"customers":[
		{"id":0,"due":1000},{"id":1,"y":10,"demand":10,"due":100},{"id":2,"x":10,"demand":10,"due":100}]}`))
	if rr.Code != 200 { t.Fatalf("solve: %d %s", rr.Code, rr.Body) }
	run := decodeRun(t, rr.Body)
	if len(run.Unrouted) != 1 || run.Unrouted[0] != 2 || run.Instance != "inline" { t.Fatalf("run %+v", run) }
}

func TestSolveSolomonTextUsesCatalog(t *testing.T) {
	text, err := os.ReadFile("../solomon/testdata/c101_10.txt")
	if err != nil { t.Fatal(err) }
	body, _ := json.Marshal(map[string]any{"solomon": string(text), "maxNoImprove": 5, "seed": 3})
	s := newTestServer(t)
	rr := solve(t, s, body)
	if rr.Code != 200 { t.Fatalf("solve: %d %s", rr.Code, rr.Body) }
	run := decodeRun(t, rr.Body)
	if run.Instance != "C101" || run.Params.Capacity != 200 || run.Params.Seed != 3 { t.Fatalf("run %+v", run) }
	if run.BestKnown == nil || *run.BestKnown != 828.94 || run.GapPct == nil { t.Fatalf("gap not filled: %+v", run) }
	if run.TotalDistance > run.InitialDistance { t.Fatalf("LNS worsened %v > %v", run.TotalDistance, run.InitialDistance) }

	rr = httptest.NewRecorder()
	s.RunMetricsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/admin/run-metrics?instance=C101&algo=lns", nil))
	if rr.Code != 200 { t.Fatalf("run-metrics: %d", rr.Code) }
	var out struct{ Items []model.RunMetrics }
	_ = json.NewDecoder(rr.Body).Decode(&out)
	if len(out.Items) != 1 || out.Items[0].Metrics.Iterations < 5 { t.Fatalf("metrics %+v", out.Items) }
}

func TestSolveValidation(t *testing.T) {
	s := newTestServer(t)
	cases := map[string]string{
		"bad json":      `{`,
		"unknown field": `{"tenantId":"x"}`,
		"no instance":   `{"capacity":10}`,
		"both":          `{"solomon":"CUSTOMER","customers":[{"id":0}]}`,
		"no depot":      `{"capacity":10,"customers":[{"id":1}]}`,
		"duplicate":     `{"capacity":10,"customers":[{"id":0},{"id":0}]}`,
		"window":        `{"capacity":10,"customers":[{"id":0,"ready":5,"due":1}]}`,
		"fraction":      `{"capacity":10,"removalFraction":2,"customers":[{"id":0}]}`,
		"callback":      `{"capacity":10,"callbackUrl":"ftp://x","customers":[{"id":0}]}`,
		"no capacity":   `{"customers":[{"id":0,"due":10}]}`,
		"bad solomon":   `{"solomon":"nothing here"}`,
	}
	for name, body := range cases {
		rr := solve(t, s, []byte(body))
		if rr.Code != http.StatusBadRequest { t.Errorf("%s: got %d %s", name, rr.Code, rr.Body) }
	}
	rr := httptest.NewRecorder()
	s.SolveHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solve", nil))
	if rr.Code != http.StatusMethodNotAllowed { t.Fatalf("GET solve: %d", rr.Code) }
}

func TestRunsIndexAndNotFound(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		if rr := solve(t, s, squareBody(`"maxNoImprove":0,`)); rr.Code != 200 { t.Fatalf("solve: %d", rr.Code) }
	}
	rr := httptest.NewRecorder()
	s.RunsIndexHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs?instance=square&limit=2", nil))
	if rr.Code != 200 { t.Fatalf("runs index: %d", rr.Code) }
	var page struct {
		Items      []model.Run
		NextCursor string
	}
	_ = json.NewDecoder(rr.Body).Decode(&page)
	if len(page.Items) != 2 || page.NextCursor == "" { t.Fatalf("page %+v", page) }

	rr = httptest.NewRecorder()
	s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/missing", nil))
	if rr.Code != 404 { t.Fatalf("missing run: %d", rr.Code) }
	rr = httptest.NewRecorder()
	s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/"+page.Items[0].ID+"/nope", nil))
	if rr.Code != 404 { t.Fatalf("unknown child: %d", rr.Code) }
}

func TestCatalog(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.CatalogHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/catalog", nil))
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), `"C104"`) { t.Fatalf("catalog: %d %s", rr.Code, rr.Body) }
}

func TestSolveAsyncStreamsEvents(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(LogMiddleware(s.Routes(nil)))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/solve", "application/json", bytes.NewReader(squareBody(`"async":true,"maxNoImprove":20,`)))
	if err != nil { t.Fatal(err) }
	if resp.StatusCode != http.StatusAccepted { t.Fatalf("async solve: %d", resp.StatusCode) }
	run := decodeRun(t, resp.Body)
	resp.Body.Close()
	if resp.Header.Get("Location") != "/v1/runs/"+run.ID { t.Fatalf("location %q", resp.Header.Get("Location")) }

	// the stream ends with the terminal event whether or not the run finished first
	resp, err = http.Get(ts.URL + "/v1/runs/" + run.ID + "/events/stream")
	if err != nil { t.Fatal(err) }
	defer resp.Body.Close()
	var events []string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		if ev, ok := strings.CutPrefix(sc.Text(), "event: "); ok { events = append(events, ev) }
	}
	if len(events) < 2 || events[0] != "heartbeat" || events[len(events)-1] != EventCompleted { t.Fatalf("events %v", events) }

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil { t.Fatal(err) }
	got, err := s.Store.GetRun(ctx, run.ID)
	if err != nil || got.Status != model.StatusCompleted { t.Fatalf("run %+v err %v", got, err) }
}

func TestRunWebsocket(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(LogMiddleware(s.Routes(nil)))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/solve", "application/json", bytes.NewReader(squareBody(`"async":true,`)))
	if err != nil { t.Fatal(err) }
	run := decodeRun(t, resp.Body)
	resp.Body.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/runs/"+run.ID+"/ws", nil)
	if err != nil { t.Fatalf("dial: %v", err) }
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var evt SSEEvent
		if err := conn.ReadJSON(&evt); err != nil { t.Fatalf("read: %v", err) }
		if evt.Type == EventFailed { t.Fatalf("run failed: %v", evt.Data) }
		if evt.Type == EventCompleted {
			if evt.Data["runId"] != run.ID { t.Fatalf("event for %v", evt.Data["runId"]) }
			break
		}
	}
	_ = s.Wait(context.Background())
}

func TestSolveCallback(t *testing.T) {
	got := make(chan *http.Request, 1)
	bodies := make(chan []byte, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies <- b
		got <- r
		w.WriteHeader(204)
	}))
	defer hook.Close()

	s := newTestServer(t)
	worker := webhooks.NewWorker(s.Hooks)
	worker.HTTP = hook.Client()
	worker.Start()
	defer close(worker.Stop)

	rr := solve(t, s, squareBody(`"maxNoImprove":0,"callbackUrl":"`+hook.URL+`","callbackSecret":"k",`))
	if rr.Code != 200 { t.Fatalf("solve: %d", rr.Code) }
	select {
	case r := <-got:
		body := <-bodies
		if r.Header.Get("X-Event-Type") != EventCompleted { t.Fatalf("event type %q", r.Header.Get("X-Event-Type")) }
		if !webhooks.VerifyHMAC("k", body, r.Header.Get("X-Signature")) { t.Fatal("bad signature") }
	case <-time.After(5 * time.Second):
		t.Fatal("callback not delivered")
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t)
	h := RateLimit(rate.NewLimiter(rate.Limit(0.001), 1), s.SolveHandler)
	codes := []int{}
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/solve", bytes.NewReader(squareBody(`"maxNoImprove":0,`)))
		h(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != 200 || codes[1] != http.StatusTooManyRequests { t.Fatalf("codes %v", codes) }
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(LogMiddleware(s.Routes(nil)))
	defer ts.Close()
	if _, err := http.Get(ts.URL + "/healthz"); err != nil { t.Fatal(err) }
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil { t.Fatal(err) }
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), "http_requests_total") { t.Fatalf("metrics output lacks http_requests_total") }
}

func TestMetricPath(t *testing.T) {
	if got := metricPath("/v1/runs/abc/events/stream"); got != "/v1/runs/{id}/events/stream" { t.Fatalf("got %s", got) }
	if got := metricPath("/v1/solve"); got != "/v1/solve" { t.Fatalf("got %s", got) }
}
