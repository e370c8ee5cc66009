package webhooks

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerProcessOnce_SuccessAndSignature(t *testing.T) {
	var gotSig, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		gotType = r.Header.Get("X-Event-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	q := NewQueue()
	w := &Worker{Queue: q, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 3}
	id, err := NewPublisher(q).Emit(srv.URL, "secret", "run.completed", map[string]any{"runId": "r1"})
	if err != nil || id == "" {
		t.Fatalf("emit failed: %v", err)
	}

	w.processOnce()

	if gotType != "run.completed" || !VerifyHMAC("secret", gotBody, gotSig) {
		t.Fatalf("bad signature/type headers: sig=%q type=%q", gotSig, gotType)
	}
	var env map[string]any
	if err := json.Unmarshal(gotBody, &env); err != nil || env["type"] != "run.completed" {
		t.Fatalf("bad envelope %s: %v", gotBody, err)
	}
	if q.Pending() != 0 || q.Sent() != 1 {
		t.Fatalf("pending=%d sent=%d", q.Pending(), q.Sent())
	}
}

func TestWorkerRetriesWithBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(503)
			return
		}
		w.WriteHeader(204)
	}))
	defer srv.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q := NewQueue()
	w := &Worker{Queue: q, HTTP: srv.Client(), MaxAttempts: 5, now: func() time.Time { return now }}
	q.Enqueue(Delivery{EventType: "run.failed", URL: srv.URL, Payload: []byte(`{}`)})

	w.processOnce()
	if q.Pending() != 1 || calls.Load() != 1 {
		t.Fatalf("after failure: pending=%d calls=%d", q.Pending(), calls.Load())
	}
	// not due yet
	w.processOnce()
	if calls.Load() != 1 {
		t.Fatalf("retried before backoff elapsed")
	}
	now = now.Add(nextBackoff(0))
	w.processOnce()
	if calls.Load() != 2 || q.Pending() != 0 || q.Sent() != 1 {
		t.Fatalf("after retry: calls=%d pending=%d sent=%d", calls.Load(), q.Pending(), q.Sent())
	}
}

func TestWorkerProcessOnce_Fail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500) }))
	defer srv.Close()
	q := NewQueue()
	w := &Worker{Queue: q, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 1}
	q.Enqueue(Delivery{EventType: "run.completed", URL: srv.URL, Payload: []byte(`{}`)})
	w.processOnce()
	dead := q.Dead()
	if len(dead) != 1 || dead[0].ResponseCode != 500 || q.Pending() != 0 {
		t.Fatalf("expected one dead delivery, got %+v", dead)
	}
}

func TestEmitWithoutURL(t *testing.T) {
	q := NewQueue()
	id, err := NewPublisher(q).Emit("", "", "run.completed", nil)
	if err != nil || id != "" || q.Pending() != 0 {
		t.Fatalf("id=%q err=%v pending=%d", id, err, q.Pending())
	}
}

func TestNextBackoff(t *testing.T) {
	if nextBackoff(0) != time.Second || nextBackoff(3) != 8*time.Second || nextBackoff(50) != 1024*time.Second {
		t.Fatal("unexpected backoff")
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	sig := Sign("k", []byte("body"))
	if !strings.HasPrefix(sig, "sha256=") { t.Fatalf("signature %q lacks scheme", sig) }
	if !VerifyHMAC("k", []byte("body"), sig) || VerifyHMAC("other", []byte("body"), sig) || VerifyHMAC("k", []byte("body"), "zz") {
		t.Fatal("VerifyHMAC")
	}
}
