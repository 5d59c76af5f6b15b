package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRestyClientGetResolvesBaseURLAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/v1/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSD" {
			t.Errorf("unexpected symbol %q", got)
		}
		w.Header().Set("X-Backend", "ok")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewRestyClient(srv.URL+"/api/v1", 0)
	resp, err := client.Get(context.Background(), "/price", map[string]string{"symbol": "BTCUSD"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode())
	}
	if string(resp.Body()) != `{"ok":true}` {
		t.Fatalf("unexpected body %s", resp.Body())
	}
	if resp.Header("X-Backend") != "ok" {
		t.Fatalf("response header not exposed")
	}
}

func TestRestyClientPostSendsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		raw, _ := io.ReadAll(r.Body)
		var got map[string]any
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Errorf("body is not json: %s", raw)
		}
		if got["period"] != float64(14) {
			t.Errorf("unexpected body %s", raw)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewRestyClient(srv.URL, 0)
	resp, err := client.Post(context.Background(), "/indicators/rsi", map[string]any{"period": 14})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if resp.StatusCode() != http.StatusCreated {
		t.Fatalf("unexpected status %d", resp.StatusCode())
	}
}

func TestRestyClientDoesNotRetryServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewRestyClient(srv.URL, 0)
	resp, err := client.Get(context.Background(), "/status", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode() != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", resp.StatusCode())
	}
	if calls != 1 {
		t.Fatalf("expected exactly one request, got %d", calls)
	}
}

func TestRestyClientHonoursCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewRestyClient(srv.URL, 0)
	if _, err := client.Get(ctx, "/status", nil); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
