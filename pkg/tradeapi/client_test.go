package tradeapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
)

// recordedRequest captures what the mocked backend received.
type recordedRequest struct {
	method string
	path   string
	query  map[string]string
	body   []byte
	ctype  string
}

func newBackend(t *testing.T, status int, body string) (*httptest.Server, *recordedRequest, *int32) {
	t.Helper()
	rec := &recordedRequest{}
	var (
		mu    sync.Mutex
		calls int32
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.body = raw
		rec.ctype = r.Header.Get("Content-Type")
		rec.query = map[string]string{}
		for k := range r.URL.Query() {
			rec.query[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec, &calls
}

func assertJSONEqual(t *testing.T, got []byte, want string) {
	t.Helper()
	var g, w any
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("got invalid json %s: %v", got, err)
	}
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("want invalid json %s: %v", want, err)
	}
	if !reflect.DeepEqual(g, w) {
		t.Fatalf("json mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestGetRSIPostsCloseAndPeriod(t *testing.T) {
	srv, rec, calls := newBackend(t, http.StatusOK, `{"rsi":[30,45,60]}`)
	client := New(srv.URL+"/api/v1", 0)

	out, err := client.GetRSI(context.Background(), []float64{1, 2, 3}, 14)
	if err != nil {
		t.Fatalf("GetRSI: %v", err)
	}
	assertJSONEqual(t, out, `{"rsi":[30,45,60]}`)

	if rec.method != http.MethodPost || rec.path != "/api/v1/indicators/rsi" {
		t.Fatalf("unexpected request %s %s", rec.method, rec.path)
	}
	if rec.ctype != "application/json" {
		t.Fatalf("unexpected content type %q", rec.ctype)
	}
	assertJSONEqual(t, rec.body, `{"close":[1,2,3],"period":14}`)
	if *calls != 1 {
		t.Fatalf("expected one request, got %d", *calls)
	}
}

func TestGetOHLCAppliesDefaultTimeframe(t *testing.T) {
	srv, rec, _ := newBackend(t, http.StatusOK, `{"data":[]}`)
	client := New(srv.URL+"/api/v1", 0)

	if _, err := client.GetOHLC(context.Background(), "BTCUSD", ""); err != nil {
		t.Fatalf("GetOHLC: %v", err)
	}
	if rec.method != http.MethodGet || rec.path != "/api/v1/price" {
		t.Fatalf("unexpected request %s %s", rec.method, rec.path)
	}
	want := map[string]string{"symbol": "BTCUSD", "timeframe": "1h"}
	if !reflect.DeepEqual(rec.query, want) {
		t.Fatalf("unexpected query %#v", rec.query)
	}
}

func TestGetOHLCPassesExplicitTimeframe(t *testing.T) {
	srv, rec, _ := newBackend(t, http.StatusOK, `{"data":[]}`)
	client := New(srv.URL, 0)

	if _, err := client.GetOHLC(context.Background(), "BTCUSD", "4h"); err != nil {
		t.Fatalf("GetOHLC: %v", err)
	}
	if rec.query["timeframe"] != "4h" {
		t.Fatalf("expected timeframe=4h, got %q", rec.query["timeframe"])
	}
}

func TestGetOHLCConfiguredDefaultTimeframe(t *testing.T) {
	srv, rec, _ := newBackend(t, http.StatusOK, `{}`)
	client := New(srv.URL, 0, WithDefaultTimeframe("15m"))

	if _, err := client.GetOHLC(context.Background(), "ETHUSD", ""); err != nil {
		t.Fatalf("GetOHLC: %v", err)
	}
	if rec.query["timeframe"] != "15m" {
		t.Fatalf("expected configured timeframe, got %q", rec.query["timeframe"])
	}
}

func TestGetRSIStrategyWrapsValue(t *testing.T) {
	srv, rec, _ := newBackend(t, http.StatusOK, `{"signals":[]}`)
	client := New(srv.URL, 0)

	out, err := client.GetRSIStrategy(context.Background(), map[string]any{"value": 70})
	if err != nil {
		t.Fatalf("GetRSIStrategy: %v", err)
	}
	assertJSONEqual(t, out, `{"signals":[]}`)
	if rec.method != http.MethodPost || rec.path != "/strategies/rsi-strategy" {
		t.Fatalf("unexpected request %s %s", rec.method, rec.path)
	}
	assertJSONEqual(t, rec.body, `{"rsi":{"value":70}}`)
}

func TestGetRSIStrategyForwardsRawMessage(t *testing.T) {
	srv, rec, _ := newBackend(t, http.StatusOK, `{}`)
	client := New(srv.URL, 0)

	if _, err := client.GetRSIStrategy(context.Background(), json.RawMessage(`[12.5,80]`)); err != nil {
		t.Fatalf("GetRSIStrategy: %v", err)
	}
	assertJSONEqual(t, rec.body, `{"rsi":[12.5,80]}`)
}

func TestServerErrorPropagatesForAllOperations(t *testing.T) {
	ops := map[string]func(*Client) (json.RawMessage, error){
		"rsi": func(c *Client) (json.RawMessage, error) {
			return c.GetRSI(context.Background(), []float64{1, 2, 3}, 14)
		},
		"ohlc": func(c *Client) (json.RawMessage, error) {
			return c.GetOHLC(context.Background(), "BTCUSD", "")
		},
		"strategy": func(c *Client) (json.RawMessage, error) {
			return c.GetRSIStrategy(context.Background(), map[string]any{"value": 70})
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			srv, _, calls := newBackend(t, http.StatusInternalServerError, `{"detail":"Error fetching data"}`)
			out, err := op(New(srv.URL, 0))
			if err == nil {
				t.Fatalf("expected error, got %s", out)
			}
			if out != nil {
				t.Fatalf("expected no value on error, got %s", out)
			}
			if !IsStatus(err, http.StatusInternalServerError) {
				t.Fatalf("expected StatusError 500, got %v", err)
			}
			var se *StatusError
			if errors.As(err, &se) && se.Message != "Error fetching data" {
				t.Fatalf("unexpected message %q", se.Message)
			}
			if *calls != 1 {
				t.Fatalf("expected exactly one request, got %d", *calls)
			}
		})
	}
}

func TestNonJSONSuccessIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0).Status(context.Background())
	if !errors.Is(err, ErrNotJSON) {
		t.Fatalf("expected ErrNotJSON, got %v", err)
	}
}

func TestNetworkErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := New(url, 0).GetRSI(context.Background(), []float64{1}, 14); err == nil {
		t.Fatalf("expected network error")
	}
}

func TestSupplementalEndpoints(t *testing.T) {
	cases := []struct {
		name   string
		call   func(*Client) (json.RawMessage, error)
		method string
		path   string
		body   string
	}{
		{
			name:   "status",
			call:   func(c *Client) (json.RawMessage, error) { return c.Status(context.Background()) },
			method: http.MethodGet,
			path:   "/status",
		},
		{
			name:   "strategies",
			call:   func(c *Client) (json.RawMessage, error) { return c.ListStrategies(context.Background()) },
			method: http.MethodGet,
			path:   "/strategies/list",
		},
		{
			name: "ema",
			call: func(c *Client) (json.RawMessage, error) {
				return c.GetIndicator(context.Background(), "EMA", []float64{1, 2}, 2)
			},
			method: http.MethodPost,
			path:   "/indicators/ema",
			body:   `{"values":[1,2],"period":2}`,
		},
		{
			name: "atr",
			call: func(c *Client) (json.RawMessage, error) {
				return c.GetATR(context.Background(), []float64{3, 4}, []float64{1, 2}, []float64{2, 3}, 14)
			},
			method: http.MethodPost,
			path:   "/indicators/atr",
			body:   `{"high":[3,4],"low":[1,2],"close":[2,3],"period":14}`,
		},
		{
			name: "backtest",
			call: func(c *Client) (json.RawMessage, error) {
				return c.Backtest(context.Background(), BacktestRequest{Ticker: "QQQ", StrategyType: "rsi", Commission: float64Ptr(0.001)})
			},
			method: http.MethodPost,
			path:   "/strategies/backtest",
			body:   `{"ticker":"QQQ","strategy_type":"rsi","comission":0.001}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, rec, _ := newBackend(t, http.StatusOK, `{"status":"ok"}`)
			if _, err := tc.call(New(srv.URL, 0)); err != nil {
				t.Fatalf("call: %v", err)
			}
			if rec.method != tc.method || rec.path != tc.path {
				t.Fatalf("unexpected request %s %s", rec.method, rec.path)
			}
			if tc.body != "" {
				assertJSONEqual(t, rec.body, tc.body)
			}
		})
	}
}

func TestGetIndicatorRejectsOtherNames(t *testing.T) {
	client := New("http://unused.invalid", 0, WithHTTPClient(stubHTTPClient{}))
	for _, name := range []string{"../rsi", "rsi", "atr", ""} {
		if _, err := client.GetIndicator(context.Background(), name, []float64{1, 2}, 2); err == nil {
			t.Fatalf("expected error for indicator %q", name)
		}
	}
}

func TestBacktestSendsExplicitZeroValues(t *testing.T) {
	srv, rec, _ := newBackend(t, http.StatusOK, `{"trades":[]}`)

	req := BacktestRequest{
		Ticker:       "QQQ",
		StrategyType: "rsi",
		Commission:   float64Ptr(0),
		Oversold:     float64Ptr(0),
	}
	if _, err := New(srv.URL, 0).Backtest(context.Background(), req); err != nil {
		t.Fatalf("Backtest: %v", err)
	}
	assertJSONEqual(t, rec.body, `{"ticker":"QQQ","strategy_type":"rsi","comission":0,"oversold":0}`)
}

func float64Ptr(v float64) *float64 { return &v }

func TestConcurrentCallsAreIndependent(t *testing.T) {
	srv, _, calls := newBackend(t, http.StatusOK, `{"ok":true}`)
	client := New(srv.URL, 0)

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := client.GetOHLC(context.Background(), "BTCUSD", "")
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("GetOHLC: %v", err)
		}
	}
	if got := atomic.LoadInt32(calls); got != n {
		t.Fatalf("expected %d requests, got %d", n, got)
	}
}
