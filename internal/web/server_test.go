// internal/web/server_test.go
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-viewer/internal/device"
	"github.com/tamzrod/modbus-viewer/internal/poller"
	"github.com/tamzrod/modbus-viewer/internal/status"
)

// deviceEndpoint serves the payload to token "abc" and 401 to anyone else.
func deviceEndpoint(t *testing.T) (*httptest.Server, poller.ConnectionConfig) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(device.Payload{
			User: "bob", IP: "10.0.0.5",
			IR: "1,2,3", HR: "10,x", CO: "1,0", DI: "0,1,0,0",
		})
	}))
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	return ts, poller.ConnectionConfig{Host: host, Port: port, Token: "abc"}
}

func newDashboard(t *testing.T, initial poller.ConnectionConfig) (*httptest.Server, *poller.Poller) {
	t.Helper()
	p, err := poller.New(poller.Config{Interval: time.Hour}, poller.NewHTTPFetcher(time.Second), zerolog.Nop())
	if err != nil {
		t.Fatalf("poller.New err=%v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := New(ctx, p, initial, zerolog.Nop())
	ts := httptest.NewServer(s.Handler())

	t.Cleanup(func() {
		p.Stop()
		cancel()
		ts.Close()
	})
	return ts, p
}

func postJSON(t *testing.T, u string, body any) (int, View) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	res, err := http.Post(u, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", u, err)
	}
	defer res.Body.Close()

	var v View
	if err := json.NewDecoder(res.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return res.StatusCode, v
}

func readView(t *testing.T, conn *websocket.Conn) View {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var v View
	if err := conn.ReadJSON(&v); err != nil {
		t.Fatalf("ws read: %v", err)
	}
	return v
}

func TestUI_PrefillsAndEscapes(t *testing.T) {
	ts, _ := newDashboard(t, poller.ConnectionConfig{Host: `10.0.0.5"><script>`, Port: "8000"})

	res, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)

	if !strings.Contains(string(body), `value="8000"`) {
		t.Fatalf("port not prefilled")
	}
	if strings.Contains(string(body), `"><script>`) {
		t.Fatalf("host not escaped")
	}
}

func TestConnect_PushesPanelOverWebSocket(t *testing.T) {
	_, conn := deviceEndpoint(t)
	ts, _ := newDashboard(t, conn)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	if v := readView(t, ws); v.State != "idle" || v.Panel != nil {
		t.Fatalf("initial view: %+v", v)
	}

	code, v := postJSON(t, ts.URL+"/api/connect", conn)
	if code != http.StatusOK || v.State != "polling" || v.Panel == nil {
		t.Fatalf("connect: code=%d view=%+v", code, v)
	}
	if v.Panel.HoldingRegisters[1].Value != "NaN" || v.Panel.HoldingRegisters[1].Valid {
		t.Fatalf("invalid register not marked: %+v", v.Panel.HoldingRegisters)
	}

	pushed := readView(t, ws)
	if pushed.State != "polling" || pushed.Panel == nil || pushed.Panel.User != "bob" {
		t.Fatalf("pushed view: %+v", pushed)
	}
	if len(pushed.Panel.DiscreteInputs) != 4 || !pushed.Panel.DiscreteInputs[1].On {
		t.Fatalf("discrete inputs: %+v", pushed.Panel.DiscreteInputs)
	}
}

func TestConnect_ErrorClearsPanel(t *testing.T) {
	_, conn := deviceEndpoint(t)
	ts, p := newDashboard(t, conn)

	if code, _ := postJSON(t, ts.URL+"/api/connect", conn); code != http.StatusOK {
		t.Fatalf("first connect: %d", code)
	}
	if !p.Running() {
		t.Fatalf("timer not started")
	}

	bad := conn
	bad.Token = "nope"
	code, v := postJSON(t, ts.URL+"/api/connect", bad)
	if code != http.StatusBadGateway {
		t.Fatalf("code=%d", code)
	}
	if v.State != "errored" || v.Panel != nil || !strings.Contains(v.Error, "401") {
		t.Fatalf("view: %+v", v)
	}
	if p.Running() {
		t.Fatalf("timer must be cancelled after failure")
	}
}

func TestConnect_SameParamsKeepsTimer(t *testing.T) {
	_, conn := deviceEndpoint(t)
	ts, p := newDashboard(t, conn)

	postJSON(t, ts.URL+"/api/connect", conn)
	postJSON(t, ts.URL+"/api/connect", conn)

	s := p.Snapshot()
	if !p.Running() || s.Fetches != 2 {
		t.Fatalf("running=%v fetches=%d", p.Running(), s.Fetches)
	}
}

func TestStopAndState(t *testing.T) {
	_, conn := deviceEndpoint(t)
	ts, p := newDashboard(t, conn)

	postJSON(t, ts.URL+"/api/connect", conn)

	code, v := postJSON(t, ts.URL+"/api/stop", nil)
	if code != http.StatusOK || v.State != "idle" {
		t.Fatalf("stop: code=%d view=%+v", code, v)
	}
	if p.Running() {
		t.Fatalf("timer still live")
	}

	res, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	var got View
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State != "idle" || got.Fetches != 1 {
		t.Fatalf("state view: %+v", got)
	}
}

func TestHealth(t *testing.T) {
	ts, _ := newDashboard(t, poller.ConnectionConfig{})

	res, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	var r status.Report
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.HealthCode != status.HealthUnknown {
		t.Fatalf("report: %+v", r)
	}
}

func TestMethods(t *testing.T) {
	ts, _ := newDashboard(t, poller.ConnectionConfig{})

	res, err := http.Get(ts.URL + "/api/connect")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("code=%d", res.StatusCode)
	}

	res, err = http.Post(ts.URL+"/api/connect", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("code=%d", res.StatusCode)
	}
}
