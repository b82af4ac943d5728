package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/pbx"
)

// fakeAdapter is just enough adapter for hub tests: a broker to publish
// into and canned metrics.
type fakeAdapter struct {
	vendor  models.PBXVendor
	broker  *pbx.Broker
	metrics models.MetricsSnapshot
}

func newFakeAdapter(v models.PBXVendor) *fakeAdapter {
	return &fakeAdapter{vendor: v, broker: pbx.NewBroker()}
}

func (f *fakeAdapter) Vendor() models.PBXVendor { return f.vendor }
func (f *fakeAdapter) Connect(ctx context.Context, cfg models.PBXConnectionConfig) error {
	return nil
}
func (f *fakeAdapter) Disconnect()         {}
func (f *fakeAdapter) State() pbx.State    { return pbx.State{Status: pbx.StatusConnected} }
func (f *fakeAdapter) Events() *pbx.Broker { return f.broker }
func (f *fakeAdapter) SystemStatus(ctx context.Context) models.SystemStatus {
	return models.SystemStatus{Connected: true}
}
func (f *fakeAdapter) Metrics(ctx context.Context, from, to time.Time) (*models.MetricsSnapshot, error) {
	snap := f.metrics
	return &snap, nil
}
func (f *fakeAdapter) CallLogs(ctx context.Context, from, to time.Time) ([]models.CallRecord, error) {
	return nil, nil
}
func (f *fakeAdapter) SystemLogs(ctx context.Context, from, to time.Time) ([]models.SystemLogEntry, error) {
	return nil, nil
}
func (f *fakeAdapter) Extensions(ctx context.Context) ([]models.Extension, error) { return nil, nil }
func (f *fakeAdapter) QueueStatus(ctx context.Context) ([]models.QueueStatus, error) {
	return nil, nil
}
func (f *fakeAdapter) Recordings(ctx context.Context, from, to time.Time) ([]models.Recording, error) {
	return nil, nil
}
func (f *fakeAdapter) Trunks(ctx context.Context) ([]models.Trunk, error) { return nil, nil }
func (f *fakeAdapter) ClearCache(ctx context.Context) error               { return nil }
func (f *fakeAdapter) RestartServices(ctx context.Context) error          { return nil }
func (f *fakeAdapter) EmergencyStop(ctx context.Context) error            { return nil }

// staticVerifier accepts exactly one token.
type staticVerifier struct{ token string }

func (v staticVerifier) VerifyToken(token string) (string, error) {
	if token != v.token {
		return "", errors.New("bad token")
	}
	return "tester", nil
}

func startTestHub(t *testing.T, adapters ...*fakeAdapter) (*Hub, string) {
	return startTestHubWithOrigins(t, nil, adapters...)
}

func startTestHubWithOrigins(t *testing.T, origins []string, adapters ...*fakeAdapter) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := pbx.NewRegistry()
	for _, a := range adapters {
		reg.Register(a)
	}
	hub := NewHub(reg, staticVerifier{token: "good-token"}, time.Hour, origins, nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	r := gin.New()
	r.GET("/ws", hub.HandleWebSocket())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandshakeAckAndClientCount(t *testing.T) {
	hub, url := startTestHub(t, newFakeAdapter(models.VendorThreeCX))

	conn := dial(t, url+"?token=good-token&pbx=threecx")
	frame := readFrame(t, conn)
	if frame["type"] != "connection" || frame["status"] != "connected" || frame["pbx"] != "threecx" {
		t.Fatalf("ack frame: %+v", frame)
	}
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestRejectsBadToken(t *testing.T) {
	hub, url := startTestHub(t, newFakeAdapter(models.VendorThreeCX))

	conn := dial(t, url+"?token=wrong&pbx=threecx")
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.ClosePolicyViolation {
		t.Fatalf("got %v, want policy violation close", err)
	}
	if hub.ClientCount() != 0 {
		t.Fatal("rejected connection was registered")
	}
}

func TestRejectsUnknownVendor(t *testing.T) {
	_, url := startTestHub(t, newFakeAdapter(models.VendorThreeCX))

	conn := dial(t, url+"?token=good-token&pbx=asterisk")
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.ClosePolicyViolation {
		t.Fatalf("got %v, want policy violation close", err)
	}
}

func TestOriginAllowlist(t *testing.T) {
	_, url := startTestHubWithOrigins(t, []string{"https://dash.example"}, newFakeAdapter(models.VendorThreeCX))

	// A browser presenting a foreign origin is refused before the upgrade.
	hdr := http.Header{"Origin": []string{"https://evil.example"}}
	if conn, resp, err := websocket.DefaultDialer.Dial(url+"?token=good-token&pbx=threecx", hdr); err == nil {
		conn.Close()
		t.Fatal("handshake succeeded from a disallowed origin")
	} else if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("handshake response: %+v (err %v)", resp, err)
	}

	hdr = http.Header{"Origin": []string{"https://dash.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token=good-token&pbx=threecx", hdr)
	if err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if frame := readFrame(t, conn); frame["type"] != "connection" {
		t.Fatalf("ack frame: %+v", frame)
	}
}

func TestVendorScopedBroadcast(t *testing.T) {
	threecx := newFakeAdapter(models.VendorThreeCX)
	yeastar := newFakeAdapter(models.VendorYeastar)
	hub, url := startTestHub(t, threecx, yeastar)

	connA := dial(t, url+"?token=good-token&pbx=threecx")
	connB := dial(t, url+"?token=good-token&pbx=yeastar")
	readFrame(t, connA) // ack
	readFrame(t, connB) // ack
	waitForClients(t, hub, 2)

	threecx.broker.Publish(pbx.Event{
		Type: pbx.EventCallLog, Vendor: models.VendorThreeCX,
		Call: &models.CallRecord{ID: "call-3cx"},
	})
	yeastar.broker.Publish(pbx.Event{
		Type: pbx.EventSystemLog, Vendor: models.VendorYeastar,
		Log: &models.SystemLogEntry{Message: "yeastar-log"},
	})

	frameA := readFrame(t, connA)
	if frameA["type"] != "callLog" {
		t.Fatalf("threecx client got %+v", frameA)
	}
	log := frameA["log"].(map[string]any)
	if log["id"] != "call-3cx" {
		t.Fatalf("threecx payload: %+v", log)
	}

	frameB := readFrame(t, connB)
	if frameB["type"] != "systemLog" {
		t.Fatalf("yeastar client got %+v, want its own vendor's event", frameB)
	}
}

func TestErrorEventsForwardAsErrorFrames(t *testing.T) {
	threecx := newFakeAdapter(models.VendorThreeCX)
	hub, url := startTestHub(t, threecx)

	conn := dial(t, url+"?token=good-token&pbx=threecx")
	readFrame(t, conn) // ack
	waitForClients(t, hub, 1)

	threecx.broker.Publish(pbx.Event{Type: pbx.EventError, Vendor: models.VendorThreeCX, Err: "poll failed"})
	frame := readFrame(t, conn)
	if frame["type"] != "error" || frame["message"] != "poll failed" {
		t.Fatalf("error frame: %+v", frame)
	}
}
