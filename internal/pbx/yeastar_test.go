package pbx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
)

const yeastarInfoBody = `{"errcode":0,"errmsg":"SUCCESS","firmware_version":"83.15","uptime":7200,"cpu_utilization":22.1,"memory_utilization":48.3,"disk_utilization":12.0,"extension_total":20,"extension_registered":17,"queue_total":3,"active_call_count":5}`

func yeastarInfoOK(mux *http.ServeMux) {
	mux.HandleFunc("/openapi/v1.0/system/information", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(yeastarInfoBody))
	})
}

func fakeYeastar(t *testing.T, mux *http.ServeMux) (*Yeastar, models.PBXConnectionConfig) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := models.PBXConnectionConfig{
		Vendor:    models.VendorYeastar,
		ServerURL: srv.URL,
		APIKey:    "test-key",
		Enabled:   true,
	}
	a := NewYeastar(Options{PollInterval: time.Hour}, nil)
	t.Cleanup(a.Disconnect)
	return a, cfg
}

func TestYeastarRequiresConnect(t *testing.T) {
	a := NewYeastar(Options{}, nil)
	_, err := a.CallLogs(context.Background(), time.Time{}, time.Time{})
	if !IsCode(err, CodeNotConnected) {
		t.Fatalf("got %v, want not_connected", err)
	}
}

// Yeastar reports failures as errcode != 0 inside an HTTP 200 body; that
// must surface as a vendor error, not success.
func TestYeastarErrcodeIsVendorError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/openapi/v1.0/system/information", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":10004,"errmsg":"invalid token"}`))
	})
	a, cfg := fakeYeastar(t, mux)

	err := a.Connect(context.Background(), cfg)
	if !IsCode(err, CodeVendor) {
		t.Fatalf("got %v, want vendor_error", err)
	}
	if st := a.State(); st.Status != StatusError {
		t.Fatalf("state after errcode failure: %+v", st)
	}
}

func TestYeastarMetrics(t *testing.T) {
	mux := http.NewServeMux()
	yeastarInfoOK(mux)
	mux.HandleFunc("/openapi/v1.0/cdr/statistics", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":0,"total_count":120,"answered_count":100,"no_answer_count":20,"avg_talk_duration":84.5,"avg_ring_duration":6.1}`))
	})
	a, cfg := fakeYeastar(t, mux)
	if err := a.Connect(context.Background(), cfg); err != nil {
		t.Fatalf("connect: %v", err)
	}

	snap, err := a.Metrics(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if snap.CPUPct != 22.1 || snap.Version != "83.15" || snap.ActiveCalls != 5 {
		t.Fatalf("host metrics: %+v", snap)
	}
	if snap.Calls.TotalCalls != 120 || snap.Calls.AnsweredCalls != 100 {
		t.Fatalf("call metrics: %+v", snap.Calls)
	}
}

func TestYeastarCDRNormalization(t *testing.T) {
	start := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	yeastarInfoOK(mux)
	mux.HandleFunc("/openapi/v1.0/cdr/search", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("start_time"); got != strconv.FormatInt(start.Unix(), 10) {
			t.Errorf("start_time = %q, want epoch seconds", got)
		}
		w.Write([]byte(`{"errcode":0,"cdr_list":[
			{"id":"y1","call_from":"2001","call_to":"+4411","call_type":"Outbound","disposition":"ANSWERED","status":"answered","talk_duration":45,"time_start":` + strconv.FormatInt(start.Unix(), 10) + `,"trunk":"sip-out","cost":0.08},
			{"id":"y2","call_from":"+4422","call_to":"2002","call_type":"Inbound","disposition":"NO ANSWER"},
			{"id":"y3","call_from":"2001","call_to":"2002","call_type":"Internal","disposition":"ANSWERED"},
			{"id":"y4","call_from":"2001","call_to":"999","call_type":"Outbound","disposition":"FAILED"}
		]}`))
	})
	a, cfg := fakeYeastar(t, mux)
	if err := a.Connect(context.Background(), cfg); err != nil {
		t.Fatalf("connect: %v", err)
	}

	calls, err := a.CallLogs(context.Background(), start, time.Time{})
	if err != nil {
		t.Fatalf("call logs: %v", err)
	}
	wantTypes := []models.CallType{models.CallOutbound, models.CallMissed, models.CallInternal, models.CallFailed}
	if len(calls) != len(wantTypes) {
		t.Fatalf("got %d calls", len(calls))
	}
	for i, want := range wantTypes {
		if calls[i].Type != want {
			t.Errorf("call %s: type %q, want %q", calls[i].ID, calls[i].Type, want)
		}
	}
	if !calls[0].StartedAt.Equal(start) {
		t.Errorf("epoch start not converted: %v", calls[0].StartedAt)
	}
}

func TestYeastarConferenceRooms(t *testing.T) {
	mux := http.NewServeMux()
	yeastarInfoOK(mux)
	mux.HandleFunc("/openapi/v1.0/conference/list", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":0,"conference_list":[{"number":"6300","name":"Daily","member_count":4,"locked_enable":1}]}`))
	})
	a, cfg := fakeYeastar(t, mux)
	if err := a.Connect(context.Background(), cfg); err != nil {
		t.Fatalf("connect: %v", err)
	}

	rooms, err := a.ConferenceRooms(context.Background())
	if err != nil {
		t.Fatalf("conference rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Participants != 4 || !rooms[0].Locked {
		t.Fatalf("rooms: %+v", rooms)
	}
}

func TestYeastarMaintenanceChecksEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	yeastarInfoOK(mux)
	mux.HandleFunc("/openapi/v1.0/system/clear_cache", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("maintenance method = %s", r.Method)
		}
		w.Write([]byte(`{"errcode":500,"errmsg":"busy"}`))
	})
	a, cfg := fakeYeastar(t, mux)
	if err := a.Connect(context.Background(), cfg); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := a.ClearCache(context.Background()); !IsCode(err, CodeVendor) {
		t.Fatalf("got %v, want vendor_error", err)
	}
}
