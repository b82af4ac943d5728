package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func ctxWithQuery(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	return c
}

func TestParseTimeRange(t *testing.T) {
	cases := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"empty", "", false},
		{"start only", "startTime=2026-08-30T10:00:00Z", false},
		{"full range", "startTime=2026-08-30T10:00:00Z&endTime=2026-08-30T11:00:00Z", false},
		{"malformed start", "startTime=yesterday", true},
		{"malformed end", "endTime=30-08-2026", true},
		{"reversed", "startTime=2026-08-30T11:00:00Z&endTime=2026-08-30T10:00:00Z", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			from, to, err := parseTimeRange(ctxWithQuery(t, tc.query))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if err == nil && !to.IsZero() && to.Before(from) {
				t.Fatal("accepted reversed range")
			}
		})
	}
}

func TestParseTimeRangeValues(t *testing.T) {
	c := ctxWithQuery(t, "startTime=2026-08-30T10:00:00Z")
	from, to, err := parseTimeRange(c)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	want := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	if !from.Equal(want) || !to.IsZero() {
		t.Fatalf("from=%v to=%v", from, to)
	}
}

func TestParseBool(t *testing.T) {
	if v, err := parseBool(ctxWithQuery(t, ""), "acknowledged"); err != nil || v != nil {
		t.Fatalf("absent: %v, %v", v, err)
	}
	v, err := parseBool(ctxWithQuery(t, "acknowledged=true"), "acknowledged")
	if err != nil || v == nil || !*v {
		t.Fatalf("true: %v, %v", v, err)
	}
	v, err = parseBool(ctxWithQuery(t, "acknowledged=0"), "acknowledged")
	if err != nil || v == nil || *v {
		t.Fatalf("zero: %v, %v", v, err)
	}
	if _, err := parseBool(ctxWithQuery(t, "acknowledged=yes"), "acknowledged"); err == nil {
		t.Fatal("accepted 'yes'")
	}
}
