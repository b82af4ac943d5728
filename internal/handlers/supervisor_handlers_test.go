package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/pbx"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/supervisor"
)

func TestWriteResultStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name string
		code pbx.Code
		want int
	}{
		{"no active pbx", pbx.CodeNoActivePBX, http.StatusConflict},
		{"not connected", pbx.CodeNotConnected, http.StatusServiceUnavailable},
		{"unreachable", pbx.CodeUnreachable, http.StatusServiceUnavailable},
		{"timeout", pbx.CodeTimeout, http.StatusServiceUnavailable},
		{"tls", pbx.CodeTLS, http.StatusServiceUnavailable},
		{"unauthorized", pbx.CodeUnauthorized, http.StatusServiceUnavailable},
		{"vendor", pbx.CodeVendor, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			writeResult(c, supervisor.Result{
				Success: false,
				Error:   &supervisor.ResultError{Code: string(tc.code), Message: "boom"},
			})
			if w.Code != tc.want {
				t.Fatalf("status %d, want %d", w.Code, tc.want)
			}
			var body struct {
				Success bool `json:"success"`
				Error   *struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("body: %v", err)
			}
			if body.Success || body.Error == nil || body.Error.Code != string(tc.code) {
				t.Fatalf("envelope: %s", w.Body.String())
			}
		})
	}
}

func TestWriteResultSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	writeResult(c, supervisor.Result{Success: true, Data: map[string]any{"count": 1}})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var body struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if !body.Success || body.Data["count"] != float64(1) {
		t.Fatalf("envelope: %s", w.Body.String())
	}
}
