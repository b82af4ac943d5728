package main

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/config"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/middleware"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/pbx"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/store"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/supervisor"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/utils"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/ws"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := utils.NewLogger("")
	registry := pbx.NewRegistry()
	svc, err := supervisor.New(context.Background(), registry, st, st, st, logger)
	if err != nil {
		t.Fatalf("supervisor: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	auth := middleware.NewAuthService("test-secret", time.Hour)
	rl := middleware.NewRateLimiter(rate.Every(time.Millisecond), 100)
	t.Cleanup(func() { rl.Stop() })

	a := &app{
		cfg:         &config.Config{},
		logger:      logger,
		store:       st,
		registry:    registry,
		svc:         svc,
		authService: auth,
		rateLimiter: rl,
	}
	a.hub = ws.NewHub(registry, auth, time.Hour, nil, logger)
	return a
}

// The route table is the contract the dashboard front-end is built against;
// path drift breaks clients without failing any handler test.
func TestRouteTableMatchesClientContract(t *testing.T) {
	r := setupRouter(newTestApp(t))

	routes := map[string]bool{}
	for _, ri := range r.Routes() {
		routes[ri.Method+" "+ri.Path] = true
	}

	want := []string{
		"POST /api/auth/login",
		"GET /api/system/health",
		"GET /api/supervisor/team/status",
		"GET /api/supervisor/calls/active",
		"GET /api/supervisor/metrics/team",
		"GET /api/supervisor/metrics/quality",
		"GET /api/supervisor/alerts",
		"POST /api/supervisor/alerts",
		"POST /api/supervisor/alerts/:id/acknowledge",
		"GET /api/supervisor/settings",
		"POST /api/supervisor/settings",
		"POST /api/pbx/maintenance",
		"GET /api/pbx/:vendor/status",
		"GET /api/pbx/:vendor/metrics",
		"GET /api/pbx/:vendor/logs",
		"GET /ws",
	}
	for _, route := range want {
		if !routes[route] {
			t.Fatalf("missing route %q", route)
		}
	}

	for _, stale := range []string{
		"GET /api/supervisor/team-status",
		"GET /api/supervisor/active-calls",
		"PUT /api/supervisor/settings",
	} {
		if routes[stale] {
			t.Fatalf("stale route %q still registered", stale)
		}
	}
}
