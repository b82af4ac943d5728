package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/config"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/handlers"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/middleware"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/notify"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/pbx"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/store"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/supervisor"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/utils"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/version"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/ws"
)

// ginLogWriter adapts utils.Logger to io.Writer for Gin's request log.
type ginLogWriter struct{ l *utils.Logger }

func (w ginLogWriter) Write(p []byte) (int, error) {
	w.l.Write(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

type app struct {
	cfg         *config.Config
	logger      *utils.Logger
	store       *store.Store
	registry    *pbx.Registry
	svc         *supervisor.Service
	hub         *ws.Hub
	authService *middleware.AuthService
	rateLimiter *middleware.RateLimiter
}

func main() {
	// Always run Gin in release mode; debugging is controlled via logs.
	gin.SetMode(gin.ReleaseMode)

	var configPath string
	for i := 1; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "--config", "-c":
			if i+1 < len(os.Args) {
				configPath = strings.TrimSpace(os.Args[i+1])
				i++
			}
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := utils.NewLogger(cfg.Log.File)
	defer logger.Close()
	logger.Writef("voipmon %s starting", version.String())

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close()
	if err := st.SeedAdmin(context.Background(), cfg.Auth.AdminPassword); err != nil {
		log.Fatalf("seeding admin user: %v", err)
	}

	opts := pbx.Options{
		PollInterval: time.Duration(cfg.Polling.AdapterIntervalSec) * time.Second,
		HTTPTimeout:  time.Duration(cfg.Polling.HTTPTimeoutSec) * time.Second,
	}
	registry := pbx.NewRegistry()
	registry.Register(pbx.NewThreeCX(opts, logger))
	registry.Register(pbx.NewYeastar(opts, logger))

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 30*time.Second)
	if err := registry.ConnectActive(connectCtx, st); err != nil {
		// Unreachable PBXes are reported per vendor; the service still
		// serves configuration and auth endpoints.
		logger.Writef("initial PBX connect: %v", err)
	}
	cancelConnect()

	svc, err := supervisor.New(context.Background(), registry, st, st, st, logger)
	if err != nil {
		log.Fatalf("supervisor service: %v", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		registry: registry,
		svc:      svc,
		authService: middleware.NewAuthService(cfg.Auth.JWTSecret,
			time.Duration(cfg.Auth.TokenTTLHours)*time.Hour),
		rateLimiter: middleware.NewRateLimiter(rate.Every(time.Minute/100), 10),
	}
	a.hub = ws.NewHub(registry, a.authService,
		time.Duration(cfg.Polling.WSMetricsIntervalSec)*time.Second,
		cfg.Server.AllowedOrigins, logger)
	go a.hub.Run()

	if cfg.Alerts.WebhookURL != "" {
		notifier := notify.NewWebhookNotifier(cfg.Alerts.WebhookURL, logger)
		go notifier.Watch(svc.Events())
	}

	r := setupRouter(a)
	srv := &http.Server{
		Addr:           ":" + strconv.Itoa(cfg.Server.Port),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if cfg.Server.TLSCert != "" {
			log.Printf("Starting HTTPS server on port %d", cfg.Server.Port)
			if err := srv.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey); err != nil && err != http.ErrServerClosed {
				log.Fatalf("HTTPS server failed to start: %v", err)
			}
			return
		}
		log.Printf("Starting server on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	a.hub.Stop()
	a.svc.Close()
	a.registry.Shutdown()
	a.rateLimiter.Stop()

	// Give server 5 seconds to finish handling requests
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Write("voipmon stopped")
	log.Println("Server exited")
}

func setupRouter(a *app) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithWriter(ginLogWriter{a.logger}))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(a.rateLimiter.Middleware())

	authHandlers := handlers.NewAuthHandlers(a.store, a.authService)
	supHandlers := handlers.NewSupervisorHandlers(a.svc)
	pbxHandlers := handlers.NewPBXHandlers(a.registry)
	sysHandlers := handlers.NewSystemHandlers(a.hub)
	adminHandlers := handlers.NewAdminHandlers(a.store)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes
	r.POST("/api/auth/login", authHandlers.Login)

	// API routes (require token authentication)
	api := r.Group("/api")
	api.Use(a.authService.RequireAPIAuth())
	{
		api.GET("/system/health", sysHandlers.Health)

		sup := api.Group("/supervisor")
		sup.Use(middleware.RequireRole(string(store.RoleSupervisor), string(store.RoleAdmin)))
		{
			sup.GET("/team/status", supHandlers.TeamStatus)
			sup.GET("/calls/active", supHandlers.ActiveCalls)
			sup.GET("/metrics/team", supHandlers.TeamMetrics)
			sup.GET("/metrics/quality", supHandlers.QualityMetrics)
			sup.GET("/alerts", supHandlers.Alerts)
			sup.POST("/alerts", supHandlers.CreateAlert)
			sup.POST("/alerts/:id/acknowledge", supHandlers.AcknowledgeAlert)
			sup.GET("/settings", supHandlers.GetSettings)
			sup.POST("/settings", supHandlers.UpdateSettings)
		}

		pbxGroup := api.Group("/pbx")
		{
			pbxGroup.POST("/maintenance", middleware.RequireRole(string(store.RoleAdmin)), pbxHandlers.Maintenance)
			vendor := pbxGroup.Group("/:vendor")
			{
				vendor.GET("/status", pbxHandlers.Status)
				vendor.GET("/metrics", pbxHandlers.Metrics)
				vendor.GET("/calls", pbxHandlers.CallLogs)
				vendor.GET("/logs", pbxHandlers.SystemLogs)
				vendor.GET("/extensions", pbxHandlers.Extensions)
				vendor.GET("/queues", pbxHandlers.Queues)
				vendor.GET("/recordings", pbxHandlers.Recordings)
				vendor.GET("/trunks", pbxHandlers.Trunks)
				vendor.GET("/dids", pbxHandlers.DIDNumbers)
				vendor.GET("/conferences", pbxHandlers.ConferenceRooms)
			}
		}

		admin := api.Group("/admin")
		admin.Use(middleware.RequireRole(string(store.RoleAdmin)))
		{
			admin.GET("/pbx/configs", adminHandlers.ListConfigs)
			admin.POST("/pbx/configs", adminHandlers.UpsertConfig)
			admin.POST("/pbx/configs/:vendor/activate", adminHandlers.ActivateConfig)
		}
	}

	// WebSocket endpoint (token authenticated in the handshake)
	r.GET("/ws", a.hub.HandleWebSocket())

	return r
}
