package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"flyte-sync/internal/config"
	"flyte-sync/internal/handlers"
	"flyte-sync/internal/middleware"
	"flyte-sync/internal/observability"
	"flyte-sync/internal/realtime"
	"flyte-sync/internal/rest"
	"flyte-sync/internal/session"
	"flyte-sync/internal/store"
	syncpkg "flyte-sync/internal/sync"
	"flyte-sync/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	bootstrap := session.New(st)
	backend := rest.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, bootstrap.Token)
	reconciler := syncpkg.New(st, backend)
	channel := realtime.New(cfg.BrokerURL, st, realtime.Config{
		HeartbeatInterval: cfg.HeartbeatInterval,
		ReconnectDelay:    cfg.ReconnectDelay,
		HandshakeTimeout:  cfg.HandshakeTimeout,
		OptimisticWrites:  cfg.OptimisticWrites,
	})

	hub := ws.NewHub()

	sessionHandler := handlers.NewSessionHandler(bootstrap)
	syncHandler := handlers.NewSyncHandler(reconciler)
	roomsHandler := handlers.NewRoomsHandler(st, reconciler)
	journeyHandler := handlers.NewJourneyHandler(reconciler)
	realtimeHandler := handlers.NewRealtimeHandler(channel, st)

	roomsWS := ws.NewRoomsStreamHandler(hub, st)
	messagesWS := ws.NewRoomMessagesStreamHandler(hub, st)
	statusWS := ws.NewStatusStreamHandler(hub, channel)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("flyte-sync"))
	router.Use(observability.HTTPMetricsMiddleware())

	requireSession := middleware.RequireSession(func(ctx context.Context) (string, error) {
		user, err := bootstrap.Current(ctx)
		if err != nil {
			return "", err
		}
		return user.ID, nil
	})

	router.GET("/session", sessionHandler.Get)
	router.POST("/session/login", sessionHandler.Login)
	router.DELETE("/session", sessionHandler.Logout)

	router.POST("/sync", requireSession, syncHandler.Run)
	router.GET("/rooms", roomsHandler.List)
	router.GET("/rooms/:room_id/messages", roomsHandler.Messages)
	router.POST("/journeys", requireSession, journeyHandler.Create)

	router.POST("/rooms/:room_id/open", requireSession, realtimeHandler.Open)
	router.DELETE("/rooms/:room_id/open", requireSession, realtimeHandler.Detach)
	router.POST("/rooms/:room_id/messages", requireSession, realtimeHandler.Send)

	router.GET("/ws/rooms", roomsWS.Handle)
	router.GET("/ws/rooms/:room_id", messagesWS.Handle)
	router.GET("/ws/status", statusWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("listening on %s (backend=%s broker=%s)", cfg.ListenAddr, cfg.APIBaseURL, cfg.BrokerURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	channel.Close()
	hub.Close()
	if err := st.Close(); err != nil {
		log.Printf("store close: %v", err)
	}
}
