// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/openarena/muster/internal/auth"
	"github.com/openarena/muster/internal/cache"
	"github.com/openarena/muster/internal/coordinator"
	"github.com/openarena/muster/internal/database"
	"github.com/openarena/muster/internal/handlers"
	"github.com/openarena/muster/internal/middleware"
)

func main() {
	auth.Init()
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := cache.ConnectRedis(); err != nil {
		// The journal is best-effort; the room engine runs without it.
		logger.Warnf("redis unavailable, journaling disabled: %v", err)
	}

	srv := handlers.NewRoomServer(logger)
	srv.Coordinator.SetArchiver(database.Archive{})

	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)

	// user endpoints
	mux.HandleFunc("/user/create", handlers.CreateUserHandler)
	mux.HandleFunc("/user/login", handlers.LoginHandler)

	// room control surface
	mux.Handle("/room/create", logged(http.HandlerFunc(handlers.CreateRoomHandler(srv))))
	mux.Handle("/rooms", logged(http.HandlerFunc(handlers.ListRoomsHandler(srv))))
	mux.Handle("/room/code/", logged(http.HandlerFunc(handlers.RoomByCodeHandler(srv))))

	// room subscription websocket
	mux.Handle("/room/ws/", logged(http.HandlerFunc(handlers.RoomWSHandler(logger, srv))))

	// everything else under /room/{id}
	mux.Handle("/room/", logged(http.HandlerFunc(handlers.RoomHandler(srv))))

	// deadline enforcement runs regardless of client connectivity
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sweepInterval := coordinator.DefaultSweepInterval
	if v := os.Getenv("ROOM_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			sweepInterval = d
		}
	}
	sched := coordinator.NewExpiryScheduler(srv.Coordinator, sweepInterval, logger)
	go sched.Run(ctx)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	httpSrv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Infof("Running on %s", addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server exited: %v", err)
	}
}
