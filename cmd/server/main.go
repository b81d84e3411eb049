package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/access-refresh/internal/cache"
	"github.com/iliyamo/access-refresh/internal/config"
	"github.com/iliyamo/access-refresh/internal/database"
	"github.com/iliyamo/access-refresh/internal/handler"
	"github.com/iliyamo/access-refresh/internal/middleware"
	"github.com/iliyamo/access-refresh/internal/queue"
	"github.com/iliyamo/access-refresh/internal/repository"
	"github.com/iliyamo/access-refresh/internal/router"
	"github.com/iliyamo/access-refresh/internal/service"
	"github.com/iliyamo/access-refresh/internal/token"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment

	store := config.NewStore()
	cfg := store.Current()

	// SIGHUP swaps in a fresh config snapshot without a restart.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			store.Reload()
		}
	}()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis may be absent: the gateway falls back to the local provider and
	// the rate limiter becomes a no-op.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, using local cache provider")
	}
	gw := cache.NewGateway(cache.NewRedisProvider(rdb), cache.NewMemoryProvider())

	codec := token.NewCodec(cfg.JWTSecret, cfg.JWTIssuer)
	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	geo := service.NewIPAPIGeolocator(cfg.GeoTimeout)
	notifier := queue.NewPublisher(cfg.AMQPURL)

	auth := service.NewAuthService(users, sessions, codec, gw, geo, notifier, cfg)

	e := echo.New()
	router.RegisterRoutes(e, gw)
	router.RegisterAuth(e, handler.NewAuthHandler(auth), codec,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
