package main // Entry point package

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/nomadica/circuit-sync/internal/config"
	"github.com/nomadica/circuit-sync/internal/database"
	"github.com/nomadica/circuit-sync/internal/fetcher"
	"github.com/nomadica/circuit-sync/internal/handler"
	"github.com/nomadica/circuit-sync/internal/notify"
	"github.com/nomadica/circuit-sync/internal/queue"
	"github.com/nomadica/circuit-sync/internal/repository"
	"github.com/nomadica/circuit-sync/internal/router"
	"github.com/nomadica/circuit-sync/internal/service"
	"github.com/nomadica/circuit-sync/internal/syncer"
)

func main() {
	// Load .env if present; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// Redis is optional: without it the dedup store falls back to an
	// in-process one and the public routes skip caching and limiting.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, using in-memory dedup and uncached public routes")
	}

	circuits := repository.NewCircuitRepo(db)
	departures := repository.NewDepartureRepo(db)
	sources := repository.NewSourceRepo(db)
	snapshots := repository.NewSnapshotRepo(db)
	watchlists := repository.NewWatchlistRepo(db)

	var dedup notify.DedupStore
	if rdb != nil {
		dedup = notify.NewRedisDedup(rdb)
	}
	dispatcher := notify.NewDispatcher(watchlists, dedup, service.NewPublisher(), config.LoadDedupConfig())

	engine := syncer.NewOrchestrator(
		fetcher.New(config.LoadFetchConfig()),
		sources, snapshots, departures, dispatcher,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Periodic syncs run beside the HTTP server. Run returns once the
	// context is cancelled and in-flight syncs have drained.
	sched := syncer.NewScheduler(sources, engine, config.LoadSchedulerConfig())
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Run(ctx); err != nil {
			log.Printf("scheduler stopped: %v", err)
		}
	}()

	// The intent consumer drains the notification queue into the
	// delivery log. It reconnects on its own until the process exits.
	go func() {
		if err := queue.StartIntentConsumer(service.BrokerURL()); err != nil {
			log.Printf("intent consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.RegisterRoutes(e)
	router.RegisterOperator(e,
		&handler.AdminHandler{Circuits: circuits, Departures: departures},
		&handler.SourceHandler{Sources: sources, Departures: departures, Engine: engine},
		&handler.WatchlistHandler{Watchlists: watchlists, Circuits: circuits},
		&handler.BookingHandler{Engine: engine},
	)
	router.RegisterPublic(e,
		&handler.PublicHandler{Circuits: circuits, Departures: departures},
		rdb, config.LoadRateLimitConfig(), config.LoadCacheConfig(),
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	select {
	case <-schedDone:
	case <-shutdownCtx.Done():
		log.Println("scheduler drain timed out")
	}
}
