// Package app wires the scan pipeline, thesis tracker and circuit breaker
// into one session loop per trading account.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"momentum-scout/api"
	"momentum-scout/cache"
	"momentum-scout/config"
	"momentum-scout/database"
	"momentum-scout/database/dailycache"
	"momentum-scout/database/history"
	"momentum-scout/database/riskstate"
	"momentum-scout/database/theses"
	"momentum-scout/market"
	"momentum-scout/marketdata"
	"momentum-scout/notifications"
	"momentum-scout/scanner"
)

// App represents the main application
type App struct {
	config *config.Config
	cal    *market.Calendar

	db      *database.Database
	redis   *cache.RedisClient
	gateway *marketdata.Client
	stream  *marketdata.Stream

	cacheRepo   *dailycache.Repository
	archiveRepo *history.Repository
	thesisRepo  *theses.Repository
	riskRepo    *riskstate.Repository

	scanner        *scanner.Scanner
	tracker        *ThesisTracker
	breaker        *CircuitBreaker
	webhookManager *notifications.WebhookManager

	lastCleanupDate string
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{
		config: cfg,
		cal:    market.NewCalendar(cfg.Market),
	}
}

// Start starts the application
func (a *App) Start() error {
	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Database connection, one file per account
	fmt.Println("🗄️  Opening account database...")
	db, err := database.Connect(a.config.DataDir, a.config.AccountID)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db

	if err := a.db.InitSchema(); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	// 2. Redis connection (optional price cache)
	fmt.Println("🧠 Connecting to Redis...")
	a.redis = cache.NewRedisClient(
		a.config.RedisHost,
		a.config.RedisPort,
		a.config.RedisPassword,
	)
	if a.redis == nil {
		fmt.Println("⚠️  Redis connection failed. Price caching disabled.")
	}

	// 3. Market data gateway and price stream
	a.gateway = marketdata.NewClient(a.config, a.redis)
	a.stream = marketdata.NewStream(a.config.StreamURL, a.config.APIKeyID, a.config.APISecretKey, a.redis)
	a.stream.Start()

	// 4. Repositories
	a.cacheRepo = dailycache.NewRepository(a.db, a.cal)
	a.archiveRepo = history.NewRepository(a.db)
	a.thesisRepo = theses.NewRepository(a.db)
	a.riskRepo = riskstate.NewRepository(a.db)

	// 5. Core components
	a.scanner = scanner.NewScanner(a.gateway, a.config.Scan)
	a.tracker = NewThesisTracker(a.thesisRepo, a.gateway, a.cal)
	a.webhookManager = notifications.NewWebhookManager(a.config.WebhookURLs, a.redis)

	equity, err := a.gateway.AccountEquity(ctx)
	if err != nil {
		return fmt.Errorf("initial equity fetch failed: %w", err)
	}
	log.Printf("💰 Account %s equity: %.2f", a.config.AccountID, equity)

	a.breaker, err = NewCircuitBreaker(a.riskRepo, a.cal, a.config.Risk, a.config.AccountID, equity, time.Now())
	if err != nil {
		return fmt.Errorf("risk state load failed: %w", err)
	}
	if err := a.breaker.ResetDailyBaseline(equity, time.Now()); err != nil {
		return fmt.Errorf("daily baseline reset failed: %w", err)
	}

	// 6. API server
	apiServer := api.NewServer(a.cacheRepo, a.archiveRepo, a.thesisRepo, a.breaker)
	go func() {
		if err := apiServer.Start(a.config.APIPort); err != nil {
			log.Printf("⚠️  API Server failed: %v", err)
		}
	}()

	// 7. Session loop
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.runSessionLoop(ctx)
	}()

	// 8. Wait for interrupt and perform graceful shutdown
	err = a.gracefulShutdown(cancel)
	wg.Wait()
	return err
}

// runSessionLoop repeats scan -> cache -> monitor on the configured
// interval until the context is cancelled.
func (a *App) runSessionLoop(ctx context.Context) {
	interval := time.Duration(a.config.Scan.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log.Printf("🔁 Session loop started (interval %v)", interval)
	a.runCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("🔁 Session loop stopped")
			return
		case <-ticker.C:
			a.runCycle(ctx)
		}
	}
}

func (a *App) runCycle(ctx context.Context) {
	now := time.Now()
	date := a.cal.TradeDate(now)

	// Risk gate first: fresh equity, month rollover, suspension checks
	equity, err := a.gateway.AccountEquity(ctx)
	if err != nil {
		log.Printf("⚠️ Equity fetch failed, skipping risk update: %v", err)
	} else {
		if err := a.breaker.RolloverIfNewMonth(equity, now); err != nil {
			log.Printf("⚠️ Month rollover failed: %v", err)
		}
		if a.breaker.DailyBaselineDate() != date {
			if err := a.breaker.ResetDailyBaseline(equity, now); err != nil {
				log.Printf("⚠️ Daily baseline reset failed: %v", err)
			}
		}
		canTrade, reason := a.breaker.UpdateEquity(equity)
		if !canTrade {
			a.webhookManager.NotifySuspension(a.config.AccountID, reason, equity)
		}
	}

	// Refresh the scan cache when it is missing or stale for today
	valid, err := a.cacheRepo.IsValid(date, now)
	if err != nil {
		log.Printf("⚠️ Cache validity check failed: %v", err)
	}
	if !valid {
		a.refreshScan(ctx, date)
	}

	// Evaluate open positions against fresh prices
	evals, err := a.tracker.EvaluateOpenPositions(ctx, now)
	if err != nil {
		log.Printf("⚠️ Position evaluation failed: %v", err)
	}
	for _, eval := range evals {
		if eval.Err != "" {
			log.Printf("⚠️ %s (%s): %s", eval.Symbol, eval.OrderID, eval.Err)
			continue
		}
		if eval.ShouldExit {
			a.webhookManager.NotifyExitSignal(eval.OrderID, eval.Symbol, eval.ExitReason, eval.Price)
		}
	}

	// Cache cleanup once per day; the archive keeps everything
	if a.lastCleanupDate != date {
		removed, err := a.cacheRepo.Cleanup(a.config.Scan.CacheRetentionDays)
		if err != nil {
			log.Printf("⚠️ Cache cleanup failed: %v", err)
		} else if removed > 0 {
			log.Printf("🧹 Cache cleanup removed %d rows older than %d days", removed, a.config.Scan.CacheRetentionDays)
		}
		a.lastCleanupDate = date
	}
}

// refreshScan runs a scan and writes it through the cache, then archives it
// best-effort. Archive failure never rolls back the cache write.
func (a *App) refreshScan(ctx context.Context, date string) {
	result, err := a.scanner.Scan(ctx, date)
	if err != nil {
		log.Printf("⚠️ Scan failed: %v", err)
		return
	}

	if err := a.cacheRepo.Write(date, result.Gainers, result.Losers, result.Regime, result.Metadata); err != nil {
		log.Printf("⚠️ Cache write failed: %v", err)
		return
	}

	all := append(append([]database.MomentumRecord{}, result.Gainers...), result.Losers...)
	if err := a.archiveRepo.Archive(date, all, result.Regime, result.Metadata); err != nil {
		log.Printf("⚠️ Archive write failed (cache unaffected): %v", err)
	}

	// Point the price stream at the day's movers
	a.stream.Subscribe(result.Symbols())
}

// gracefulShutdown handles graceful shutdown with timeout
func (a *App) gracefulShutdown(cancel context.CancelFunc) error {
	// Setup signal handling
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	// Wait for interrupt signal
	<-interrupt
	fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")

	// Cancel context to stop the session loop
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	shutdownComplete := make(chan struct{})
	go func() {
		fmt.Println("📡 Stopping price stream...")
		a.stream.Stop()

		if a.db != nil {
			if err := a.db.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			} else {
				fmt.Println("✅ Database connection closed")
			}
		}

		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				log.Printf("Error closing redis: %v", err)
			} else {
				fmt.Println("✅ Redis connection closed")
			}
		}

		close(shutdownComplete)
	}()

	// Wait for shutdown to complete or timeout
	select {
	case <-shutdownComplete:
		fmt.Println("✅ Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}
