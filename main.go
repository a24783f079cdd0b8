package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grooby/catalog"
	"grooby/config"
	"grooby/database"
	"grooby/docstore"
	"grooby/handlers"
	"grooby/identity"
	"grooby/ledger"
	"grooby/logger"
	"grooby/market"
	"grooby/metrics"
	"grooby/middleware"
	"grooby/wallet"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer zapLogger.Sync()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx := context.Background()

	// Stores
	var (
		docs     docstore.Store
		accounts identity.AccountStore
		recorder market.SnapshotRecorder
		history  handlers.PriceHistory
	)
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := config.InitDB(cfg)
		if err != nil {
			zapLogger.Fatal("Failed to connect to the database", zap.Error(err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			zapLogger.Fatal("Failed to get database instance", zap.Error(err))
		}
		defer sqlDB.Close()

		if err := database.AutoMigrate(db); err != nil {
			zapLogger.Fatal("Failed to migrate models", zap.Error(err))
		}
		prices := database.NewPriceRecorder(db)
		docs, accounts, recorder, history = database.NewDocumentStore(db), database.NewAccountStore(db), prices, prices
		zapLogger.Info("Using PostgreSQL store", zap.String("host", cfg.DB.Host), zap.String("database", cfg.DB.Name))
	default:
		docs, accounts = docstore.NewMemory(), identity.NewMemoryAccounts()
		zapLogger.Warn("Using in-memory store, data is lost on restart")
	}

	rdb, err := config.InitRedis(ctx, cfg)
	if err != nil {
		zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	var (
		sessions   identity.SessionStore
		priceCache market.Cache
	)
	if rdb != nil {
		defer rdb.Close()
		sessions, priceCache = identity.NewRedisSessions(rdb), market.NewRedisCache(rdb, zapLogger)
		zapLogger.Info("Using Redis for sessions and price cache", zap.String("addr", cfg.Redis.Addr))
	} else {
		sessions, priceCache = identity.NewMemorySessions(), market.NewMemoryCache(cfg.PriceCacheTTL)
	}

	// Domain
	cat := catalog.Default()
	if cfg.TokensFile != "" {
		if cat, err = catalog.Load(cfg.TokensFile); err != nil {
			zapLogger.Fatal("Failed to load token catalog", zap.String("path", cfg.TokensFile), zap.Error(err))
		}
	}
	zapLogger.Info("Token catalog loaded", zap.Strings("symbols", cat.Symbols()))

	feed := market.NewBinanceFeed(cfg.PriceFeedURL, cfg.PriceTimeout, zapLogger)
	lookup := market.NewLookup(feed, priceCache, zapLogger, market.Options{
		Quote:        cfg.PriceQuote,
		CacheTTL:     cfg.PriceCacheTTL,
		FetchTimeout: cfg.PriceTimeout,
		Recorder:     recorder,
	})

	valuator, err := ledger.NewValuator(cfg.USDRate, cfg.LocalCurrency)
	if err != nil {
		zapLogger.Fatal("Invalid currency settings", zap.Error(err))
	}

	signer, err := identity.NewSigner(cfg.JWTSecret)
	if err != nil {
		zapLogger.Fatal("Invalid JWT secret", zap.Error(err))
	}
	ids := identity.NewService(accounts, sessions, docs, signer, identity.Config{
		SessionTTL:  cfg.SessionTTL,
		RememberTTL: cfg.RememberTTL,
	}, zapLogger)
	wallets := wallet.NewService(docs, cat, lookup, valuator, zapLogger)

	// HTTP
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 0 || cfg.CORSOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))
	router.Use(middleware.Logger(zapLogger))
	router.Use(gin.Recovery())

	handlers.New(ids, wallets, lookup, cat, history, zapLogger).
		Routes(router, middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zapLogger.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exiting")
}
