package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"tripplanner/config"
	"tripplanner/database"
	"tripplanner/handlers"
	"tripplanner/services"
)

func main() {
	// Load .env file (ignored in production where env vars are set directly)
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if envErr != nil {
		logger.Info("no .env file found, using environment variables")
	}

	// ── Database ──────────────────────────────────────────────────────────────
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := database.Open(startCtx, cfg.DatabaseURL, logger)
	cancelStart()
	if err != nil {
		logger.Error("failed to initialise database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// ── Services ──────────────────────────────────────────────────────────────
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	deps := services.AssemblerDeps{
		Fallback:   services.NewGenerator(nil),
		Logger:     logger,
		Concurrent: cfg.ConcurrentLegs,
	}

	amadeusURL := services.AmadeusTestURL
	if cfg.AmadeusEnv == "production" {
		amadeusURL = services.AmadeusProductionURL
	}
	amadeus := services.NewAmadeusClient(services.AmadeusConfig{
		ClientID:     cfg.AmadeusClientID,
		ClientSecret: cfg.AmadeusClientSecret,
		BaseURL:      amadeusURL,
		HTTPClient:   httpClient,
		Logger:       logger,
	})
	if amadeus.Configured() {
		deps.Provider = amadeus
		logger.Info("amadeus client initialised", "base_url", amadeusURL)
	} else {
		logger.Warn("AMADEUS_CLIENT_ID / AMADEUS_CLIENT_SECRET not set, flights and hotels use fallback data")
	}

	if cfg.TavilyAPIKey != "" {
		deps.Search = services.NewSearchClient(services.SearchConfig{
			APIKey:     cfg.TavilyAPIKey,
			HTTPClient: httpClient,
			Logger:     logger,
		})
	} else {
		logger.Warn("TAVILY_API_KEY not set, hotel and activity search disabled")
	}

	if cfg.PexelsAPIKey != "" {
		deps.Stock = services.NewPexelsClient(services.PexelsConfig{
			APIKey:     cfg.PexelsAPIKey,
			HTTPClient: httpClient,
			Logger:     logger,
		})
	}
	if cfg.HuggingFaceAPIKey != "" {
		deps.Personalizer = services.NewHuggingFaceClient(services.HuggingFaceConfig{
			APIKey:     cfg.HuggingFaceAPIKey,
			Model:      cfg.HFImageModel,
			HTTPClient: httpClient,
			Logger:     logger,
		})
	}

	assembler := services.NewAssembler(deps)

	// ── Router ────────────────────────────────────────────────────────────────
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(handlers.RequestLogger(logger), gin.Recovery())

	// Trusted proxies (the app sits behind a proxy in production)
	r.SetTrustedProxies([]string{"0.0.0.0/0"})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	handlers.New(store, assembler, logger).Register(r)

	// ── HTTP Server ───────────────────────────────────────────────────────────
	// Generation can chain many provider calls, so the write timeout is generous.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("trip planner backend starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
