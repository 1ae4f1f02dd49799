package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"storefront/internal/adapter/repo"
	"storefront/internal/http/handlers"
	httpapi "storefront/internal/http/httpapi"
	"storefront/internal/infra"
	"storefront/internal/infra/geoip"
	"storefront/internal/middleware"
	imageprovider "storefront/internal/providers/image"
	"storefront/internal/providers/prompt"
	"storefront/internal/providers/woocommerce"
	"storefront/internal/quota"
	"storefront/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := handlers.NewApp(cfg, logger)

	catalog, err := prompt.LoadCatalog()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load style catalog")
	}
	app.Catalog = catalog

	app.Images = imageprovider.NewOpenAIClient(imageprovider.Options{
		APIKey:  cfg.Image.APIKey,
		BaseURL: cfg.Image.BaseURL,
		Model:   cfg.Image.Model,
		Logger:  logger.With().Str("component", "image").Logger(),
	})
	app.Prompts = prompt.NewStreamClient(prompt.StreamOptions{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.ChatModel,
	})
	app.Orders = woocommerce.NewClient(woocommerce.Options{
		BaseURL:        cfg.WooCommerce.URL,
		ConsumerKey:    cfg.WooCommerce.ConsumerKey,
		ConsumerSecret: cfg.WooCommerce.ConsumerSecret,
		Logger:         logger.With().Str("component", "woocommerce").Logger(),
	})
	fetchClient := &http.Client{Timeout: 30 * time.Second}
	app.Fetcher = imageprovider.NewFetcher(fetchClient, cfg.ImageSourceAllowlist)
	app.Raster = imageprovider.NewFetcher(fetchClient, nil)

	staticDir := ""
	if cfg.UsesSupabaseStorage() {
		store, err := storage.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceKey, cfg.Supabase.StorageBucket, nil)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure supabase storage")
		}
		app.Store = store
	} else {
		store, err := storage.NewFileStore(cfg.Storage.Path, cfg.Storage.BaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare storage directory")
		}
		app.Store = store
		staticDir = store.BasePath()
	}

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	if dbpool != nil {
		defer dbpool.Close()
		app.Designs = repo.NewDesignRepository(infra.NewSQLRunner(dbpool, logger))
		app.Checks["database"] = dbpool.Ping
	} else {
		logger.Info().Msg("DATABASE_URL not set; saved designs disabled")
	}

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	if rdb != nil {
		defer rdb.Close()
		app.Gate = quota.NewRedisGate(rdb, cfg.DailyGenerationLimit, cfg.QuotaLocation)
		app.Checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		gate := quota.NewMemoryGate(cfg.DailyGenerationLimit, cfg.QuotaLocation, logger)
		if err := gate.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to schedule quota reset")
		}
		app.Gate = gate
	}

	countries, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer countries.Close()
	var lookup middleware.CountryLookup
	if countries != nil {
		lookup = countries.Country
	}

	throttle := middleware.NewThrottleStore(cfg.APIRatePerSecond, cfg.APIRateBurst)
	throttle.StartJanitor(ctx, time.Minute)

	logMissingKeys(logger, cfg)

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins(),
		JWTSecret:   cfg.Supabase.JWTSecret,
		Throttle:    throttle,
		Country:     lookup,
		StaticDir:   staticDir,
	})

	server := infra.NewHTTPServer(cfg, router)
	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func logMissingKeys(logger zerolog.Logger, cfg *infra.Config) {
	if cfg.Image.APIKey == "" {
		logger.Warn().Msg("IMAGE_API_KEY not set; /api/imagine will answer 500")
	}
	if cfg.OpenAI.APIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY not set; /api/enhance-prompt will answer 500")
	}
	if cfg.WooCommerce.URL == "" || cfg.WooCommerce.ConsumerKey == "" || cfg.WooCommerce.ConsumerSecret == "" {
		logger.Warn().Msg("WooCommerce credentials not set; order endpoints will answer 500")
	}
	if cfg.Supabase.JWTSecret == "" {
		logger.Warn().Msg("SUPABASE_JWT_SECRET not set; all callers are anonymous")
	}
}
