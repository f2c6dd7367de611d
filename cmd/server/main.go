package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/cartsmash/backend/config"
	httpDelivery "github.com/cartsmash/backend/internal/delivery/http"
	"github.com/cartsmash/backend/internal/domain"
	"github.com/cartsmash/backend/internal/infrastructure/cache"
	"github.com/cartsmash/backend/internal/infrastructure/catalog"
	"github.com/cartsmash/backend/internal/infrastructure/instacart"
	"github.com/cartsmash/backend/internal/usecase"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.Server.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	logger := log.Logger

	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Msg("starting CartSmash backend v1.0.0")

	// Reference catalog and fee schedules
	var provider *catalog.StaticProvider
	if cfg.Cache.CatalogFile != "" {
		provider, err = catalog.LoadFromFile(cfg.Cache.CatalogFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.Cache.CatalogFile).Msg("failed to load catalog")
		}
		logger.Info().Str("file", cfg.Cache.CatalogFile).Int("entries", provider.Catalog().Len()).Msg("catalog loaded")
	} else {
		provider = catalog.NewStaticProvider()
		logger.Info().Int("entries", provider.Catalog().Len()).Msg("using built-in catalog")
	}

	memoryCache := cache.NewMemoryCache()

	// Instacart integration
	client := instacart.NewClient(cfg.Instacart.APIKey, cfg.Instacart.BaseURL, cfg.Instacart.CallTimeout, logger)
	fetcher := instacart.NewFetcher(cfg.Instacart.CallTimeout)
	parser := instacart.NewParser()

	if cfg.Instacart.APIKey == "" {
		logger.Warn().Msg("Instacart API key not configured; retailer search will fail")
	}

	// Usecase layer
	validationService := usecase.NewValidationService(provider, usecase.ValidationConfig{
		Matching: usecase.MatchConfig{
			AcceptThreshold:  cfg.Matching.AcceptThreshold,
			SuggestThreshold: cfg.Matching.SuggestThreshold,
			SuggestionLimit:  cfg.Matching.SuggestionLimit,
		},
		AlternativesLimit: cfg.Matching.AlternativesLimit,
	}, logger)

	cartService := usecase.NewCartService(provider, validationService, usecase.CartConfig{
		TaxRate:              decimal.RequireFromString(cfg.Cart.TaxRate),
		SmallBasketSurcharge: decimal.RequireFromString(cfg.Cart.SmallBasketSurcharge),
		BatchWorkers:         cfg.Cart.BatchWorkers,
		PromoCodes:           defaultPromoCodes(),
	}, logger)

	searchService := usecase.NewSearchService(client, fetcher, parser, memoryCache, usecase.SearchConfig{
		Retailer:       "instacart",
		CallTimeout:    cfg.Instacart.CallTimeout,
		ResultTTL:      cfg.Cache.ResultTTL,
		CheckoutURLTTL: cfg.Cache.CheckoutURLTTL,
		Breaker: usecase.BreakerConfig{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			Cooldown:         cfg.Breaker.Cooldown,
		},
	}, logger)

	handler := httpDelivery.NewHandler(validationService, cartService, map[string]httpDelivery.RetailerSearcher{
		"instacart": searchService,
	})

	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info().Str("addr", addr).Msg("server listening")

	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// defaultPromoCodes is the static promotion table
func defaultPromoCodes() []domain.PromoCode {
	return []domain.PromoCode{
		{Code: "SAVE10", PercentOff: decimal.NewFromInt(10)},
		{Code: "WELCOME20", PercentOff: decimal.NewFromInt(20)},
		{Code: "FIVEOFF", AmountOff: decimal.NewFromInt(5)},
	}
}
