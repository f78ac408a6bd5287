package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"donation-api/internal/adapter/repo"
	"donation-api/internal/domain"
	"donation-api/internal/http/handlers"
	"donation-api/internal/http/httpapi"
	"donation-api/internal/infra"
	"donation-api/internal/infra/geoip"
	"donation-api/internal/middleware"
	"donation-api/internal/notify"
	"donation-api/internal/payment"
	"donation-api/internal/providers/card"
	"donation-api/internal/providers/paypal"
	"donation-api/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLoggerWithLevel(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, probe, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	providerHTTP := &http.Client{Timeout: cfg.ProviderTimeout}
	cardAdapter := card.NewAdapter(card.Options{
		SecretKey:  cfg.StripeSecretKey,
		BaseURL:    cfg.StripeBaseURL,
		HTTPClient: providerHTTP,
		Logger:     &logger,
	})
	if !cardAdapter.HasCredentials() {
		logger.Warn().Msg("STRIPE_SECRET_KEY missing, card payments will fail")
	}
	paypalClient := paypal.NewClient(paypal.Options{
		ClientID:     cfg.PayPalClientID,
		ClientSecret: cfg.PayPalClientSecret,
		BaseURL:      cfg.PayPalBaseURL,
		HTTPClient:   providerHTTP,
		Logger:       &logger,
	})
	if !paypalClient.HasCredentials() {
		logger.Warn().Msg("PAYPAL_CLIENT_ID/PAYPAL_CLIENT_SECRET missing, PayPal payments will fail")
	}
	orchestrator := payment.NewOrchestrator(map[payment.Gateway]payment.Adapter{
		payment.GatewayCard:   cardAdapter,
		payment.GatewayPayPal: paypal.NewAdapter(paypalClient),
	}, &logger)

	var receipts service.ReceiptSender
	if cfg.SMTPConfigured() {
		receipts = notify.NewReceiptMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	}

	donations := service.NewDonationService(service.DonationServiceOptions{
		Store:                  store,
		Payments:               orchestrator,
		Receipts:               receipts,
		RequireVerifiedPayment: cfg.RequireVerifiedPayment,
		Currency:               cfg.CardCurrency,
		Logger:                 &logger,
	})

	var countryLookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		defer resolver.Close()
		countryLookup = resolver.CountryCode
	}

	app := handlers.NewApp(handlers.Deps{
		Donations:    donations,
		Payments:     orchestrator,
		Store:        probe,
		Logger:       &logger,
		CardCurrency: cfg.CardCurrency,
	})
	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMin,
		TrustedProxyHops:   cfg.TrustedProxyHops,
		CountryLookup:      countryLookup,
		Logger:             logger,
	})

	if cfg.TLSEnabled() && !tlsFilesPresent(cfg) {
		logger.Error().Str("cert", cfg.TLSCert).Str("key", cfg.TLSKey).Msg("TLS files not readable, serving plain HTTP")
		cfg.TLSCert, cfg.TLSKey = "", ""
	}
	server := infra.NewHTTPServer(cfg, router)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr()).Bool("tls", server.TLS()).Msg("API listening")
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("http server failed")
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// openStore returns the donation store. With a DATABASE_URL the connection is
// established in the background; until then the store answers ErrStoreUnavailable.
func openStore(ctx context.Context, cfg *infra.Config, logger infra.Logger) (domain.DonationRepository, handlers.ReadinessProbe, func()) {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, donations are kept in memory")
		return repo.NewMemoryDonationRepository(), nil, func() {}
	}

	connect := func(ctx context.Context) (*pgxpool.Pool, error) {
		if cfg.AutoMigrate {
			if err := infra.Migrate(ctx, cfg.DatabaseURL, logger); err != nil {
				return nil, err
			}
		}
		return infra.NewDBPool(ctx, cfg.DatabaseURL)
	}
	connector := infra.NewConnector(connect, infra.RetryPolicy{
		Initial:  cfg.DBRetryInitial,
		Max:      cfg.DBRetryMax,
		Attempts: cfg.DBRetryAttempts,
	}, logger)

	go func() {
		if err := connector.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("database unavailable, donation store stays offline")
		}
	}()
	return repo.NewDonationRepository(connector), connector, connector.Close
}

func tlsFilesPresent(cfg *infra.Config) bool {
	for _, path := range []string{cfg.TLSCert, cfg.TLSKey} {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}
